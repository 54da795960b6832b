package report

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/phobologic/repoclassify/internal/aggregate"
	"github.com/phobologic/repoclassify/internal/model"
)

func sampleResult() *model.AnalysisResult {
	res := model.NewAnalysisResult("https://github.com/acme/shop")
	res.Add(model.Models, model.Item{Name: "User", Kind: model.ClassItem})
	res.Add(model.Models, model.Item{Name: "save", Kind: model.FunctionItem})
	res.Add(model.Endpoints, model.Item{Name: "/health", Kind: model.EndpointItem})
	return res
}

func TestWriteFormat(t *testing.T) {
	t.Parallel()

	got := String(sampleResult())

	if !strings.HasPrefix(got, "Admin:\nNo items found.\n\nAPI Views:\nNo items found.\n\n") {
		t.Errorf("unexpected prefix:\n%s", got)
	}
	if !strings.Contains(got, "\nModels:\n- User\n- save\n\n") {
		t.Errorf("Models section missing:\n%s", got)
	}
	if !strings.Contains(got, "\nEndpoints:\n- /health\n\n") {
		t.Errorf("Endpoints section missing:\n%s", got)
	}
	if !strings.HasSuffix(got, "Others:\nNo items found.\n\n") {
		t.Errorf("unexpected suffix:\n%s", got)
	}

	var headers []string
	for _, line := range strings.Split(got, "\n") {
		if strings.HasSuffix(line, ":") {
			headers = append(headers, strings.TrimSuffix(line, ":"))
		}
	}
	var want []string
	for _, c := range model.Categories {
		want = append(want, string(c))
	}
	if !reflect.DeepEqual(headers, want) {
		t.Errorf("headers = %v, want %v", headers, want)
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	a, err := aggregate.New()
	if err != nil {
		t.Fatalf("aggregate.New: %v", err)
	}
	nodes := []model.FileNode{
		{Path: "app/admin.py", Kind: model.File, Content: model.Materialized([]byte("class UserAdmin:\n    pass\n"))},
		{Path: "app/models.py", Kind: model.File, Content: model.Materialized([]byte("class User:\n    def save(self):\n        pass\n"))},
		{Path: "app/urls.py", Kind: model.File, Content: model.Materialized([]byte("urlpatterns = [path('users/', v), path('users/<int:pk>/', v)]\n"))},
		{Path: "app/utils.py", Kind: model.File, Content: model.Materialized([]byte("def slugify(s):\n    return s\n"))},
	}
	res, err := a.Aggregate(context.Background(), "r", nodes)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	parsed, err := Parse(strings.NewReader(String(res)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed) != len(model.Categories) {
		t.Errorf("parsed %d categories, want %d", len(parsed), len(model.Categories))
	}
	for _, c := range model.Categories {
		if want := res.Names(c); !reflect.DeepEqual(parsed[c], want) {
			t.Errorf("%s = %v, want %v", c, parsed[c], want)
		}
	}
	if got := parsed[model.Endpoints]; !reflect.DeepEqual(got, []string{"users/", "users/<int:pk>/"}) {
		t.Errorf("Endpoints = %v", got)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"item before header", "- orphan\n"},
		{"unknown header", "Widgets:\n- a\n"},
		{"stray text", "Admin:\nsomething\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteToLocalFile(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out", "report.txt")
	data := []byte(String(sampleResult()))
	if err := WriteTo(context.Background(), dest, data, nil); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("file content mismatch:\n%s", got)
	}
}

func TestWriteToObjectWithoutStore(t *testing.T) {
	t.Parallel()

	err := WriteTo(context.Background(), "s3://reports/shop.txt", []byte("x"), nil)
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("error = %v", err)
	}
}

func TestRoundTripMultilineRouteLiteral(t *testing.T) {
	t.Parallel()

	a, err := aggregate.New()
	if err != nil {
		t.Fatalf("aggregate.New: %v", err)
	}
	src := "urlpatterns = [path('''a\nb''', v), path('ok/', v)]\n"
	nodes := []model.FileNode{{Path: "urls.py", Kind: model.File, Content: model.Materialized([]byte(src))}}
	res, err := a.Aggregate(context.Background(), "r", nodes)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	parsed, err := Parse(strings.NewReader(String(res)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := parsed[model.Endpoints]; !reflect.DeepEqual(got, []string{"ok/"}) {
		t.Errorf("Endpoints = %v", got)
	}
}
