package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/repoclassify/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "app/models.py", "app/models.py"},
		{"category with space", "API Views", "API Views"},
		{"route", "users/", "users/"},
		{"route converter", "users/<int:pk>/", `"users/<int:pk>/"`},
		{"regex route", `^items/(?P<pk>\d+)/$`, `"^items/(?P<pk>\\d+)/$"`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	res := model.NewAnalysisResult("https://github.com/acme/shop")
	res.Files = 3
	res.Languages = []string{"Python"}
	res.Add(model.Tests, model.Item{Name: "test_create_user", Kind: model.FunctionItem, File: "app/tests/test_user.py"})
	res.Add(model.Models, model.Item{Name: "User", Kind: model.ClassItem, File: "app/models.py"})
	res.Add(model.Endpoints, model.Item{Name: "/health", Kind: model.EndpointItem, File: "app/urls.py"})

	got := Encode(res)

	want := strings.Join([]string{
		`repo: "https://github.com/acme/shop"`,
		"files: 3",
		"languages: Python",
		"categories[3]{category,kind,name,file}:",
		"  Models,class,User,app/models.py",
		"  Tests,function,test_create_user,app/tests/test_user.py",
		"  Endpoints,endpoint,/health,app/urls.py",
	}, "\n")
	if got != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}
}

func TestEncodeErrors(t *testing.T) {
	t.Parallel()

	res := model.NewAnalysisResult("shop")
	res.Errors = []model.FileError{{Path: "app/views.py", Message: "parsing app/views.py:3:1: syntax error"}}

	got := Encode(res)
	if !strings.Contains(got, "categories[0]{category,kind,name,file}:") {
		t.Errorf("expected empty categories section, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "errors[1]{path,message}:\n  app/views.py,\"parsing app/views.py:3:1: syntax error\"") {
		t.Errorf("unexpected errors section:\n%s", got)
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode(model.NewAnalysisResult("empty"))
	if strings.Contains(got, "errors[") {
		t.Errorf("errors section emitted without errors:\n%s", got)
	}
	if !strings.Contains(got, `languages: ""`) {
		t.Errorf("expected empty languages, got:\n%s", got)
	}
}
