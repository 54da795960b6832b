// Package classify files source files into categories by filename.
package classify

import (
	"path"
	"strings"

	"github.com/phobologic/repoclassify/internal/model"
)

// Rule maps files whose base name satisfies Match to Category.
type Rule struct {
	Name     string
	Match    func(base string) bool
	Category model.Category
}

func contains(subs ...string) func(string) bool {
	return func(base string) bool {
		for _, s := range subs {
			if strings.Contains(base, s) {
				return true
			}
		}
		return false
	}
}

// Rules are evaluated top-down and the first match wins. The order is
// significant: "views.py" precedes "api", so api_views.py is a Views file,
// and "query" precedes "queryset", so querysets.py is a Queries file.
var Rules = []Rule{
	{"admin.py", contains("admin.py"), model.Admin},
	{"views.py", contains("views.py"), model.Views},
	{"api", contains("api"), model.APIViews},
	{"models.py", contains("models.py"), model.Models},
	{"serializer", contains("serializers.py", "serializer"), model.Serializers},
	{"test", contains("tests.py", "test"), model.Tests},
	{"signal", contains("signals.py", "signal"), model.Signals},
	{"service", contains("services.py", "service"), model.Services},
	{"consumer", contains("consumers.py", "consumer"), model.Consumers},
	{"query", contains("queries.py", "query"), model.Queries},
	{"queryset", contains("querysets.py", "queryset"), model.Querysets},
	{"urls.py", contains("urls.py"), model.Endpoints},
}

// Classify returns the category of the file at p, judged by its base name.
func Classify(p string) model.Category {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	for _, r := range Rules {
		if r.Match(base) {
			return r.Category
		}
	}
	return model.Others
}

// RouteCategory reports whether files in c contribute endpoints rather than
// class and function names.
func RouteCategory(c model.Category) bool {
	return c == model.Endpoints
}
