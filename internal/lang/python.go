package lang

import (
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Languages["python"] = &Language{
		Name:        "python",
		DisplayName: "Python",
		Extensions:  []string{".py", ".pyw"},
		lang:        python.GetLanguage(),
	}
}
