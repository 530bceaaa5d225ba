package tokenizer

import (
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

var javascriptNormalization = map[string]string{
	"identifier":          "ID",
	"property_identifier": "ID",
	"number":              "NUM",
	"string":              "STR",
	"template_string":     "STR",
	"regex":               "REGEX",
	"true":                "BOOL",
	"false":               "BOOL",
	"null":                "NULL",
	"undefined":           "UNDEF",
}

var javascriptAtomic = []string{"string", "template_string", "regex"}

// NewJavaScriptTokenizer creates a new JavaScript tokenizer
func NewJavaScriptTokenizer() (*TreeSitterTokenizer, error) {
	return newTreeSitterTokenizer("javascript", javascript.Language(), javascriptNormalization, javascriptAtomic)
}
