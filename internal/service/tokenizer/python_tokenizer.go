package tokenizer

import (
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var pythonNormalization = map[string]string{
	"identifier": "ID",
	"integer":    "NUM",
	"float":      "NUM",
	"string":     "STR",
	"true":       "BOOL",
	"false":      "BOOL",
	"True":       "BOOL",
	"False":      "BOOL",
	"none":       "NONE",
	"None":       "NONE",
}

// NewPythonTokenizer creates a new Python tokenizer
func NewPythonTokenizer() (*TreeSitterTokenizer, error) {
	return newTreeSitterTokenizer("python", python.Language(), pythonNormalization, []string{"string"})
}
