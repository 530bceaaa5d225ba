package tokenizer

import (
	golang "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

var goNormalization = map[string]string{
	"identifier":                 "ID",
	"field_identifier":           "ID",
	"type_identifier":            "ID",
	"package_identifier":         "ID",
	"label_name":                 "ID",
	"int_literal":                "NUM",
	"float_literal":              "NUM",
	"imaginary_literal":          "NUM",
	"raw_string_literal":         "STR",
	"interpreted_string_literal": "STR",
	"rune_literal":               "CHAR",
	"true":                       "BOOL",
	"false":                      "BOOL",
	"nil":                        "NIL",
}

// NewGoTokenizer creates a new Go tokenizer
func NewGoTokenizer() (*TreeSitterTokenizer, error) {
	return newTreeSitterTokenizer("go", golang.Language(), goNormalization,
		[]string{"raw_string_literal", "interpreted_string_literal", "rune_literal"})
}
