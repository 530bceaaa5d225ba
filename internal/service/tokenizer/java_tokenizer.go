package tokenizer

import (
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

var javaNormalization = map[string]string{
	"identifier":                     "ID",
	"type_identifier":                "ID",
	"decimal_integer_literal":        "NUM",
	"hex_integer_literal":            "NUM",
	"octal_integer_literal":          "NUM",
	"binary_integer_literal":         "NUM",
	"decimal_floating_point_literal": "NUM",
	"hex_floating_point_literal":     "NUM",
	"string_literal":                 "STR",
	"character_literal":              "STR",
	"true":                           "BOOL",
	"false":                          "BOOL",
	"null_literal":                   "NULL",
	"null":                           "NULL",
}

// NewJavaTokenizer creates a new Java tokenizer
func NewJavaTokenizer() (*TreeSitterTokenizer, error) {
	return newTreeSitterTokenizer("java", java.Language(), javaNormalization,
		[]string{"string_literal", "character_literal"})
}
