package tokenizer

import (
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// TypeScript shares the JavaScript table and adds type names
var typescriptNormalization = func() map[string]string {
	table := map[string]string{"type_identifier": "ID"}
	for kind, placeholder := range javascriptNormalization {
		table[kind] = placeholder
	}
	return table
}()

// NewTypeScriptTokenizer creates a new TypeScript tokenizer
func NewTypeScriptTokenizer() (*TreeSitterTokenizer, error) {
	return newTreeSitterTokenizer("typescript", typescript.LanguageTypescript(), typescriptNormalization, javascriptAtomic)
}
