package tokenizer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	model "ngramlm/internal/model/ngram"
)

// Tokenizer defines the interface for language-specific tokenization
type Tokenizer interface {
	// Tokenize converts source text into a sequence of tokens
	Tokenize(ctx context.Context, source []byte) (model.TokenSequence, error)

	// Normalize applies language-specific normalization (e.g., all identifiers -> "ID")
	Normalize(token model.Token) string

	// Language returns the language this tokenizer handles
	Language() string
}

// TokenizerRegistry manages tokenizers for different languages
type TokenizerRegistry struct {
	tokenizers map[string]Tokenizer
	extensions map[string]string // file extension -> language
}

// NewTokenizerRegistry creates a new tokenizer registry
func NewTokenizerRegistry() *TokenizerRegistry {
	return &TokenizerRegistry{
		tokenizers: make(map[string]Tokenizer),
		extensions: make(map[string]string),
	}
}

// NewDefaultRegistry registers the plain-text tokenizer and every tree-sitter
// code tokenizer
func NewDefaultRegistry() (*TokenizerRegistry, error) {
	registry := NewTokenizerRegistry()
	registry.Register("text", NewTextTokenizer(false), []string{".txt", ".tok"})

	constructors := []struct {
		language   string
		extensions []string
		create     func() (*TreeSitterTokenizer, error)
	}{
		{"go", []string{".go"}, NewGoTokenizer},
		{"python", []string{".py", ".pyw"}, NewPythonTokenizer},
		{"javascript", []string{".js", ".jsx", ".mjs"}, NewJavaScriptTokenizer},
		{"typescript", []string{".ts", ".tsx"}, NewTypeScriptTokenizer},
		{"java", []string{".java"}, NewJavaTokenizer},
	}
	for _, c := range constructors {
		tok, err := c.create()
		if err != nil {
			return nil, fmt.Errorf("failed to create %s tokenizer: %w", c.language, err)
		}
		registry.Register(c.language, tok, c.extensions)
	}
	return registry, nil
}

// Register adds a tokenizer for a specific language
func (tr *TokenizerRegistry) Register(language string, tokenizer Tokenizer, extensions []string) {
	tr.tokenizers[language] = tokenizer
	for _, ext := range extensions {
		tr.extensions[ext] = language
	}
}

// GetTokenizer returns the tokenizer for a given language
func (tr *TokenizerRegistry) GetTokenizer(language string) (Tokenizer, bool) {
	tokenizer, ok := tr.tokenizers[language]
	return tokenizer, ok
}

// GetTokenizerByExtension returns the tokenizer for a given file extension
func (tr *TokenizerRegistry) GetTokenizerByExtension(extension string) (Tokenizer, bool) {
	language, ok := tr.extensions[strings.ToLower(extension)]
	if !ok {
		return nil, false
	}
	return tr.GetTokenizer(language)
}

// GetTokenizerForPath picks a tokenizer by the file's extension
func (tr *TokenizerRegistry) GetTokenizerForPath(path string) (Tokenizer, bool) {
	return tr.GetTokenizerByExtension(filepath.Ext(path))
}

// SupportedLanguages returns a sorted list of all supported languages
func (tr *TokenizerRegistry) SupportedLanguages() []string {
	languages := make([]string, 0, len(tr.tokenizers))
	for lang := range tr.tokenizers {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}
