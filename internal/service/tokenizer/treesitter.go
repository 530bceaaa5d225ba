package tokenizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	model "ngramlm/internal/model/ngram"
)

// TreeSitterTokenizer emits the leaf tokens of a tree-sitter parse tree.
// Node kinds listed in the normalization table as atomic (string literals and
// similar) are emitted whole even when the grammar gives them children.
type TreeSitterTokenizer struct {
	name      string
	parser    *tree_sitter.Parser
	language  *tree_sitter.Language
	normalize map[string]string // node kind -> placeholder
	atomic    map[string]bool   // node kinds emitted as a single token
	mu        sync.Mutex        // Protects parser (tree-sitter parsers are not thread-safe)
}

func newTreeSitterTokenizer(name string, grammar unsafe.Pointer, normalize map[string]string, atomic []string) (*TreeSitterTokenizer, error) {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(grammar)

	if err := parser.SetLanguage(language); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to set %s language: %w", name, err)
	}

	atomicKinds := make(map[string]bool, len(atomic))
	for _, kind := range atomic {
		atomicKinds[kind] = true
	}

	return &TreeSitterTokenizer{
		name:      name,
		parser:    parser,
		language:  language,
		normalize: normalize,
		atomic:    atomicKinds,
	}, nil
}

func (t *TreeSitterTokenizer) Tokenize(ctx context.Context, source []byte) (model.TokenSequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tree := t.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s source", t.name)
	}
	defer tree.Close()

	var tokens model.TokenSequence
	t.traverseNode(tree.RootNode(), source, &tokens)

	return tokens, nil
}

func (t *TreeSitterTokenizer) traverseNode(node *tree_sitter.Node, source []byte, tokens *model.TokenSequence) {
	if node == nil {
		return
	}

	nodeType := node.Kind()
	if node.ChildCount() == 0 || t.atomic[nodeType] {
		content := node.Utf8Text(source)

		// Skip empty tokens, whitespace terminators and comments
		if strings.TrimSpace(content) == "" || strings.HasSuffix(nodeType, "comment") {
			return
		}

		startPoint := node.StartPosition()
		*tokens = append(*tokens, model.Token{
			Type:   nodeType,
			Value:  content,
			Line:   int(startPoint.Row) + 1,
			Column: int(startPoint.Column) + 1,
		})
		return
	}

	// Recursively traverse children
	for i := uint(0); i < node.ChildCount(); i++ {
		t.traverseNode(node.Child(i), source, tokens)
	}
}

// Normalize maps identifiers and literals to placeholders and keeps every
// other token as written
func (t *TreeSitterTokenizer) Normalize(token model.Token) string {
	if placeholder, ok := t.normalize[token.Type]; ok {
		return placeholder
	}
	return token.Value
}

func (t *TreeSitterTokenizer) Language() string {
	return t.name
}

// Close releases the parser
func (t *TreeSitterTokenizer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parser.Close()
}
