package ngram

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	model "ngramlm/internal/model/ngram"
)

// TrieNode represents a node in the n-gram trie
type TrieNode struct {
	tokenID  uint32               // Token ID at this node
	count    int64                // Frequency of the tuple ending at this node
	children map[uint32]*TrieNode // Children indexed by token ID
}

// NewTrieNode creates a new trie node
func NewTrieNode(tokenID uint32) *TrieNode {
	return &TrieNode{
		tokenID:  tokenID,
		children: make(map[uint32]*TrieNode),
	}
}

// NGramTrie stores token tuples in a trie with string interning. The root node
// holds the count of the empty tuple, which unigram models use as their context.
//
// A bloom filter remembers every inserted key so lookups of tuples that were
// never inserted return without touching the trie. Bloom filters have no false
// negatives, so counts stay exact.
type NGramTrie struct {
	root        *TrieNode          // Root of the trie
	tokenToID   map[string]uint32  // String to token ID mapping
	idToToken   []string           // Token ID to string reverse mapping
	nextID      uint32             // Next available token ID
	entries     int                // Number of distinct tuples with a non-zero count
	bloomFilter *bloom.BloomFilter // Filter over inserted keys
	mu          sync.RWMutex       // Protects all data structures
}

// NewTrieCountTable creates a trie-backed CountTable sized for expectedItems
// distinct tuples at the given bloom false positive rate
func NewTrieCountTable(expectedItems uint, falsePositiveRate float64) *NGramTrie {
	if expectedItems == 0 {
		expectedItems = 100000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	return newTrieWithFilter(bloom.NewWithEstimates(expectedItems, falsePositiveRate))
}

func newTrieWithFilter(filter *bloom.BloomFilter) *NGramTrie {
	return &NGramTrie{
		root:        NewTrieNode(0), // Root has ID 0 (sentinel)
		tokenToID:   make(map[string]uint32),
		idToToken:   []string{"<ROOT>"}, // ID 0 is reserved for root
		nextID:      1,
		bloomFilter: filter,
	}
}

// FilterParams returns the bloom filter's size in bits and its number of hash
// functions, so a reloaded trie can be given an identical filter
func (t *NGramTrie) FilterParams() (bits, hashes uint) {
	return t.bloomFilter.Cap(), t.bloomFilter.K()
}

// internToken converts a token string to its ID, creating a new ID if needed
func (t *NGramTrie) internToken(token string) uint32 {
	if id, exists := t.tokenToID[token]; exists {
		return id
	}

	id := t.nextID
	t.nextID++
	t.tokenToID[token] = id
	t.idToToken = append(t.idToToken, token)
	return id
}

// getToken returns the token string for a given ID
func (t *NGramTrie) getToken(id uint32) string {
	if int(id) < len(t.idToToken) {
		return t.idToToken[id]
	}
	return ""
}

// Increment adds one occurrence of the tuple
func (t *NGramTrie) Increment(tokens model.NGram) {
	t.Add(tokens, 1)
}

// Add adds count occurrences of the tuple
func (t *NGramTrie) Add(tokens model.NGram, count int64) {
	if count <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.bloomFilter.AddString(tokens.Key())

	current := t.root
	for _, token := range tokens {
		tokenID := t.internToken(token)
		child, exists := current.children[tokenID]
		if !exists {
			child = NewTrieNode(tokenID)
			current.children[tokenID] = child
		}
		current = child
	}

	if current.count == 0 {
		t.entries++
	}
	current.count += count
}

// Count returns the frequency of a tuple
func (t *NGramTrie) Count(tokens []string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.bloomFilter.TestString(model.NGram(tokens).Key()) {
		return 0
	}

	current := t.root
	for _, token := range tokens {
		id, exists := t.tokenToID[token]
		if !exists {
			return 0
		}
		child, exists := current.children[id]
		if !exists {
			return 0
		}
		current = child
	}

	return current.count
}

// Each calls fn for every stored tuple
func (t *NGramTrie) Each(fn func(tokens model.NGram, count int64)) {
	for _, entry := range t.GetAllWithPrefix(nil) {
		fn(entry.Tokens, entry.Count)
	}
}

// Len returns the number of distinct stored tuples
func (t *NGramTrie) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries
}

// Name identifies the implementation
func (t *NGramTrie) Name() string {
	return "trie"
}

// GetAllWithPrefix returns all stored tuples starting with a given prefix,
// including the prefix itself when it has a count
func (t *NGramTrie) GetAllWithPrefix(prefix []string) []NGramWithCount {
	t.mu.RLock()
	defer t.mu.RUnlock()

	current := t.root
	prefixIDs := make([]uint32, len(prefix))

	for i, token := range prefix {
		id, exists := t.tokenToID[token]
		if !exists {
			return nil
		}
		prefixIDs[i] = id

		child, exists := current.children[id]
		if !exists {
			return nil
		}
		current = child
	}

	var results []NGramWithCount
	t.collectNGrams(current, prefixIDs, &results)
	return results
}

// collectNGrams recursively collects all tuples below a node
func (t *NGramTrie) collectNGrams(node *TrieNode, path []uint32, results *[]NGramWithCount) {
	if node.count > 0 {
		tokens := make(model.NGram, len(path))
		for i, id := range path {
			tokens[i] = t.getToken(id)
		}
		*results = append(*results, NGramWithCount{
			Tokens: tokens,
			Count:  node.count,
		})
	}

	for tokenID, child := range node.children {
		childPath := make([]uint32, len(path)+1)
		copy(childPath, path)
		childPath[len(path)] = tokenID
		t.collectNGrams(child, childPath, results)
	}
}

// MemoryStats returns memory usage statistics
func (t *NGramTrie) MemoryStats() TrieMemoryStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var nodeCount int64
	t.countNodes(t.root, &nodeCount)

	vocabMemory := int64(0)
	for token := range t.tokenToID {
		vocabMemory += int64(len(token)) + 16 // String header + content
	}

	return TrieMemoryStats{
		VocabularySize:   len(t.tokenToID),
		TotalNodes:       nodeCount,
		TotalEntries:     int64(t.entries),
		VocabMemoryBytes: vocabMemory,
		NodeMemoryBytes:  nodeCount * 56, // Approx: tokenID(4) + count(8) + map(24) + pointers(20)
		BloomBytes:       int64(t.bloomFilter.Cap() / 8),
	}
}

// countNodes recursively counts all nodes in the trie
func (t *NGramTrie) countNodes(node *TrieNode, count *int64) {
	*count++
	for _, child := range node.children {
		t.countNodes(child, count)
	}
}

// NGramWithCount represents a tuple with its frequency
type NGramWithCount struct {
	Tokens model.NGram
	Count  int64
}

// TrieMemoryStats contains memory usage statistics
type TrieMemoryStats struct {
	VocabularySize   int   `json:"vocabulary_size"`
	TotalNodes       int64 `json:"total_nodes"`
	TotalEntries     int64 `json:"total_entries"`
	VocabMemoryBytes int64 `json:"vocab_memory_bytes"`
	NodeMemoryBytes  int64 `json:"node_memory_bytes"`
	BloomBytes       int64 `json:"bloom_bytes"`
}

// TotalMemoryBytes returns the estimated total memory usage
func (s TrieMemoryStats) TotalMemoryBytes() int64 {
	return s.VocabMemoryBytes + s.NodeMemoryBytes + s.BloomBytes
}
