package ngram

import (
	model "ngramlm/internal/model/ngram"
)

// CountTable maps token tuples to occurrence counts. Lookups of absent tuples
// return 0.
type CountTable interface {
	// Increment adds one occurrence of the tuple
	Increment(tokens model.NGram)

	// Add adds count occurrences of the tuple
	Add(tokens model.NGram, count int64)

	// Count returns the number of occurrences of the tuple, 0 if never added
	Count(tokens []string) int64

	// Each calls fn once for every stored tuple
	Each(fn func(tokens model.NGram, count int64))

	// Len returns the number of distinct stored tuples
	Len() int

	// Name identifies the implementation in stats and persisted blobs
	Name() string
}

// mapCountTable is a CountTable backed by a Go map keyed by NGram.Key
type mapCountTable struct {
	counts map[string]int64
}

// NewMapCountTable creates an empty map-backed count table
func NewMapCountTable() CountTable {
	return &mapCountTable{counts: make(map[string]int64)}
}

func (t *mapCountTable) Increment(tokens model.NGram) {
	t.counts[tokens.Key()]++
}

func (t *mapCountTable) Add(tokens model.NGram, count int64) {
	if count <= 0 {
		return
	}
	t.counts[tokens.Key()] += count
}

func (t *mapCountTable) Count(tokens []string) int64 {
	return t.counts[model.NGram(tokens).Key()]
}

func (t *mapCountTable) Each(fn func(tokens model.NGram, count int64)) {
	for key, count := range t.counts {
		fn(model.ParseKey(key), count)
	}
}

func (t *mapCountTable) Len() int {
	return len(t.counts)
}

func (t *mapCountTable) Name() string {
	return "map"
}
