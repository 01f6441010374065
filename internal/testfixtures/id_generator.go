package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator yields predictable prefix-N identifiers so tests can assert on
// the ids a service hands out.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    uint64
}

// NewIDGenerator builds a generator for the given prefix, defaulting to "id"
// when none is supplied.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// NextFunc adapts the generator to the id-func shape services expect. A nil
// generator degrades to empty identifiers.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// SetPrefix replaces the prefix used for subsequent identifiers.
func (g *IDGenerator) SetPrefix(prefix string) {
	g.mu.Lock()
	g.prefix = prefix
	g.mu.Unlock()
}

// SetCounter rewinds or fast-forwards the sequence.
func (g *IDGenerator) SetCounter(seq uint64) {
	g.mu.Lock()
	g.seq = seq
	g.mu.Unlock()
}
