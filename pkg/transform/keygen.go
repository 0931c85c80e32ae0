// Package transform builds the dimensional model from raw vendor records:
// slowly-changing dimensions, the transaction fact table, and the bridge
// tables that resolve many-to-many relationships.
package transform

import "fmt"

// KeyGen issues dense surrogate keys for one build invocation, starting at 1.
// Each builder owns its own KeyGen; generators are never shared across
// builders or reused across runs.
type KeyGen struct {
	last int64
}

// NewKeyGen returns a generator whose first key is 1.
func NewKeyGen() *KeyGen {
	return &KeyGen{}
}

// Next issues the next surrogate key. A key that fails to advance past the
// previously issued one indicates a defect in the generator itself (counter
// overflow), not bad data, so it surfaces as an error rather than a
// data-quality finding.
func (g *KeyGen) Next() (int64, error) {
	next := g.last + 1
	if next <= g.last {
		return 0, fmt.Errorf("surrogate key generator overflow after %d keys", g.last)
	}
	g.last = next
	return next, nil
}

// Issued reports how many keys have been handed out.
func (g *KeyGen) Issued() int64 {
	return g.last
}
