//
// permcache.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package preproc

import (
	"errors"
	"fmt"
)

// ErrUnmaterialisedSource is returned when a DoubleShuffle gate
// references a pair-id that has not yet been materialised by an
// earlier Shuffle or DoubleShuffle gate.
var ErrUnmaterialisedSource = errors.New("preproc: unmaterialised shuffle source")

// Bundle is the four permutations a shuffle pair-id resolves to
// (each online party's copy holds only the two it knows): π0, π1 known
// jointly by the dealer and one online party each, and π′0, π′1
// satisfying π′1∘π′0 = π0∘π1.
type Bundle struct {
	Pi0, Pi1, PiP0, PiP1 []int
}

// PermCache maps a shuffle pair-id to its Bundle, materialising
// lazily on first use. Pair-ids form a sparse namespace held in a
// map, so ids can be materialised in any order and no slots are
// reserved for ids that have not been seen.
type PermCache struct {
	bundles map[int]*Bundle
}

// NewPermCache creates an empty cache.
func NewPermCache() *PermCache {
	return &PermCache{bundles: make(map[int]*Bundle)}
}

// Lookup returns the bundle for id if it has been materialised, and
// whether it was found.
func (pc *PermCache) Lookup(id int) (*Bundle, bool) {
	b, ok := pc.bundles[id]
	if !ok || b == nil {
		return nil, false
	}
	return b, true
}

// Materialise records the bundle for id, the first time id is seen.
// It is an error to materialise the same id twice.
func (pc *PermCache) Materialise(id int, b *Bundle) error {
	if existing, ok := pc.bundles[id]; ok && existing != nil {
		return fmt.Errorf("preproc: pair-id %d already materialised", id)
	}
	pc.bundles[id] = b
	return nil
}

// Require returns the bundle for id or ErrUnmaterialisedSource if id
// has not yet been materialised; used by DoubleShuffle gates to
// resolve their src/dst references.
func (pc *PermCache) Require(id int) (*Bundle, error) {
	b, ok := pc.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: pair-id %d", ErrUnmaterialisedSource, id)
	}
	return b, nil
}
