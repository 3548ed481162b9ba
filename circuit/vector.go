//
// vector.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package circuit

import (
	"fmt"

	"github.com/markkurossi/graphsc/ring"
)

func (c *Circuit) addVectorGate(kind Kind, g *Gate, inputs ...[]int) (int, error) {
	n := len(inputs[0])
	return c.addVectorGateSized(kind, g, n, inputs...)
}

// addVectorGateSized is addVectorGate with an explicit output-vector
// length, for the rare gate kinds (Gather) whose output shape differs
// from its input shape.
func (c *Circuit) addVectorGateSized(kind Kind, g *Gate, outLen int, inputs ...[]int) (int, error) {
	n := len(inputs[0])
	if n == 0 {
		return 0, fmt.Errorf("%w: n=0 vectors are illegal for %s", ErrArityMismatch, kind)
	}
	for _, v := range inputs {
		if err := c.checkVector(v); err != nil {
			return 0, err
		}
		if len(v) != n {
			return 0, fmt.Errorf("%w: %s inputs have lengths %d and %d",
				ErrArityMismatch, kind, n, len(v))
		}
	}
	if outLen <= 0 {
		return 0, fmt.Errorf("%w: %s output length %d must be positive",
			ErrArityMismatch, kind, outLen)
	}
	g.ID = c.nextGateID()
	g.Kind = kind
	g.VecInputs = inputs
	g.Outs = c.newOutVector(outLen)
	c.Gates = append(c.Gates, g)
	return g.ID, nil
}

// AddShuffle appends a Shuffle gate over v, applying the composed
// permutation named by pairID (forward, or its inverse if reverse is
// set). Reusing a pairID across gates shares the same underlying
// permutation — pair-ids form a sparse namespace, not a dense array
// index.
func (c *Circuit) AddShuffle(v []int, pairID int, reverse bool) ([]int, error) {
	g := &Gate{Shuffle: ShuffleParams{PairID: pairID, Reverse: reverse}}
	id, err := c.addVectorGate(Shuffle, g, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddDoubleShuffle appends a DoubleShuffle gate over v, composing the
// previously materialised src and dst permutations into a new
// permutation identified by newID. src and dst must already have
// been used by an earlier Shuffle or DoubleShuffle gate; an
// unmaterialised source is detected at offline-evaluation time, not
// by the builder.
func (c *Circuit) AddDoubleShuffle(v []int, newID, src, dst int) ([]int, error) {
	g := &Gate{DoubleShuffle: DoubleShuffleParams{New: newID, Src: src, Dst: dst}}
	id, err := c.addVectorGate(DoubleShuffle, g, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddGenCompaction appends a GenCompaction gate over a 0/1 vector v,
// producing the stable-sort permutation that moves zeros before
// ones.
func (c *Circuit) AddGenCompaction(v []int) ([]int, error) {
	g := &Gate{}
	id, err := c.addVectorGate(GenCompaction, g, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddReveal appends a Reveal gate, reconstructing v in cleartext at
// both online parties without disclosing it to the dealer.
func (c *Circuit) AddReveal(v []int) ([]int, error) {
	g := &Gate{}
	id, err := c.addVectorGate(Reveal, g, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddFlip appends a Flip gate, locally negating v (used internally
// by EqualsZero-style constructions, and exposed here for callers
// that build their own tree-OR style layers).
func (c *Circuit) AddFlip(v []int) ([]int, error) {
	g := &Gate{}
	id, err := c.addVectorGate(Flip, g, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddCompose appends a Compose gate, composing two permutation
// vectors a and b elementwise (a applied to b).
func (c *Circuit) AddCompose(a, b []int) ([]int, error) {
	g := &Gate{}
	id, err := c.addVectorGate(Compose, g, a, b)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddReorder appends a Reorder gate, applying the revealed
// permutation perm to the shared vector v.
func (c *Circuit) AddReorder(v, perm []int) ([]int, error) {
	g := &Gate{}
	id, err := c.addVectorGate(Reorder, g, v, perm)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddReorderInverse appends a ReorderInverse gate, applying the
// inverse of the revealed permutation perm to v.
func (c *Circuit) AddReorderInverse(v, perm []int) ([]int, error) {
	g := &Gate{}
	id, err := c.addVectorGate(ReorderInverse, g, v, perm)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddConstToVec appends an AddConstToVec gate, adding the public
// constant c to every element of v. n is recorded for parity with the
// source's vector-shape parameter even though it is always len(v).
func (c *Circuit) AddConstToVec(v []int, constant ring.Ring) ([]int, error) {
	g := &Gate{N: len(v), Const: constant}
	id, err := c.addVectorGate(AddConstToVec, g, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddAddVec appends an AddVec gate, elementwise-adding two equal
// length shared vectors.
func (c *Circuit) AddAddVec(a, b []int) ([]int, error) {
	g := &Gate{}
	id, err := c.addVectorGate(AddVec, g, a, b)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddPreparePropagate appends a PreparePropagate(n) gate, staging v
// for a subsequent Propagate gate over a graph of n vertices.
func (c *Circuit) AddPreparePropagate(v []int, n int) ([]int, error) {
	g := &Gate{N: n}
	id, err := c.addVectorGate(PreparePropagate, g, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddPropagate appends a Propagate gate, the message-passing step
// over a secret-shared graph staged by PreparePropagate.
func (c *Circuit) AddPropagate(v []int) ([]int, error) {
	g := &Gate{}
	id, err := c.addVectorGate(Propagate, g, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddPrepareGather appends a PrepareGather gate, staging v for a
// subsequent Gather gate.
func (c *Circuit) AddPrepareGather(v []int) ([]int, error) {
	g := &Gate{}
	id, err := c.addVectorGate(PrepareGather, g, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}

// AddGather appends a Gather(n) gate, the reduction dual of
// PreparePropagate/Propagate, collecting per-vertex contributions
// back into an n-vertex vector. v must be a concatenation of n equal
// length segments, one per vertex; the gate sums each segment down to
// a single wire, so its output vector has length n, not len(v).
func (c *Circuit) AddGather(v []int, n int) ([]int, error) {
	if n <= 0 || len(v)%n != 0 {
		return nil, fmt.Errorf("%w: Gather(%d) is not compatible with a %d-wire input",
			ErrArityMismatch, n, len(v))
	}
	g := &Gate{N: n}
	id, err := c.addVectorGateSized(Gather, g, n, v)
	if err != nil {
		return nil, err
	}
	return c.Gates[id].Outs, nil
}
