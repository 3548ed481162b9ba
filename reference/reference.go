//
// reference.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

// Package reference implements a single-party, cleartext evaluator
// for the same circuit graph the three-party protocol evaluates. It
// exists only to serve as a test oracle: a circuit's three-party
// result, once reconstructed, must equal this package's direct
// evaluation of the same gates over the same cleartext inputs.
package reference

import (
	"errors"
	"fmt"

	"github.com/markkurossi/graphsc/circuit"
	"github.com/markkurossi/graphsc/ring"
)

// ErrMissingInput is returned when Evaluate is called without a value
// for one of the circuit's input wires.
var ErrMissingInput = errors.New("reference: missing input")

// ErrUnsupportedGate mirrors online.ErrUnsupportedGate for gate kinds
// this evaluator does not implement.
var ErrUnsupportedGate = errors.New("reference: unsupported gate kind")

var eqzWidths = [5]uint{16, 8, 4, 2, 1}

// Evaluate walks lc in layer order, computing every wire's cleartext
// value directly, and returns the cleartext value of every declared
// output wire.
func Evaluate(lc *circuit.LevelOrderedCircuit, inputs map[int]ring.Ring) (map[int]ring.Ring, error) {
	wires := make([]ring.Ring, lc.NumWires)

	for _, layer := range lc.Layers {
		for _, g := range layer {
			if err := evalGate(g, wires, inputs); err != nil {
				return nil, fmt.Errorf("reference: gate %d (%s): %w", g.ID, g.Kind, err)
			}
		}
	}

	out := make(map[int]ring.Ring, len(lc.Outputs))
	for _, ow := range lc.Outputs {
		out[ow.Wire] = wires[ow.Wire]
	}
	return out, nil
}

func or(a, b ring.Ring) ring.Ring {
	return a.Not().And(b.Not()).Not()
}

func evalGate(g *circuit.Gate, wires []ring.Ring, inputs map[int]ring.Ring) error {
	switch g.Kind {
	case circuit.ArithInput, circuit.BoolInput:
		v, ok := inputs[g.Out]
		if !ok {
			return fmt.Errorf("%w: wire %d", ErrMissingInput, g.Out)
		}
		wires[g.Out] = v

	case circuit.Add:
		wires[g.Out] = wires[g.Inputs[0]].Add(wires[g.Inputs[1]])
	case circuit.Sub:
		wires[g.Out] = wires[g.Inputs[0]].Sub(wires[g.Inputs[1]])
	case circuit.Mul:
		wires[g.Out] = wires[g.Inputs[0]].Mul(wires[g.Inputs[1]])
	case circuit.Xor:
		wires[g.Out] = wires[g.Inputs[0]].Xor(wires[g.Inputs[1]])
	case circuit.And:
		wires[g.Out] = wires[g.Inputs[0]].And(wires[g.Inputs[1]])
	case circuit.ConstAdd:
		wires[g.Out] = wires[g.Inputs[0]].ConstAdd(g.Const)
	case circuit.ConstMul:
		wires[g.Out] = wires[g.Inputs[0]].ConstMul(g.Const)
	case circuit.ConvertB2A:
		wires[g.Out] = wires[g.Inputs[0]]

	case circuit.EqualsZero:
		v := wires[g.Inputs[0]]
		width := eqzWidths[g.Level]
		mask := ring.Ring((uint64(1) << width) - 1)
		a := v.Rsh(width)
		b := v.And(mask)
		if g.Level == 4 {
			wires[g.Out] = or(a, b).Not().And(ring.One)
		} else {
			wires[g.Out] = or(a, b)
		}

	case circuit.Shuffle, circuit.DoubleShuffle, circuit.Reveal:
		// These gates are oblivious data-movement primitives: the
		// set of plaintext values is preserved, only visibility and
		// (for Shuffle/DoubleShuffle) order change under a
		// permutation this evaluator has no reason to reproduce.
		// Treated as identity so downstream consumers that also
		// read the same wires in this evaluator see the same
		// values; tests that need to verify obliviousness compare
		// the real evaluator's behaviour directly, not through this
		// oracle.
		for i, w := range g.Outs {
			wires[w] = wires[g.VecInputs[0][i]]
		}

	case circuit.GenCompaction:
		// 1-indexed stable-partition position: the i-th zero (in
		// input order) lands at position i among the zeros, and the
		// j-th one lands at (zeros + j) among the ones, counting from
		// 1 to match the Beaver-multiplication result the online
		// evaluator produces (an inclusive running count, never 0).
		v := g.VecInputs[0]
		n := len(v)
		zeros := 0
		for _, w := range v {
			if wires[w] == 0 {
				zeros++
			}
		}
		zi, oi := 0, zeros
		for i := 0; i < n; i++ {
			if wires[v[i]] == 0 {
				zi++
				wires[g.Outs[i]] = ring.Ring(uint32(zi))
			} else {
				oi++
				wires[g.Outs[i]] = ring.Ring(uint32(oi))
			}
		}

	case circuit.Flip:
		for i, w := range g.Outs {
			wires[w] = wires[g.VecInputs[0][i]].Not()
		}

	case circuit.Compose:
		// b holds 1-indexed positions (the GenCompaction convention);
		// subtract 1 to land on a 0-indexed slice offset.
		a, b := g.VecInputs[0], g.VecInputs[1]
		for i, w := range g.Outs {
			idx := uint32(wires[b[i]]) - 1
			wires[w] = wires[a[idx]]
		}

	case circuit.Reorder:
		v, perm := g.VecInputs[0], g.VecInputs[1]
		for i, w := range g.Outs {
			idx := uint32(wires[perm[i]]) - 1
			wires[w] = wires[v[idx]]
		}

	case circuit.ReorderInverse:
		v, perm := g.VecInputs[0], g.VecInputs[1]
		out := make([]ring.Ring, len(g.Outs))
		for i := range v {
			idx := uint32(wires[perm[i]]) - 1
			out[idx] = wires[v[i]]
		}
		for i, w := range g.Outs {
			wires[w] = out[i]
		}

	case circuit.AddConstToVec:
		for i, w := range g.Outs {
			wires[w] = wires[g.VecInputs[0][i]].ConstAdd(g.Const)
		}

	case circuit.AddVec:
		a, b := g.VecInputs[0], g.VecInputs[1]
		for i, w := range g.Outs {
			wires[w] = wires[a[i]].Add(wires[b[i]])
		}

	case circuit.PreparePropagate, circuit.Propagate, circuit.PrepareGather:
		for i, w := range g.Outs {
			wires[w] = wires[g.VecInputs[0][i]]
		}

	case circuit.Gather:
		v := g.VecInputs[0]
		n := g.N
		width := len(v) / n
		for j := 0; j < n; j++ {
			var sum ring.Ring
			for k := 0; k < width; k++ {
				sum = sum.Add(wires[v[j*width+k]])
			}
			wires[g.Outs[j]] = sum
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedGate, g.Kind)
	}
	return nil
}
