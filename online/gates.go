//
// gates.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package online

import (
	"errors"
	"fmt"

	"github.com/markkurossi/graphsc/circuit"
	"github.com/markkurossi/graphsc/preproc"
	"github.com/markkurossi/graphsc/ring"
)

// ErrMissingRecord is returned when a gate's preprocessing record
// does not have the concrete type its kind requires; this indicates
// an offline/online circuit mismatch, never a protocol-level failure.
var ErrMissingRecord = errors.New("online: missing preprocessing record")

// ErrUnsupportedGate is returned for a gate kind the online evaluator
// does not implement.
var ErrUnsupportedGate = errors.New("online: unsupported gate kind")

// eqzWidths are the packed-word widths EqualsZero's five tree layers
// operate over, narrowing 32 bits down to 1.
var eqzWidths = [5]uint{16, 8, 4, 2, 1}

// gateCtx carries the state a gate's local (compute-and-send) phase
// produces and its integrate (compute-from-received) phase consumes.
type gateCtx struct {
	xs, ys []ring.Ring // masked values this party sent, per index
	s0     []ring.Ring // GenCompaction: the prefix-sum of f0
	perm   []ring.Ring // Shuffle/DoubleShuffle: this party's permuted send buffer
}

func (e *Evaluator) reconstructMul(x, y ring.Ring, rec *preproc.TripleRecord) ring.Ring {
	var out ring.Ring
	if e.pid == 2 {
		out = x.Mul(y)
	}
	return out.Sub(x.Mul(rec.B)).Sub(y.Mul(rec.A)).Add(rec.C)
}

func (e *Evaluator) reconstructAnd(x, y ring.Ring, rec *preproc.TripleRecord) ring.Ring {
	var out ring.Ring
	if e.pid == 2 {
		out = x.And(y)
	}
	return out.Xor(x.And(rec.B)).Xor(y.And(rec.A)).Xor(rec.C)
}

// localPhase appends g's contribution to buf and records whatever
// state integratePhase will need once the peer's bytes arrive. Only
// interactive gates do anything here.
func (e *Evaluator) localPhase(g *circuit.Gate, buf *buffers, ctx map[int]*gateCtx) error {
	switch g.Kind {
	case circuit.Mul:
		rec, ok := e.prep.Get(g.ID).(*preproc.TripleRecord)
		if !ok {
			return fmt.Errorf("%w: gate %d", ErrMissingRecord, g.ID)
		}
		x := e.shares[g.Inputs[0]].Add(rec.A)
		y := e.shares[g.Inputs[1]].Add(rec.B)
		appendRingTo(&buf.mul, x)
		appendRingTo(&buf.mul, y)
		ctx[g.ID] = &gateCtx{xs: []ring.Ring{x}, ys: []ring.Ring{y}}

	case circuit.ConvertB2A:
		rec, ok := e.prep.Get(g.ID).(*preproc.TripleRecord)
		if !ok {
			return fmt.Errorf("%w: gate %d", ErrMissingRecord, g.ID)
		}
		bit := e.shares[g.Inputs[0]]
		var xIn, yIn ring.Ring
		if e.pid == 1 {
			xIn = bit
		} else {
			yIn = bit
		}
		x := xIn.Add(rec.A)
		y := yIn.Add(rec.B)
		appendRingTo(&buf.mul, x)
		appendRingTo(&buf.mul, y)
		ctx[g.ID] = &gateCtx{xs: []ring.Ring{x}, ys: []ring.Ring{y}}

	case circuit.And:
		rec, ok := e.prep.Get(g.ID).(*preproc.TripleRecord)
		if !ok {
			return fmt.Errorf("%w: gate %d", ErrMissingRecord, g.ID)
		}
		a := e.shares[g.Inputs[0]]
		b := e.shares[g.Inputs[1]]
		x := a.Xor(rec.A)
		y := b.Xor(rec.B)
		appendRingTo(&buf.and, x)
		appendRingTo(&buf.and, y)
		ctx[g.ID] = &gateCtx{xs: []ring.Ring{x}, ys: []ring.Ring{y}}

	case circuit.EqualsZero:
		rec, ok := e.prep.Get(g.ID).(*preproc.TripleRecord)
		if !ok {
			return fmt.Errorf("%w: gate %d", ErrMissingRecord, g.ID)
		}
		xv := e.shares[g.Inputs[0]]
		if g.Level == 0 && e.pid == 2 {
			xv = xv.Neg()
		}
		width := eqzWidths[g.Level]
		a := xv.Rsh(width)
		mask := ring.Ring(uint32(1)<<width - 1)
		b := xv.And(mask)
		if e.pid == 1 {
			a = a.Not()
			b = b.Not()
		}
		x := a.Xor(rec.A)
		y := b.Xor(rec.B)
		appendRingTo(&buf.and, x)
		appendRingTo(&buf.and, y)
		ctx[g.ID] = &gateCtx{xs: []ring.Ring{x}, ys: []ring.Ring{y}}

	case circuit.GenCompaction:
		rec, ok := e.prep.Get(g.ID).(*preproc.CompactionRecord)
		if !ok {
			return fmt.Errorf("%w: gate %d", ErrMissingRecord, g.ID)
		}
		n := len(g.Outs)
		v := make([]ring.Ring, n)
		for i, w := range g.VecInputs[0] {
			v[i] = e.shares[w]
		}
		s0 := make([]ring.Ring, n)
		s1 := make([]ring.Ring, n)
		var run ring.Ring
		for i := 0; i < n; i++ {
			var f0 ring.Ring
			if e.pid == 1 {
				f0 = ring.One.Sub(v[i])
			} else {
				f0 = ring.Zero.Sub(v[i])
			}
			run = run.Add(f0)
			s0[i] = run
		}
		run = s0[n-1]
		xs := make([]ring.Ring, n)
		ys := make([]ring.Ring, n)
		for i := 0; i < n; i++ {
			run = run.Add(v[i])
			s1[i] = run
			diff := s1[i].Sub(s0[i])
			xs[i] = v[i].Add(rec.Triples[i].A)
			ys[i] = diff.Add(rec.Triples[i].B)
			appendRingTo(&buf.mul, xs[i])
			appendRingTo(&buf.mul, ys[i])
		}
		ctx[g.ID] = &gateCtx{xs: xs, ys: ys, s0: s0}

	case circuit.Shuffle, circuit.DoubleShuffle:
		rec, ok := e.prep.Get(g.ID).(*preproc.ShuffleRecord)
		if !ok {
			return fmt.Errorf("%w: gate %d", ErrMissingRecord, g.ID)
		}
		n := len(g.Outs)
		reverse := g.Kind == circuit.Shuffle && g.Shuffle.Reverse
		// The send-side permutation, followed by the peer's
		// receive-side one, composes to π0∘π1 (forward) or its inverse
		// (reverse): party 1 sends under π′0 or π0⁻¹, party 2 under π1
		// or π′1⁻¹.
		var pi []int
		var r []ring.Ring
		if e.pid == 1 {
			if reverse {
				pi = preproc.Invert(rec.Pi0)
			} else {
				pi = rec.PiP0
			}
			r = rec.R0
		} else {
			if reverse {
				pi = preproc.Invert(rec.PiP1)
			} else {
				pi = rec.Pi1
			}
			r = rec.R1
		}
		local := make([]ring.Ring, n)
		for j, w := range g.VecInputs[0] {
			local[pi[j]] = e.shares[w].Add(r[j])
		}
		for _, val := range local {
			appendRingTo(&buf.shuffle, val)
		}
		ctx[g.ID] = &gateCtx{perm: local}

	case circuit.Reveal:
		for _, w := range g.VecInputs[0] {
			appendRingTo(&buf.reveal, e.shares[w])
		}
	}
	return nil
}

// integratePhase finishes every gate in the layer: interactive gates
// combine their own masked values with the peer's, non-interactive
// gates compute directly from already-resolved shares. Both run in
// the same pass because layer order guarantees a non-interactive
// gate's inputs from this same layer were written earlier in it.
func (e *Evaluator) integratePhase(g *circuit.Gate, cur *cursors, ctx map[int]*gateCtx) error {
	switch g.Kind {
	case circuit.ArithInput, circuit.BoolInput:
		// Installed by SetInput before Run.

	case circuit.Add:
		e.shares[g.Out] = e.shares[g.Inputs[0]].Add(e.shares[g.Inputs[1]])
	case circuit.Sub:
		e.shares[g.Out] = e.shares[g.Inputs[0]].Sub(e.shares[g.Inputs[1]])
	case circuit.Xor:
		e.shares[g.Out] = e.shares[g.Inputs[0]].Xor(e.shares[g.Inputs[1]])
	case circuit.ConstAdd:
		v := e.shares[g.Inputs[0]]
		if e.pid == 1 {
			v = v.Add(g.Const)
		}
		e.shares[g.Out] = v
	case circuit.ConstMul:
		e.shares[g.Out] = e.shares[g.Inputs[0]].Mul(g.Const)

	case circuit.Mul:
		rec := e.prep.Get(g.ID).(*preproc.TripleRecord)
		c := ctx[g.ID]
		x := c.xs[0].Add(cur.nextMul())
		y := c.ys[0].Add(cur.nextMul())
		e.shares[g.Out] = e.reconstructMul(x, y, rec)

	case circuit.ConvertB2A:
		rec := e.prep.Get(g.ID).(*preproc.TripleRecord)
		c := ctx[g.ID]
		x := c.xs[0].Add(cur.nextMul())
		y := c.ys[0].Add(cur.nextMul())
		m := e.reconstructMul(x, y, rec)
		bit := e.shares[g.Inputs[0]]
		e.shares[g.Out] = bit.Sub(m.Mul(ring.Ring(2)))

	case circuit.And:
		rec := e.prep.Get(g.ID).(*preproc.TripleRecord)
		c := ctx[g.ID]
		x := c.xs[0].Xor(cur.nextAnd())
		y := c.ys[0].Xor(cur.nextAnd())
		e.shares[g.Out] = e.reconstructAnd(x, y, rec)

	case circuit.EqualsZero:
		rec := e.prep.Get(g.ID).(*preproc.TripleRecord)
		c := ctx[g.ID]
		x := c.xs[0].Xor(cur.nextAnd())
		y := c.ys[0].Xor(cur.nextAnd())
		m := e.reconstructAnd(x, y, rec)
		// Party 1 complemented both halves above, so m is a share of
		// NOR(a, b). Below the last layer party 1 alone complements m
		// back to OR(a, b) for the next layer; the last layer keeps
		// NOR, which is 1 exactly when the input word was zero, and
		// clears every bit but the LSB.
		if g.Level < 4 {
			if e.pid == 1 {
				m = m.Not()
			}
		} else {
			m = m.Lsh(31).Rsh(31)
		}
		e.shares[g.Out] = m

	case circuit.GenCompaction:
		c := ctx[g.ID]
		rec := e.prep.Get(g.ID).(*preproc.CompactionRecord)
		for i, w := range g.Outs {
			x := c.xs[i].Add(cur.nextMul())
			y := c.ys[i].Add(cur.nextMul())
			m := e.reconstructMul(x, y, &rec.Triples[i])
			e.shares[w] = c.s0[i].Add(m)
		}

	case circuit.Shuffle, circuit.DoubleShuffle:
		rec := e.prep.Get(g.ID).(*preproc.ShuffleRecord)
		n := len(g.Outs)
		received := make([]ring.Ring, n)
		for i := range received {
			received[i] = cur.nextShuffle()
		}
		reverse := g.Kind == circuit.Shuffle && g.Shuffle.Reverse
		out := make([]ring.Ring, n)
		if e.pid == 1 {
			if !reverse {
				for j := 0; j < n; j++ {
					out[rec.Pi0[j]] = received[j].Sub(rec.B0[rec.Pi0[j]])
				}
			} else {
				for j := 0; j < n; j++ {
					out[j] = received[rec.PiP0[j]].Sub(rec.B0[j])
				}
			}
		} else {
			if !reverse {
				for j := 0; j < n; j++ {
					out[rec.PiP1[j]] = received[j].Sub(rec.B1[rec.PiP1[j]])
				}
			} else {
				for j := 0; j < n; j++ {
					out[j] = received[rec.Pi1[j]].Sub(rec.B1[j])
				}
			}
		}
		for i, w := range g.Outs {
			e.shares[w] = out[i]
		}

	case circuit.Reveal:
		for i, w := range g.Outs {
			mine := e.shares[g.VecInputs[0][i]]
			theirs := cur.nextReveal()
			e.shares[w] = mine.Add(theirs)
		}

	case circuit.Flip:
		for i, w := range g.Outs {
			e.shares[w] = ring.Zero.Sub(e.shares[g.VecInputs[0][i]])
		}

	case circuit.Compose:
		// b holds 1-indexed positions (the GenCompaction convention);
		// subtract 1 to land on a 0-indexed slice offset.
		a := g.VecInputs[0]
		b := g.VecInputs[1]
		for i, w := range g.Outs {
			idx := int(e.shares[b[i]]) - 1
			e.shares[w] = e.shares[a[idx]]
		}

	case circuit.Reorder:
		v := g.VecInputs[0]
		perm := g.VecInputs[1]
		for i, w := range g.Outs {
			idx := int(e.shares[perm[i]]) - 1
			e.shares[w] = e.shares[v[idx]]
		}

	case circuit.ReorderInverse:
		v := g.VecInputs[0]
		perm := g.VecInputs[1]
		for i := range g.Outs {
			idx := int(e.shares[perm[i]]) - 1
			e.shares[g.Outs[idx]] = e.shares[v[i]]
		}

	case circuit.AddConstToVec:
		v := g.VecInputs[0]
		for i, w := range g.Outs {
			val := e.shares[v[i]]
			if e.pid == 1 {
				val = val.Add(g.Const)
			}
			e.shares[w] = val
		}

	case circuit.AddVec:
		a := g.VecInputs[0]
		b := g.VecInputs[1]
		for i, w := range g.Outs {
			e.shares[w] = e.shares[a[i]].Add(e.shares[b[i]])
		}

	case circuit.PreparePropagate, circuit.Propagate, circuit.PrepareGather:
		v := g.VecInputs[0]
		for i, w := range g.Outs {
			e.shares[w] = e.shares[v[i]]
		}

	case circuit.Gather:
		v := g.VecInputs[0]
		n := g.N
		segLen := len(v) / n
		for seg, w := range g.Outs {
			var sum ring.Ring
			for k := 0; k < segLen; k++ {
				sum = sum.Add(e.shares[v[seg*segLen+k]])
			}
			e.shares[w] = sum
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedGate, g.Kind)
	}
	return nil
}
