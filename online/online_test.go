//
// online_test.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package online_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markkurossi/graphsc/circuit"
	"github.com/markkurossi/graphsc/offline"
	"github.com/markkurossi/graphsc/online"
	"github.com/markkurossi/graphsc/p2p"
	"github.com/markkurossi/graphsc/preproc"
	"github.com/markkurossi/graphsc/prg"
	"github.com/markkurossi/graphsc/reference"
	"github.com/markkurossi/graphsc/ring"
)

// pipeConn wraps an in-memory net.Pipe as a connected pair of framed
// Conns, standing in for a dialed TCP connection between two parties.
func pipeConn() (*p2p.Conn, *p2p.Conn) {
	a, b := net.Pipe()
	return p2p.NewConn(a), p2p.NewConn(b)
}

// threePartyNetworks wires up the three in-process connections the
// dealer and the two online parties need, without going through
// NewNetwork's TCP listen/dial machinery.
func threePartyNetworks() (dealer, p1, p2 *p2p.Network) {
	d1, p1d := pipeConn()
	d2, p2d := pipeConn()
	p12, p21 := pipeConn()

	dealer = &p2p.Network{PID: 0, Conns: [p2p.NumParties]*p2p.Conn{nil, d1, d2}}
	p1 = &p2p.Network{PID: 1, Conns: [p2p.NumParties]*p2p.Conn{p1d, nil, p12}}
	p2 = &p2p.Network{PID: 2, Conns: [p2p.NumParties]*p2p.Conn{p2d, p21, nil}}
	return
}

func sharedSeeds(pid int) prg.SeedWords {
	return prg.SeedWords{
		SelfHi: uint64(pid) + 1, SelfLo: uint64(pid),
		AllHi: 7, AllLo: 8,
		P01Hi: 11, P01Lo: 22,
		P02Hi: 33, P02Lo: 44,
		P12Hi: 55, P12Lo: 66,
	}
}

// zeroShares returns a same-keyed map whose values are all zero, the
// complementary additive share for inputs "owned" entirely by the
// other online party.
func zeroShares(owner map[int]ring.Ring) map[int]ring.Ring {
	out := make(map[int]ring.Ring, len(owner))
	for w := range owner {
		out[w] = ring.Zero
	}
	return out
}

// runProtocol drives the dealer's offline phase and both online
// parties' online phase concurrently over in-memory pipes, and
// returns online party 1's reconstructed outputs (both online
// parties reconstruct identically, by the round-trip law).
func runProtocol(t *testing.T, lc *circuit.LevelOrderedCircuit, inputs map[int]map[int]ring.Ring) map[int]ring.Ring {
	t.Helper()

	nwD, nw1, nw2 := threePartyNetworks()

	poolD, err := prg.NewPool(0, sharedSeeds(0))
	require.NoError(t, err)
	pool1, err := prg.NewPool(1, sharedSeeds(1))
	require.NoError(t, err)
	pool2, err := prg.NewPool(2, sharedSeeds(2))
	require.NoError(t, err)

	type prepResult struct {
		store *preproc.Circuit
		err   error
	}
	dealerDone := make(chan prepResult, 1)
	go func() {
		store, err := offline.NewEvaluator(offline.Dealer, nwD, poolD, lc).Run()
		dealerDone <- prepResult{store, err}
	}()

	type onlineResult struct {
		outputs map[int]ring.Ring
		err     error
	}
	run := func(role offline.Role, nw *p2p.Network, pool *prg.Pool, pid int, done chan<- onlineResult) {
		store, err := offline.NewEvaluator(role, nw, pool, lc).Run()
		if err != nil {
			done <- onlineResult{nil, err}
			return
		}
		ev, err := online.NewEvaluator(role, nw, lc, store)
		if err != nil {
			done <- onlineResult{nil, err}
			return
		}
		for w, v := range inputs[pid] {
			if err := ev.SetInput(w, v); err != nil {
				done <- onlineResult{nil, err}
				return
			}
		}
		outputs, err := ev.Run()
		done <- onlineResult{outputs, err}
	}

	done1 := make(chan onlineResult, 1)
	done2 := make(chan onlineResult, 1)
	go run(offline.OnlineP1, nw1, pool1, 1, done1)
	go run(offline.OnlineP2, nw2, pool2, 2, done2)

	dealerRes := <-dealerDone
	require.NoError(t, dealerRes.err)

	res1 := <-done1
	require.NoError(t, res1.err)
	res2 := <-done2
	require.NoError(t, res2.err)
	require.Equal(t, res1.outputs, res2.outputs)

	return res1.outputs
}

// TestPrimitiveGates reproduces the worked scenario: party 2 provides
// arithmetic and boolean inputs, the circuit computes a handful of
// mixed arithmetic and boolean primitive gates.
func TestPrimitiveGates(t *testing.T) {
	c := circuit.New()
	a := c.NewInputWire(2)
	b := c.NewInputWire(2)
	cc := c.NewInputWire(2)
	d := c.NewInputWire(2)
	e := c.NewBinInputWire(2)
	f := c.NewBinInputWire(2)

	ab, err := c.AddArith(circuit.Mul, a, b)
	require.NoError(t, err)
	cd, err := c.AddArith(circuit.Add, cc, d)
	require.NoError(t, err)
	out1, err := c.AddArith(circuit.Mul, ab, cd)
	require.NoError(t, err)
	out2, err := c.AddBool(circuit.And, e, f)
	require.NoError(t, err)
	out3, err := c.AddBool(circuit.Xor, e, f)
	require.NoError(t, err)
	sumAB, err := c.AddArith(circuit.Add, a, b)
	require.NoError(t, err)
	out4, err := c.AddArith(circuit.Mul, cc, sumAB)
	require.NoError(t, err)

	require.NoError(t, c.SetAsOutput(out1))
	require.NoError(t, c.SetAsOutput(out4))
	require.NoError(t, c.SetAsBinOutput(out2))
	require.NoError(t, c.SetAsBinOutput(out3))

	owner2 := map[int]ring.Ring{
		a: 5, b: 3, cc: 8, d: 11,
		e: ring.Ring(0x00FF00F1), f: ring.Ring(0xFF1F0010),
	}
	inputs := map[int]map[int]ring.Ring{1: zeroShares(owner2), 2: owner2}

	lc := c.OrderGatesByLevel()
	require.Len(t, lc.Layers, 3)

	outputs := runProtocol(t, lc, inputs)

	expect, err := reference.Evaluate(lc, owner2)
	require.NoError(t, err)
	require.Equal(t, expect, outputs)
	require.Equal(t, ring.Ring(285), outputs[out1])
	require.Equal(t, ring.Ring(0x001F0010), outputs[out2])
	require.Equal(t, ring.Ring(0xFFE000E1), outputs[out3])
	require.Equal(t, ring.Ring(64), outputs[out4])
}

// TestEqualsZero reproduces scenario 4: five independent inputs run
// through the 5-layer EqualsZero tree and ConvertB2A.
func TestEqualsZero(t *testing.T) {
	c := circuit.New()
	values := []ring.Ring{ring.Ring(uint32(int32(-1))), 0, 1, 2, 811}

	owner2 := make(map[int]ring.Ring, len(values))
	var outs []int
	for _, v := range values {
		w := c.NewInputWire(2)
		owner2[w] = v

		cur := w
		for level := 0; level <= 4; level++ {
			var err error
			cur, err = c.AddEqualsZero(cur, level)
			require.NoError(t, err)
		}
		out, err := c.AddConvertB2A(cur)
		require.NoError(t, err)
		outs = append(outs, out)
	}
	for _, w := range outs {
		require.NoError(t, c.SetAsOutput(w))
	}

	inputs := map[int]map[int]ring.Ring{1: zeroShares(owner2), 2: owner2}
	lc := c.OrderGatesByLevel()
	require.Len(t, lc.Layers, 7)

	outputs := runProtocol(t, lc, inputs)

	expect, err := reference.Evaluate(lc, owner2)
	require.NoError(t, err)
	require.Equal(t, expect, outputs)

	want := []ring.Ring{0, 1, 0, 0, 0}
	for i, w := range outs {
		require.Equal(t, want[i], outputs[w], "value %v", values[i])
	}
}

// TestShuffleRoundTrip reproduces scenario 2: a random shuffle applied
// then inverted restores the original vector, and the same shuffle
// applied to two related vectors preserves the relation between them.
func TestShuffleRoundTrip(t *testing.T) {
	const n = 6
	c := circuit.New()

	first := make([]int, n)
	second := make([]int, n)
	third := make([]int, n)
	owner2 := make(map[int]ring.Ring)
	for i := 0; i < n; i++ {
		first[i] = c.NewInputWire(2)
		owner2[first[i]] = ring.Ring(uint32(i))
		second[i] = c.NewInputWire(2)
		owner2[second[i]] = ring.Ring(uint32(i))
		third[i] = c.NewInputWire(2)
		owner2[third[i]] = ring.Ring(uint32(2 * i))
	}

	shuffled, err := c.AddShuffle(first, 0, false)
	require.NoError(t, err)
	restored, err := c.AddShuffle(shuffled, 0, true)
	require.NoError(t, err)

	secondShuffled, err := c.AddShuffle(second, 1, false)
	require.NoError(t, err)
	thirdShuffled, err := c.AddShuffle(third, 1, false)
	require.NoError(t, err)

	for _, w := range restored {
		require.NoError(t, c.SetAsOutput(w))
	}
	for _, w := range secondShuffled {
		require.NoError(t, c.SetAsOutput(w))
	}
	for _, w := range thirdShuffled {
		require.NoError(t, c.SetAsOutput(w))
	}

	inputs := map[int]map[int]ring.Ring{1: zeroShares(owner2), 2: owner2}
	lc := c.OrderGatesByLevel()
	require.Len(t, lc.Layers, 3)

	outputs := runProtocol(t, lc, inputs)

	for i, w := range restored {
		require.Equal(t, ring.Ring(uint32(i)), outputs[w])
	}
	for i := range secondShuffled {
		require.Equal(t, outputs[secondShuffled[i]].Mul(2), outputs[thirdShuffled[i]])
	}
}

// TestGenCompaction reproduces scenario 3: the stable-sort permutation
// of a 0/1 vector, applied back to the same data via
// shuffle-reveal-reorder, yields the fully sorted vector.
func TestGenCompaction(t *testing.T) {
	pattern := []ring.Ring{1, 0, 0, 1, 1, 1, 0}
	n := len(pattern)

	c := circuit.New()
	bits := make([]int, n)
	owner2 := make(map[int]ring.Ring, n)
	for i, v := range pattern {
		bits[i] = c.NewInputWire(2)
		owner2[bits[i]] = v
	}

	perm, err := c.AddGenCompaction(bits)
	require.NoError(t, err)

	permShuffled, err := c.AddShuffle(perm, 0, false)
	require.NoError(t, err)
	dataShuffled, err := c.AddShuffle(bits, 0, false)
	require.NoError(t, err)
	revealedPerm, err := c.AddReveal(permShuffled)
	require.NoError(t, err)
	// permShuffled[j] names the sorted destination of dataShuffled[j]
	// (a source-indexed mapping), so scattering via ReorderInverse —
	// not gathering via Reorder — is what lands each element in its
	// sorted slot.
	sorted, err := c.AddReorderInverse(dataShuffled, revealedPerm)
	require.NoError(t, err)

	for _, w := range perm {
		require.NoError(t, c.SetAsOutput(w))
	}
	for _, w := range sorted {
		require.NoError(t, c.SetAsOutput(w))
	}

	inputs := map[int]map[int]ring.Ring{1: zeroShares(owner2), 2: owner2}
	lc := c.OrderGatesByLevel()
	require.Len(t, lc.Layers, 4)

	outputs := runProtocol(t, lc, inputs)

	zeros := 0
	for _, v := range pattern {
		if v == 0 {
			zeros++
		}
	}
	for i, w := range perm {
		idx := int(outputs[w])
		if pattern[i] == 0 {
			require.Less(t, idx-1, zeros)
		} else {
			require.GreaterOrEqual(t, idx-1, zeros)
		}
	}

	var gotZeros, gotOnes int
	for i, w := range sorted {
		if i < zeros {
			require.Equal(t, ring.Ring(0), outputs[w])
			gotZeros++
		} else {
			require.Equal(t, ring.Ring(1), outputs[w])
			gotOnes++
		}
	}
	require.Equal(t, zeros, gotZeros)
	require.Equal(t, n-zeros, gotOnes)
}
