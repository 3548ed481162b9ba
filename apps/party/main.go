//
// main.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

// Command party drives one process's role in the three-party
// protocol: it parses this process's configuration, opens its
// connections to the other two parties, builds a circuit, runs the
// preprocessing phase followed by the online phase, and reports the
// reconstructed outputs.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/markkurossi/graphsc/circuit"
	"github.com/markkurossi/graphsc/config"
	"github.com/markkurossi/graphsc/offline"
	"github.com/markkurossi/graphsc/online"
	"github.com/markkurossi/graphsc/p2p"
	"github.com/markkurossi/graphsc/prg"
	"github.com/markkurossi/graphsc/ring"
)

func main() {
	log.SetFlags(0)

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	demo := fs.String("demo", "primitives", "demo circuit: primitives, equalszero")

	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fail(err)
	}

	c, inputs, err := buildDemo(*demo)
	if err != nil {
		fail(err)
	}
	lc := c.OrderGatesByLevel()

	role, err := offline.RoleOf(cfg.PID)
	if err != nil {
		fail(err)
	}

	nw, err := p2p.NewNetwork(cfg.PID, cfg.Topology, cfg.TLS)
	if err != nil {
		fail(err)
	}

	pool, err := prg.NewPool(cfg.PID, cfg.Seeds)
	if err != nil {
		fail(err)
	}

	off := offline.NewEvaluator(role, nw, pool, lc)
	prep, err := off.Run()
	if err != nil {
		fail(err)
	}

	if role == offline.Dealer {
		log.Printf("dealer: preprocessing complete for %d gates", lc.NumGates)
		return
	}

	ev, err := online.NewEvaluator(role, nw, lc, prep)
	if err != nil {
		fail(err)
	}
	for w, v := range inputs[cfg.PID] {
		if err := ev.SetInput(w, v); err != nil {
			fail(err)
		}
	}

	outputs, err := ev.Run()
	if err != nil {
		fail(err)
	}

	for _, ow := range lc.Outputs {
		fmt.Printf("wire %d = %s\n", ow.Wire, outputs[ow.Wire])
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// buildDemo constructs one of spec.md §8's worked end-to-end
// scenarios and the per-online-party input shares for it. Every
// demo input is, for simplicity, owned entirely by one online party
// (that party's share equals the plaintext value, the other party's
// share is zero) — a driver-level convenience, not a secure
// input-distribution protocol; see DESIGN.md.
func buildDemo(name string) (*circuit.Circuit, map[int]map[int]ring.Ring, error) {
	switch name {
	case "primitives":
		return buildPrimitivesDemo()
	case "equalszero":
		return buildEqualsZeroDemo()
	default:
		return nil, nil, fmt.Errorf("config: unknown demo %q", name)
	}
}

// buildPrimitivesDemo reproduces scenario 1: party 2 provides
// a=5, b=3, c=8, d=11, e=0x00FF00F1, f=0xFF1F0010, and the circuit
// computes (a*b)*(c+d), e&f, e^f, c*(a+b).
func buildPrimitivesDemo() (*circuit.Circuit, map[int]map[int]ring.Ring, error) {
	c := circuit.New()

	a := c.NewInputWire(2)
	b := c.NewInputWire(2)
	cc := c.NewInputWire(2)
	d := c.NewInputWire(2)
	e := c.NewBinInputWire(2)
	f := c.NewBinInputWire(2)

	ab, err := c.AddArith(circuit.Mul, a, b)
	if err != nil {
		return nil, nil, err
	}
	cd, err := c.AddArith(circuit.Add, cc, d)
	if err != nil {
		return nil, nil, err
	}
	out1, err := c.AddArith(circuit.Mul, ab, cd)
	if err != nil {
		return nil, nil, err
	}
	out2, err := c.AddBool(circuit.And, e, f)
	if err != nil {
		return nil, nil, err
	}
	out3, err := c.AddBool(circuit.Xor, e, f)
	if err != nil {
		return nil, nil, err
	}
	sumAB, err := c.AddArith(circuit.Add, a, b)
	if err != nil {
		return nil, nil, err
	}
	out4, err := c.AddArith(circuit.Mul, cc, sumAB)
	if err != nil {
		return nil, nil, err
	}

	for _, w := range []int{out1, out4} {
		if err := c.SetAsOutput(w); err != nil {
			return nil, nil, err
		}
	}
	for _, w := range []int{out2, out3} {
		if err := c.SetAsBinOutput(w); err != nil {
			return nil, nil, err
		}
	}

	owner2 := map[int]ring.Ring{
		a: 5, b: 3, cc: 8, d: 11,
		e: ring.Ring(0x00FF00F1), f: ring.Ring(0xFF1F0010),
	}
	inputs := map[int]map[int]ring.Ring{
		1: zeroShares(owner2),
		2: owner2,
	}
	return c, inputs, nil
}

// buildEqualsZeroDemo reproduces scenario 4: party 2 provides
// {-1, 0, 1, 2, 811}, the circuit computes EqualsZero then
// ConvertB2A on each, independently.
func buildEqualsZeroDemo() (*circuit.Circuit, map[int]map[int]ring.Ring, error) {
	c := circuit.New()
	values := []ring.Ring{ring.Ring(uint32(int32(-1))), 0, 1, 2, 811}

	owner2 := make(map[int]ring.Ring, len(values))
	var outs []int
	for _, v := range values {
		w := c.NewInputWire(2)
		owner2[w] = v

		cur := w
		var err error
		for level := 0; level <= 4; level++ {
			cur, err = c.AddEqualsZero(cur, level)
			if err != nil {
				return nil, nil, err
			}
		}
		out, err := c.AddConvertB2A(cur)
		if err != nil {
			return nil, nil, err
		}
		outs = append(outs, out)
	}
	for _, w := range outs {
		if err := c.SetAsOutput(w); err != nil {
			return nil, nil, err
		}
	}

	inputs := map[int]map[int]ring.Ring{
		1: zeroShares(owner2),
		2: owner2,
	}
	return c, inputs, nil
}

func zeroShares(owner map[int]ring.Ring) map[int]ring.Ring {
	out := make(map[int]ring.Ring, len(owner))
	for w := range owner {
		out[w] = ring.Zero
	}
	return out
}
