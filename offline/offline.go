//
// offline.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package offline

import (
	"fmt"

	"github.com/markkurossi/graphsc/circuit"
	"github.com/markkurossi/graphsc/p2p"
	"github.com/markkurossi/graphsc/prg"
	"github.com/markkurossi/graphsc/preproc"
)

// Evaluator runs the preprocessing phase: it walks a level-ordered
// circuit once, gate by gate in layer order, and produces this
// party's preproc.Circuit of correlated-randomness records. The
// dealer accumulates every online party's share into one buffer per
// destination and ships each in a single batched, length-framed
// message after the walk completes; the online parties block on
// that one message up front and then replay the identical
// gate-order walk purely from their PRG streams and the bytes they
// received.
type Evaluator struct {
	Role Role
	nw   *p2p.Network
	pool *prg.Pool
	lc   *circuit.LevelOrderedCircuit
	cache *preproc.PermCache
}

// NewEvaluator constructs the preprocessing evaluator for one party.
func NewEvaluator(role Role, nw *p2p.Network, pool *prg.Pool, lc *circuit.LevelOrderedCircuit) *Evaluator {
	return &Evaluator{
		Role:  role,
		nw:    nw,
		pool:  pool,
		lc:    lc,
		cache: preproc.NewPermCache(),
	}
}

// Run executes the preprocessing phase and returns this party's
// preproc.Circuit, one record per gate id in e.lc.
func (e *Evaluator) Run() (*preproc.Circuit, error) {
	store := preproc.NewCircuit(e.lc.NumGates)

	var toP1, toP2 []byte
	var fromDealerP1, fromDealerP2 *byteCursor

	if e.Role != Dealer {
		conn := e.nw.Conns[0]
		buf, err := conn.ReceiveData()
		if err != nil {
			return nil, err
		}
		if e.Role == OnlineP1 {
			fromDealerP1 = newByteCursor(buf)
		} else {
			fromDealerP2 = newByteCursor(buf)
		}
	}

	for _, layer := range e.lc.Layers {
		for _, g := range layer {
			rec, err := e.genGate(g, &toP1, &toP2, fromDealerP1, fromDealerP2)
			if err != nil {
				return nil, fmt.Errorf("offline: gate %d (%s): %w", g.ID, g.Kind, err)
			}
			store.Set(g.ID, rec)
		}
	}

	if e.Role == Dealer {
		if err := e.nw.Conns[1].SendData(toP1); err != nil {
			return nil, err
		}
		if err := e.nw.Conns[1].Flush(); err != nil {
			return nil, err
		}
		if err := e.nw.Conns[2].SendData(toP2); err != nil {
			return nil, err
		}
		if err := e.nw.Conns[2].Flush(); err != nil {
			return nil, err
		}
	}

	return store, nil
}

func (e *Evaluator) genGate(g *circuit.Gate, toP1, toP2 *[]byte,
	fromDealerP1, fromDealerP2 *byteCursor) (preproc.Record, error) {

	switch g.Kind {
	case circuit.ArithInput, circuit.BoolInput:
		return &preproc.InputRecord{PID: g.PID}, nil

	case circuit.Mul, circuit.ConvertB2A:
		rec := genTriple(e.Role, e.pool, false, toP2, fromDealerP2)
		return &rec, nil

	case circuit.And, circuit.EqualsZero:
		rec := genTriple(e.Role, e.pool, true, toP2, fromDealerP2)
		return &rec, nil

	case circuit.GenCompaction:
		n := len(g.Outs)
		rec := genCompactionTriples(e.Role, e.pool, n, toP2, fromDealerP2)
		return &rec, nil

	case circuit.Shuffle:
		n := len(g.Outs)
		rec, err := genShuffle(e.Role, e.pool, n, g.Shuffle.PairID, g.Shuffle.Reverse,
			e.cache, toP1, toP2, fromDealerP1, fromDealerP2)
		if err != nil {
			return nil, err
		}
		return &rec, nil

	case circuit.DoubleShuffle:
		n := len(g.Outs)
		rec, err := genDoubleShuffle(e.Role, e.pool, n, g.DoubleShuffle.New,
			g.DoubleShuffle.Src, g.DoubleShuffle.Dst, e.cache, toP1, toP2,
			fromDealerP1, fromDealerP2)
		if err != nil {
			return nil, err
		}
		return &rec, nil

	default:
		// Non-interactive gates and Reveal need no correlated
		// randomness; the online phase alone evaluates them.
		return preproc.NoneRecord{}, nil
	}
}
