//
// online.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

// Package online implements the online evaluator: given a level
// ordered circuit and the preprocessing store the offline evaluator
// produced, it runs one network round per layer between parties 1
// and 2, reconstructing the circuit's output wires in cleartext at
// the end. Party 0 takes no part in this phase.
package online

import (
	"errors"
	"fmt"

	"github.com/markkurossi/graphsc/circuit"
	"github.com/markkurossi/graphsc/offline"
	"github.com/markkurossi/graphsc/p2p"
	"github.com/markkurossi/graphsc/preproc"
	"github.com/markkurossi/graphsc/ring"
)

// State is the online evaluator's lifecycle stage.
type State int

// The linear state sequence an Evaluator passes through.
const (
	Constructed State = iota
	InputsSet
	Evaluating
	OutputsReconstructed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case InputsSet:
		return "inputs-set"
	case Evaluating:
		return "evaluating"
	case OutputsReconstructed:
		return "outputs-reconstructed"
	default:
		return "unknown"
	}
}

// ErrWrongRole is returned when an online Evaluator is constructed
// for the dealer, which holds no online shares.
var ErrWrongRole = errors.New("online: dealer takes no part in the online phase")

// ErrInvalidState is returned when a call is made out of the linear
// state sequence.
var ErrInvalidState = errors.New("online: invalid state transition")

// Evaluator runs the online phase for one of the two online parties.
type Evaluator struct {
	Role   offline.Role
	pid    int
	peer   *p2p.Conn
	lc     *circuit.LevelOrderedCircuit
	prep   *preproc.Circuit
	shares []ring.Ring
	state  State
}

// NewEvaluator constructs the online evaluator for role over lc,
// consuming the preprocessing records prep. role must be
// offline.OnlineP1 or offline.OnlineP2.
func NewEvaluator(role offline.Role, nw *p2p.Network, lc *circuit.LevelOrderedCircuit, prep *preproc.Circuit) (*Evaluator, error) {
	var pid int
	switch role {
	case offline.OnlineP1:
		pid = 1
	case offline.OnlineP2:
		pid = 2
	default:
		return nil, fmt.Errorf("%w: role %s", ErrWrongRole, role)
	}
	return &Evaluator{
		Role:   role,
		pid:    pid,
		peer:   nw.Conns[3-pid],
		lc:     lc,
		prep:   prep,
		shares: make([]ring.Ring, lc.NumWires),
		state:  Constructed,
	}, nil
}

// SetInput installs this party's share of input wire w. Callers
// derive shares out of band before the protocol starts.
func (e *Evaluator) SetInput(w int, share ring.Ring) error {
	if e.state != Constructed && e.state != InputsSet {
		return fmt.Errorf("%w: SetInput in state %s", ErrInvalidState, e.state)
	}
	if w < 0 || w >= len(e.shares) {
		return fmt.Errorf("online: invalid wire %d", w)
	}
	e.shares[w] = share
	e.state = InputsSet
	return nil
}

// Run evaluates every layer of the circuit in order, one network
// round per layer, and returns the reconstructed cleartext value of
// every output wire.
func (e *Evaluator) Run() (map[int]ring.Ring, error) {
	if e.state != InputsSet && e.state != Constructed {
		return nil, fmt.Errorf("%w: Run in state %s", ErrInvalidState, e.state)
	}
	e.state = Evaluating

	for _, layer := range e.lc.Layers {
		if err := e.evalLayer(layer); err != nil {
			return nil, err
		}
	}

	outputs, err := e.reconstructOutputs()
	if err != nil {
		return nil, err
	}
	e.state = OutputsReconstructed
	return outputs, nil
}

func (e *Evaluator) evalLayer(layer []*circuit.Gate) error {
	var local buffers
	ctx := make(map[int]*gateCtx)

	for _, g := range layer {
		if !g.Interactive() {
			continue
		}
		if err := e.localPhase(g, &local, ctx); err != nil {
			return err
		}
	}

	sendBuf := local.concat()
	recvBuf := make([]byte, len(sendBuf))

	// Send and receive must run concurrently: on a synchronous
	// transport Flush blocks until the peer reads, and both online
	// parties execute this same symmetric round, so sending to
	// completion before receiving would deadlock them against each
	// other.
	sendErr := make(chan error, 1)
	go func() {
		if len(sendBuf) == 0 {
			sendErr <- nil
			return
		}
		if err := e.sendSegmented(sendBuf); err != nil {
			sendErr <- err
			return
		}
		sendErr <- e.peer.Flush()
	}()

	if len(recvBuf) > 0 {
		if err := e.receiveSegmented(recvBuf); err != nil {
			<-sendErr
			return err
		}
	}
	if err := <-sendErr; err != nil {
		return err
	}
	cur := newCursors(recvBuf, &local)

	for _, g := range layer {
		if err := e.integratePhase(g, cur, ctx); err != nil {
			return fmt.Errorf("online: gate %d (%s): %w", g.ID, g.Kind, err)
		}
	}
	return nil
}

func (e *Evaluator) sendSegmented(data []byte) error {
	return e.peer.SendSegmented(data, 4)
}

func (e *Evaluator) receiveSegmented(into []byte) error {
	return e.peer.ReceiveSegmented(into, 4)
}

func (e *Evaluator) reconstructOutputs() (map[int]ring.Ring, error) {
	outs := e.lc.Outputs
	mine := make([]ring.Ring, len(outs))
	var buf []byte
	for i, ow := range outs {
		mine[i] = e.shares[ow.Wire]
		appendRingTo(&buf, mine[i])
	}

	sendErr := make(chan error, 1)
	go func() {
		if err := e.peer.Send(buf); err != nil {
			sendErr <- err
			return
		}
		sendErr <- e.peer.Flush()
	}()

	recv := make([]byte, len(buf))
	if err := e.peer.Receive(recv); err != nil {
		<-sendErr
		return nil, err
	}
	if err := <-sendErr; err != nil {
		return nil, err
	}
	cur := newByteCursor(recv)

	result := make(map[int]ring.Ring, len(outs))
	for i, ow := range outs {
		theirs := cur.next()
		if ow.Bool {
			result[ow.Wire] = mine[i].Xor(theirs)
		} else {
			result[ow.Wire] = mine[i].Add(theirs)
		}
	}
	return result, nil
}
