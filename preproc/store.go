//
// store.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

// Package preproc defines the correlated-randomness records the
// offline evaluator produces and the online evaluator consumes, one
// per gate id, plus the shuffle permutation cache that lets a
// reused pair-id resolve to the same underlying permutation. It
// expresses the original GraphSC engine's polymorphic PreprocGate
// hierarchy (preproc.h) as a small tagged union, idiomatic in Go in
// place of virtual dispatch.
package preproc

import "github.com/markkurossi/graphsc/ring"

// Record is the correlated-randomness entry for one gate. The
// concrete type identifies which fields are meaningful; see
// InputRecord, TripleRecord, ShuffleRecord and CompactionRecord.
// Non-interactive gates and Reveal carry no correlation and are
// represented by a NoneRecord sentinel.
type Record interface {
	isRecord()
}

// NoneRecord is the sentinel preprocessing record for gates that
// need no correlated randomness (all non-interactive kinds, and
// Reveal).
type NoneRecord struct{}

func (NoneRecord) isRecord() {}

// InputRecord names the party that owns an ArithInput or BoolInput
// wire.
type InputRecord struct {
	PID int
}

func (*InputRecord) isRecord() {}

// TripleRecord is this party's view of a Beaver triple (a, b, c) with
// c = a*b (arithmetic) or c = a AND b (boolean). At the dealer (pid
// 0) the fields hold the full cleartext triple; at an online party
// they hold that party's additive (or xor, for boolean gates) share.
// Bool reports whether this triple belongs to a boolean gate (And,
// EqualsZero) or an arithmetic one (Mul, ConvertB2A).
type TripleRecord struct {
	A, B, C ring.Ring
	Bool    bool
}

func (*TripleRecord) isRecord() {}

// CompactionRecord holds the n independent Beaver triples a
// GenCompaction gate over a length-n vector consumes, one per
// elementwise multiplication.
type CompactionRecord struct {
	Triples []TripleRecord
}

func (*CompactionRecord) isRecord() {}

// ShuffleRecord is this party's view of a shuffle correlation: the
// permutation(s) it knows, plus the mask vector it needs to unmask
// the value it receives from its peer. Which fields are populated
// depends on role:
//
//   - dealer (pid 0): Pi0, Pi1, PiP0, PiP1 are all populated (the
//     dealer knows every permutation); B0 and B1 are nil (the dealer
//     never applies a mask, it only ships them).
//   - party 1 (knows π0, π′0): Pi0 and PiP0 are populated, Pi1 and
//     PiP1 are nil; B0 is the mask it receives from the dealer.
//   - party 2 (knows π1, π′1): Pi1 and PiP1 are populated, Pi0 and
//     PiP0 are nil; B1 is the mask it receives from the dealer.
//
// R0 and R1 are the random mask vectors: R0 is known to the dealer
// and party 1, R1 to the dealer and party 2. Each online party adds
// its own one to its input share before permuting and sending.
type ShuffleRecord struct {
	Pi0, Pi1, PiP0, PiP1 []int
	R0, R1               []ring.Ring
	B0, B1               []ring.Ring
	Reverse              bool
}

func (*ShuffleRecord) isRecord() {}

// Circuit is the move-only container mapping gate id to its
// preprocessing Record, constructed once by a single producer (the
// offline evaluator) and consumed once by a single consumer (the
// online evaluator). Records is indexed by gate id and sized by gate
// count; buffers indexed by wire id (such as the online evaluator's
// shares) are sized by NumWires instead, since the two counts diverge
// once vector gates fan out.
type Circuit struct {
	Records []Record
}

// NewCircuit allocates a preprocessing store sized for numGates
// gates, every entry defaulting to NoneRecord until the offline
// evaluator fills it in.
func NewCircuit(numGates int) *Circuit {
	records := make([]Record, numGates)
	for i := range records {
		records[i] = NoneRecord{}
	}
	return &Circuit{Records: records}
}

// Get returns the record for gate id.
func (pc *Circuit) Get(gateID int) Record {
	return pc.Records[gateID]
}

// Set stores the record for gate id.
func (pc *Circuit) Set(gateID int, r Record) {
	pc.Records[gateID] = r
}
