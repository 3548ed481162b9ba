//
// triples.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package offline

import (
	"github.com/markkurossi/graphsc/prg"
	"github.com/markkurossi/graphsc/preproc"
	"github.com/markkurossi/graphsc/ring"
)

// genTriple samples one Beaver triple for a Mul, And, ConvertB2A or
// EqualsZero gate. boolOp selects AND/XOR combination (And,
// EqualsZero) over multiplication/addition (Mul, ConvertB2A).
// Party 1's share is derivable purely from the p01 stream it shares
// with the dealer, so only the complementary component ever crosses
// the network; the dealer accumulates that component into toP2 for
// the batched transmission and party 2 reads it back out of
// the stream it receives.
func genTriple(role Role, pool *prg.Pool, boolOp bool, toP2 *[]byte, fromDealer *byteCursor) preproc.TripleRecord {
	switch role {
	case Dealer:
		a1 := ring.Ring(pool.P01.Uint32())
		b1 := ring.Ring(pool.P01.Uint32())
		rho := ring.Ring(pool.P01.Uint32())
		a2 := ring.Ring(pool.P02.Uint32())
		b2 := ring.Ring(pool.P02.Uint32())

		var a, b, c, c2local, c1 ring.Ring
		if boolOp {
			a = a1.Xor(a2)
			b = b1.Xor(b2)
			c = a.And(b)
			c2local = a1.And(b1).Xor(rho)
			c1 = c.Xor(c2local)
		} else {
			a = a1.Add(a2)
			b = b1.Add(b2)
			c = a.Mul(b)
			c2local = a1.Mul(b1).Add(rho)
			c1 = c.Sub(c2local)
		}
		appendRing(toP2, c1)
		return preproc.TripleRecord{A: a, B: b, C: c, Bool: boolOp}

	case OnlineP1:
		a1 := ring.Ring(pool.P01.Uint32())
		b1 := ring.Ring(pool.P01.Uint32())
		rho := ring.Ring(pool.P01.Uint32())
		var c2 ring.Ring
		if boolOp {
			c2 = a1.And(b1).Xor(rho)
		} else {
			c2 = a1.Mul(b1).Add(rho)
		}
		return preproc.TripleRecord{A: a1, B: b1, C: c2, Bool: boolOp}

	default: // OnlineP2
		a2 := ring.Ring(pool.P02.Uint32())
		b2 := ring.Ring(pool.P02.Uint32())
		c1 := fromDealer.nextRing()
		return preproc.TripleRecord{A: a2, B: b2, C: c1, Bool: boolOp}
	}
}

// genCompactionTriples samples the n independent arithmetic triples a
// GenCompaction gate over a length-n vector needs.
func genCompactionTriples(role Role, pool *prg.Pool, n int, toP2 *[]byte, fromDealer *byteCursor) preproc.CompactionRecord {
	triples := make([]preproc.TripleRecord, n)
	for i := range triples {
		triples[i] = genTriple(role, pool, false, toP2, fromDealer)
	}
	return preproc.CompactionRecord{Triples: triples}
}

func appendRing(buf *[]byte, v ring.Ring) {
	b := v.Bytes()
	*buf = append(*buf, b[:]...)
}

// byteCursor reads sequential 4-byte ring values out of a received
// buffer, tracking position. Used by the online parties to parse the
// dealer's batched transmission back into per-gate records in the
// exact order the dealer produced them.
type byteCursor struct {
	buf []byte
	pos int
}

func newByteCursor(buf []byte) *byteCursor {
	return &byteCursor{buf: buf}
}

func (c *byteCursor) nextRing() ring.Ring {
	v := ring.FromBytes(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v
}

func (c *byteCursor) nextInt() int {
	return int(c.nextRing())
}

func (c *byteCursor) remaining() int {
	return len(c.buf) - c.pos
}
