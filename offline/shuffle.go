//
// shuffle.go
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

func appendInts(buf *[]byte, xs []int) {
	for _, x := range xs {
		appendRing(buf, ring.Ring(uint32(x)))
	}
}

func readInts(c *byteCursor, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = c.nextInt()
	}
	return out
}

func readRings(c *byteCursor, n int) []ring.Ring {
	out := make([]ring.Ring, n)
	for i := range out {
		out[i] = c.nextRing()
	}
	return out
}

func appendRings(buf *[]byte, xs []ring.Ring) {
	for _, x := range xs {
		appendRing(buf, x)
	}
}

// materialiseShuffle resolves pairID to a permutation bundle,
// sampling it on first sight and reusing it on every subsequent
// reference. The dealer always samples fresh; party 1 re-derives
// π0/π′0 from p01 on first sight; party 2 re-derives π1 from p02 and
// receives the dealer-computed π′1.
func materialiseShuffle(role Role, pool *prg.Pool, n int, pairID int,
	cache *preproc.PermCache, toP2 *[]byte, fromDealerP2 *byteCursor) (*preproc.Bundle, error) {

	if b, ok := cache.Lookup(pairID); ok {
		return b, nil
	}

	switch role {
	case Dealer:
		pi0 := pool.P01.Perm(n)
		pi1 := pool.P02.Perm(n)
		pip0 := pool.P01.Perm(n)
		pip1 := preproc.Compose(preproc.Compose(pi0, pi1), preproc.Invert(pip0))
		appendInts(toP2, pip1)
		b := &preproc.Bundle{Pi0: pi0, Pi1: pi1, PiP0: pip0, PiP1: pip1}
		if err := cache.Materialise(pairID, b); err != nil {
			return nil, err
		}
		return b, nil

	case OnlineP1:
		pi0 := pool.P01.Perm(n)
		pip0 := pool.P01.Perm(n)
		b := &preproc.Bundle{Pi0: pi0, PiP0: pip0}
		if err := cache.Materialise(pairID, b); err != nil {
			return nil, err
		}
		return b, nil

	default: // OnlineP2
		pi1 := pool.P02.Perm(n)
		pip1 := readInts(fromDealerP2, n)
		b := &preproc.Bundle{Pi1: pi1, PiP1: pip1}
		if err := cache.Materialise(pairID, b); err != nil {
			return nil, err
		}
		return b, nil
	}
}

// genShuffle produces this party's ShuffleRecord for a Shuffle gate
// of length n over pair-id pairID.
func genShuffle(role Role, pool *prg.Pool, n, pairID int, reverse bool,
	cache *preproc.PermCache, toP1, toP2 *[]byte,
	fromDealerP1, fromDealerP2 *byteCursor) (preproc.ShuffleRecord, error) {

	bundle, err := materialiseShuffle(role, pool, n, pairID, cache, toP2, fromDealerP2)
	if err != nil {
		return preproc.ShuffleRecord{}, err
	}

	switch role {
	case Dealer:
		r0 := samplePerElement(pool.P01, n)
		r1 := samplePerElement(pool.P02, n)
		rr := pool.Self.Uint32()
		r := ring.Ring(rr)

		composed := preproc.Compose(bundle.Pi0, bundle.Pi1)
		b0 := make([]ring.Ring, n)
		b1 := make([]ring.Ring, n)
		if !reverse {
			for j := 0; j < n; j++ {
				b0[composed[j]] = r0[j].Sub(r)
				b1[composed[j]] = r1[j].Add(r)
			}
		} else {
			for j := 0; j < n; j++ {
				b0[j] = r0[composed[j]].Sub(r)
				b1[j] = r1[composed[j]].Add(r)
			}
		}
		appendRings(toP1, b0)
		appendRings(toP2, b1)
		return preproc.ShuffleRecord{
			Pi0: bundle.Pi0, Pi1: bundle.Pi1, PiP0: bundle.PiP0, PiP1: bundle.PiP1,
			R0: r0, R1: r1, Reverse: reverse,
		}, nil

	case OnlineP1:
		r0 := samplePerElement(pool.P01, n)
		b0 := readRings(fromDealerP1, n)
		return preproc.ShuffleRecord{
			Pi0: bundle.Pi0, PiP0: bundle.PiP0, R0: r0, B0: b0, Reverse: reverse,
		}, nil

	default: // OnlineP2
		r1 := samplePerElement(pool.P02, n)
		b1 := readRings(fromDealerP2, n)
		return preproc.ShuffleRecord{
			Pi1: bundle.Pi1, PiP1: bundle.PiP1, R1: r1, B1: b1, Reverse: reverse,
		}, nil
	}
}

func samplePerElement(s *prg.Stream, n int) []ring.Ring {
	out := make([]ring.Ring, n)
	for i := range out {
		out[i] = ring.Ring(s.Uint32())
	}
	return out
}

// genDoubleShuffle produces this party's ShuffleRecord for a
// DoubleShuffle(new, src, dst) gate. src and dst must already be
// materialised; callers enforce scheduling so that sources appear
// earlier in the layered circuit.
func genDoubleShuffle(role Role, pool *prg.Pool, n, newID, srcID, dstID int,
	cache *preproc.PermCache, toP1, toP2 *[]byte,
	fromDealerP1, fromDealerP2 *byteCursor) (preproc.ShuffleRecord, error) {

	if _, ok := cache.Lookup(newID); !ok {
		switch role {
		case Dealer:
			src, err := cache.Require(srcID)
			if err != nil {
				return preproc.ShuffleRecord{}, err
			}
			dst, err := cache.Require(dstID)
			if err != nil {
				return preproc.ShuffleRecord{}, err
			}
			pi0new := pool.P01.Perm(n)
			srcComposed := preproc.Compose(src.Pi0, src.Pi1)
			dstComposed := preproc.Compose(dst.Pi0, dst.Pi1)
			pi1new := preproc.Compose(preproc.Invert(pi0new),
				preproc.Compose(dstComposed, preproc.Invert(srcComposed)))
			pip0new := pool.P01.Perm(n)
			pip1new := preproc.Compose(preproc.Compose(pi0new, pi1new),
				preproc.Invert(pip0new))
			appendInts(toP2, pi1new)
			appendInts(toP2, pip1new)
			b := &preproc.Bundle{Pi0: pi0new, Pi1: pi1new, PiP0: pip0new, PiP1: pip1new}
			if err := cache.Materialise(newID, b); err != nil {
				return preproc.ShuffleRecord{}, err
			}

		case OnlineP1:
			if _, err := cache.Require(srcID); err != nil {
				return preproc.ShuffleRecord{}, err
			}
			if _, err := cache.Require(dstID); err != nil {
				return preproc.ShuffleRecord{}, err
			}
			pi0new := pool.P01.Perm(n)
			pip0new := pool.P01.Perm(n)
			b := &preproc.Bundle{Pi0: pi0new, PiP0: pip0new}
			if err := cache.Materialise(newID, b); err != nil {
				return preproc.ShuffleRecord{}, err
			}

		default: // OnlineP2
			if _, err := cache.Require(srcID); err != nil {
				return preproc.ShuffleRecord{}, err
			}
			if _, err := cache.Require(dstID); err != nil {
				return preproc.ShuffleRecord{}, err
			}
			pi1new := readInts(fromDealerP2, n)
			pip1new := readInts(fromDealerP2, n)
			b := &preproc.Bundle{Pi1: pi1new, PiP1: pip1new}
			if err := cache.Materialise(newID, b); err != nil {
				return preproc.ShuffleRecord{}, err
			}
		}
	}

	return genShuffle(role, pool, n, newID, false, cache, toP1, toP2, fromDealerP1, fromDealerP2)
}
