//
// prg.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

// Package prg implements the party-indexed pseudo-random stream pool
// that backs all correlated-randomness sampling in the offline
// evaluator: a "self" stream private to one party, an "all" stream
// shared by all three, and three pairwise streams p01, p02, p12.
package prg

import (
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20"
)

// SeedWords holds the ten 64-bit seed words a caller supplies, one
// hi/lo pair per stream, in the order self, all, p01, p02, p12. The
// low word of the self seed defaults to the party's pid when zero,
// so that two parties who share every other seed by accident still
// diverge on their private stream (mirrors rand_gen_pool's seed
// bootstrap in the original GraphSC source).
type SeedWords struct {
	SelfHi, SelfLo uint64
	AllHi, AllLo   uint64
	P01Hi, P01Lo   uint64
	P02Hi, P02Lo   uint64
	P12Hi, P12Lo   uint64
}

// Pool is the set of five counter-mode PRG streams available to one
// party. Every stream is a chacha20.Cipher keyed from a seed word
// pair; callers draw raw bytes from the stream via Read and derive
// whatever typed values they need (ring elements, permutations,
// masks) on top of that byte stream.
type Pool struct {
	Self *Stream
	All  *Stream
	P01  *Stream
	P02  *Stream
	P12  *Stream
}

// Stream is one counter-mode pseudo-random byte stream.
type Stream struct {
	cipher *chacha20.Cipher
}

func newStream(hi, lo uint64) (*Stream, error) {
	var key [chacha20.KeySize]byte
	binary.LittleEndian.PutUint64(key[0:8], hi)
	binary.LittleEndian.PutUint64(key[8:16], lo)
	// Remaining key bytes are zero; the (hi, lo) pair is the entire
	// agreed-upon seed material between the parties that share a
	// stream, so padding with zero keeps the derivation a pure
	// function of that pair.
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, err
	}
	return &Stream{cipher: c}, nil
}

// Read fills p with the next len(p) pseudo-random bytes from the
// stream. It never returns a short read or an error; it implements
// io.Reader for interoperability with APIs that sample randomness
// through that interface (e.g. crypto/rand-shaped constructors).
func (s *Stream) Read(p []byte) (int, error) {
	zero := make([]byte, len(p))
	s.cipher.XORKeyStream(p, zero)
	return len(p), nil
}

var _ io.Reader = (*Stream)(nil)

// Uint32 draws one uniformly random 32-bit ring element from the
// stream.
func (s *Stream) Uint32() uint32 {
	var b [4]byte
	s.Read(b[:])
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Perm draws a uniformly random permutation of {0,...,n-1} using a
// Fisher-Yates shuffle driven by the stream.
func (s *Stream) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(s.Uint32() % uint32(i+1))
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// NewPool constructs the five-stream pool for one party from its
// seed words and pid. The self stream's low word defaults to pid
// when the caller leaves it at zero.
func NewPool(pid int, seeds SeedWords) (*Pool, error) {
	selfLo := seeds.SelfLo
	if selfLo == 0 {
		selfLo = uint64(pid)
	}

	self, err := newStream(seeds.SelfHi, selfLo)
	if err != nil {
		return nil, err
	}
	all, err := newStream(seeds.AllHi, seeds.AllLo)
	if err != nil {
		return nil, err
	}
	p01, err := newStream(seeds.P01Hi, seeds.P01Lo)
	if err != nil {
		return nil, err
	}
	p02, err := newStream(seeds.P02Hi, seeds.P02Lo)
	if err != nil {
		return nil, err
	}
	p12, err := newStream(seeds.P12Hi, seeds.P12Lo)
	if err != nil {
		return nil, err
	}

	return &Pool{
		Self: self,
		All:  all,
		P01:  p01,
		P02:  p02,
		P12:  p12,
	}, nil
}
