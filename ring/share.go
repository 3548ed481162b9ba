//
// share.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package ring

// Share is one party's half of an additive two-of-two sharing of a
// Ring value: parties 1 and 2 hold shares s1, s2 with s1+s2 equal to
// the shared value. BoolShare is the analogous construction over
// XOR. Modelled on the operator surface of the original GraphSC
// AddShare<R> template (sharing.h), adapted to explicit Go methods.
type Share struct {
	V Ring
}

// NewShare wraps a raw ring value as a share.
func NewShare(v Ring) Share {
	return Share{V: v}
}

// Add returns the elementwise sum of two shares.
func (s Share) Add(o Share) Share {
	return Share{V: s.V.Add(o.V)}
}

// Sub returns the elementwise difference of two shares.
func (s Share) Sub(o Share) Share {
	return Share{V: s.V.Sub(o.V)}
}

// MulPublic scales a share by a cleartext constant.
func (s Share) MulPublic(c Ring) Share {
	return Share{V: s.V.Mul(c)}
}

// AddPublic adds a cleartext constant; per the additive-sharing
// convention only the party whose pid equals adder folds the
// constant into its local share.
func (s Share) AddPublic(c Ring, pid int, adder int) Share {
	if pid == adder {
		return Share{V: s.V.Add(c)}
	}
	return s
}

// ShiftLeft shifts the underlying value left by n bits.
func (s Share) ShiftLeft(n uint) Share {
	return Share{V: s.V.Lsh(n)}
}

// ShiftRight shifts the underlying value right by n bits.
func (s Share) ShiftRight(n uint) Share {
	return Share{V: s.V.Rsh(n)}
}

// BoolShare is the boolean analogue of Share over the XOR-sharing
// domain. The evaluators operate on ring.Ring values directly and do
// not use Share or BoolShare.
type BoolShare struct {
	V BoolRing
}

// NewBoolShare wraps a raw bit as a share.
func NewBoolShare(v BoolRing) BoolShare {
	return BoolShare{V: v}
}

// Xor returns the elementwise XOR of two boolean shares.
func (s BoolShare) Xor(o BoolShare) BoolShare {
	return BoolShare{V: s.V.Xor(o.V)}
}
