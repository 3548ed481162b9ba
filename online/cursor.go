//
// cursor.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package online

import "github.com/markkurossi/graphsc/ring"

// buffers holds one online party's per-layer staging output, in the
// fixed transmission order mul || and || shuffle || reveal.
type buffers struct {
	mul, and, shuffle, reveal []byte
}

func (b *buffers) concat() []byte {
	out := make([]byte, 0, len(b.mul)+len(b.and)+len(b.shuffle)+len(b.reveal))
	out = append(out, b.mul...)
	out = append(out, b.and...)
	out = append(out, b.shuffle...)
	out = append(out, b.reveal...)
	return out
}

func appendRingTo(buf *[]byte, v ring.Ring) {
	b := v.Bytes()
	*buf = append(*buf, b[:]...)
}

// byteCursor reads sequential 4-byte ring values out of a received
// buffer, tracking position.
type byteCursor struct {
	buf []byte
	pos int
}

func newByteCursor(buf []byte) *byteCursor {
	return &byteCursor{buf: buf}
}

func (c *byteCursor) next() ring.Ring {
	v := ring.FromBytes(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v
}

// cursors splits one layer's received buffer back into its four
// per-kind sections, mirroring the send-side buffers layout.
type cursors struct {
	mul, and, shuffle, reveal *byteCursor
}

func newCursors(buf []byte, sent *buffers) *cursors {
	off := 0
	mul := newByteCursor(buf[off : off+len(sent.mul)])
	off += len(sent.mul)
	and := newByteCursor(buf[off : off+len(sent.and)])
	off += len(sent.and)
	shuffle := newByteCursor(buf[off : off+len(sent.shuffle)])
	off += len(sent.shuffle)
	reveal := newByteCursor(buf[off : off+len(sent.reveal)])
	return &cursors{mul: mul, and: and, shuffle: shuffle, reveal: reveal}
}

func (c *cursors) nextMul() ring.Ring     { return c.mul.next() }
func (c *cursors) nextAnd() ring.Ring     { return c.and.next() }
func (c *cursors) nextShuffle() ring.Ring { return c.shuffle.next() }
func (c *cursors) nextReveal() ring.Ring  { return c.reveal.next() }
