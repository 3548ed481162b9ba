//
// conn.go
//
// Copyright (c) 2020 Markku Rossi
//
// All rights reserved.
//

// Package p2p implements the ordered, reliable, framed byte
// transport between every pair of parties in the protocol: ordinary
// or TLS-wrapped TCP, with length-framed sends, a segmentation
// scheme for large vector transfers, and a round-synchronisation
// barrier.
package p2p

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
)

// ErrTransport wraps any I/O failure on a Conn. Every transport
// error is fatal and aborts the evaluation; there is no local
// recovery.
var ErrTransport = errors.New("p2p: transport failure")

// Seg is the segmentation threshold: the evaluators split any
// logical message longer than Seg ring elements into chunks sent and
// received as raw, unframed data, capping peak buffering and letting the two online
// parties interleave sends and receives.
const Seg = 100000

// Conn is a framed duplex byte stream to one peer. Sends are
// buffered and must be flushed; receives block until the requested
// length has arrived.
type Conn struct {
	nc     net.Conn
	r      *bufio.Reader
	w      *bufio.Writer
	sent   uint64
	recvd  uint64
}

// NewConn wraps a raw network connection.
func NewConn(nc net.Conn) *Conn {
	return &Conn{
		nc: nc,
		r:  bufio.NewReaderSize(nc, 64*1024),
		w:  bufio.NewWriterSize(nc, 64*1024),
	}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.nc.Close()
}

// Flush pushes any buffered writes to the OS; Send* calls only
// buffer, so callers must Flush before a corresponding Receive* on
// the peer can be expected to unblock.
func (c *Conn) Flush() error {
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %s", ErrTransport, err)
	}
	return nil
}

// SendUint32 writes a 4-byte big-endian header value, used for
// framing lengths and for the party-id handshake.
func (c *Conn) SendUint32(v int) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	n, err := c.w.Write(b[:])
	atomic.AddUint64(&c.sent, uint64(n))
	if err != nil {
		return fmt.Errorf("%w: send uint32: %s", ErrTransport, err)
	}
	return nil
}

// ReceiveUint32 reads a 4-byte big-endian header value.
func (c *Conn) ReceiveUint32() (int, error) {
	var b [4]byte
	n, err := io.ReadFull(c.r, b[:])
	atomic.AddUint64(&c.recvd, uint64(n))
	if err != nil {
		return 0, fmt.Errorf("%w: receive uint32: %s", ErrTransport, err)
	}
	return int(binary.BigEndian.Uint32(b[:])), nil
}

// SendData writes a length-prefixed byte buffer.
func (c *Conn) SendData(data []byte) error {
	if err := c.SendUint32(len(data)); err != nil {
		return err
	}
	n, err := c.w.Write(data)
	atomic.AddUint64(&c.sent, uint64(n))
	if err != nil {
		return fmt.Errorf("%w: send data: %s", ErrTransport, err)
	}
	return nil
}

// ReceiveData reads a length-prefixed byte buffer.
func (c *Conn) ReceiveData() ([]byte, error) {
	n, err := c.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(c.r, buf)
	atomic.AddUint64(&c.recvd, uint64(got))
	if err != nil {
		return nil, fmt.Errorf("%w: receive data: %s", ErrTransport, err)
	}
	return buf, nil
}

// Send writes a raw, unframed byte buffer. Used internally by the
// evaluators, which agree on lengths in advance from the schedule —
// no length prefix at the message level.
func (c *Conn) Send(data []byte) error {
	n, err := c.w.Write(data)
	atomic.AddUint64(&c.sent, uint64(n))
	if err != nil {
		return fmt.Errorf("%w: send: %s", ErrTransport, err)
	}
	return nil
}

// Receive reads exactly len(buf) raw bytes into buf.
func (c *Conn) Receive(buf []byte) error {
	n, err := io.ReadFull(c.r, buf)
	atomic.AddUint64(&c.recvd, uint64(n))
	if err != nil {
		return fmt.Errorf("%w: receive: %s", ErrTransport, err)
	}
	return nil
}

// Sync exchanges a one-byte sentinel with the peer in both
// directions and returns only once both have completed; used as a
// round barrier between offline and online phases and before
// statistics collection.
func (c *Conn) Sync() error {
	if err := c.Send([]byte{0x5a}); err != nil {
		return err
	}
	if err := c.Flush(); err != nil {
		return err
	}
	var b [1]byte
	return c.Receive(b[:])
}

// BytesSent returns the monotone count of bytes written into this
// connection's send buffer.
func (c *Conn) BytesSent() uint64 {
	return atomic.LoadUint64(&c.sent)
}

// BytesReceived returns the monotone count of bytes read from this
// connection.
func (c *Conn) BytesReceived() uint64 {
	return atomic.LoadUint64(&c.recvd)
}
