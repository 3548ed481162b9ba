//
// segment.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package p2p

// SendSegmented splits data into chunks of at most Seg*elemSize
// bytes and sends each chunk as an independent raw send, so that a
// logical message longer than Seg ring elements never requires
// buffering the whole thing at once. elemSize is the width in bytes
// of one ring element (4 for Ring, 1 for packed bool bytes already
// counted in elements of 1).
func (c *Conn) SendSegmented(data []byte, elemSize int) error {
	chunk := Seg * elemSize
	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		if err := c.Send(data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveSegmented reads exactly len(into) bytes, in the same
// Seg*elemSize chunking as SendSegmented, into into.
func (c *Conn) ReceiveSegmented(into []byte, elemSize int) error {
	chunk := Seg * elemSize
	for off := 0; off < len(into); off += chunk {
		end := off + chunk
		if end > len(into) {
			end = len(into)
		}
		if err := c.Receive(into[off:end]); err != nil {
			return err
		}
	}
	return nil
}
