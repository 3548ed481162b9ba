//
// stats.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package p2p

import "time"

// StatsPoint is a snapshot of one connection's monotone send/receive
// counters together with a wall-clock stamp; two snapshots subtract
// to yield {time, communication} deltas.
type StatsPoint struct {
	At   time.Time
	Sent uint64
	Recv uint64
}

// Snapshot captures the connection's current counters.
func (c *Conn) Snapshot() StatsPoint {
	return StatsPoint{
		At:   time.Now(),
		Sent: c.BytesSent(),
		Recv: c.BytesReceived(),
	}
}

// Delta is the difference between two snapshots of the same
// connection, a later one minus an earlier one.
type Delta struct {
	Elapsed  time.Duration
	SentDiff uint64
	RecvDiff uint64
}

// Sub computes later - earlier.
func (later StatsPoint) Sub(earlier StatsPoint) Delta {
	return Delta{
		Elapsed:  later.At.Sub(earlier.At),
		SentDiff: later.Sent - earlier.Sent,
		RecvDiff: later.Recv - earlier.Recv,
	}
}
