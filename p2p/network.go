//
// Copyright (c) 2020 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

// NumParties is fixed by the protocol: a dealer (pid 0) and two
// online parties (pid 1, 2).
const NumParties = 3

// TLSConfig carries the certificate material a party needs:
// CertificatePath and PrivateKeyPath identify this party to its
// peers, TrustedCertPath is the CA bundle used to validate them. A
// nil *TLSConfig selects plain TCP, which is permitted for
// localhost.
type TLSConfig struct {
	CertificatePath string
	PrivateKeyPath  string
	TrustedCertPath string
}

// Topology assigns one TCP endpoint per party, indexed by pid. It is
// the decoded form of a network-topology JSON array of three IP
// strings.
type Topology struct {
	Host [NumParties]string
	Port [NumParties]int
}

// Localhost builds the "localhost" port scheme: a base port, with
// every party's listener at base+pid.
func Localhost(basePort int) Topology {
	var t Topology
	for i := 0; i < NumParties; i++ {
		t.Host[i] = "127.0.0.1"
		t.Port[i] = basePort + i
	}
	return t
}

// Network owns one TCP (or TLS) listener and the dialed-or-accepted
// connections to the other two parties, keyed by pid. Generalised
// from a 2-party accept/dial loop to the fixed 3-party topology this
// protocol requires; an OT-based peer handshake has no role here.
type Network struct {
	PID      int
	Conns    [NumParties]*Conn
	listener net.Listener
	topology Topology
	tlsCfg   *tls.Config
	logger   *log.Logger
}

// NewNetwork starts listening for this party's peers and dials the
// other two according to topology. It blocks until both connections
// are established, since neither the offline nor the online
// evaluator can proceed without both peers present.
func NewNetwork(pid int, topology Topology, tlsConf *TLSConfig) (*Network, error) {
	nw := &Network{
		PID:      pid,
		topology: topology,
		logger:   log.New(os.Stderr, fmt.Sprintf("NW %d: ", pid), log.LstdFlags),
	}

	if tlsConf != nil {
		cfg, err := buildTLSConfig(tlsConf)
		if err != nil {
			return nil, err
		}
		nw.tlsCfg = cfg
	}

	addr := fmt.Sprintf(":%d", topology.Port[pid])
	var err error
	if nw.tlsCfg != nil {
		nw.listener, err = tls.Listen("tcp", addr, nw.tlsCfg)
	} else {
		nw.listener, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %s", ErrTransport, addr, err)
	}

	// Every unordered pair (i,j) is connected by exactly one TCP
	// flow: the lower pid dials, the higher pid accepts. This avoids
	// a simultaneous-dial race without a separate rendezvous step.
	accept := make(chan error, NumParties)
	go nw.acceptLoop(accept)

	for other := 0; other < NumParties; other++ {
		if other == pid || pid >= other {
			continue
		}
		conn, err := nw.dial(other)
		if err != nil {
			return nil, err
		}
		nw.Conns[other] = conn
	}

	expected := 0
	for other := 0; other < NumParties; other++ {
		if other != pid && other < pid {
			expected++
		}
	}
	for i := 0; i < expected; i++ {
		if err := <-accept; err != nil {
			return nil, err
		}
	}

	return nw, nil
}

func (nw *Network) dial(other int) (*Conn, error) {
	addr := fmt.Sprintf("%s:%d", nw.topology.Host[other], nw.topology.Port[other])
	for {
		var nc net.Conn
		var err error
		if nw.tlsCfg != nil {
			nc, err = tls.Dial("tcp", addr, nw.tlsCfg)
		} else {
			nc, err = net.Dial("tcp", addr)
		}
		if err != nil {
			delay := 500 * time.Millisecond
			nw.logger.Printf("connect to %d (%s) failed, retrying in %s: %s",
				other, addr, delay, err)
			time.Sleep(delay)
			continue
		}
		nw.logger.Printf("connected to %d (%s)", other, addr)
		tuneSocket(nc)
		conn := NewConn(nc)
		if err := conn.SendUint32(nw.PID); err != nil {
			conn.Close()
			return nil, err
		}
		if err := conn.Flush(); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func (nw *Network) acceptLoop(accept chan<- error) {
	expected := 0
	for other := 0; other < NumParties; other++ {
		if other != nw.PID && other < nw.PID {
			expected++
		}
	}
	for i := 0; i < expected; i++ {
		nc, err := nw.listener.Accept()
		if err != nil {
			accept <- fmt.Errorf("%w: accept: %s", ErrTransport, err)
			return
		}
		tuneSocket(nc)
		conn := NewConn(nc)
		id, err := conn.ReceiveUint32()
		if err != nil {
			conn.Close()
			accept <- err
			continue
		}
		nw.Conns[id] = conn
		accept <- nil
	}
}

// Close shuts down the listener and every peer connection.
func (nw *Network) Close() error {
	var first error
	for _, c := range nw.Conns {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := nw.listener.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// SyncAll runs Conn.Sync against every connected peer, used as the
// round barrier between the offline and online phases.
func (nw *Network) SyncAll() error {
	for id, c := range nw.Conns {
		if c == nil || id == nw.PID {
			continue
		}
		if err := c.Sync(); err != nil {
			return err
		}
	}
	return nil
}

func buildTLSConfig(c *TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(c.CertificatePath, c.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load certificate: %s", ErrTransport, err)
	}
	caBytes, err := os.ReadFile(c.TrustedCertPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read trusted cert: %s", ErrTransport, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("%w: invalid trusted cert bundle", ErrTransport)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
