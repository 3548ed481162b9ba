package p2p_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markkurossi/graphsc/p2p"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewNetworkConnectsAllPairs(t *testing.T) {
	base := freePort(t)
	topo := p2p.Localhost(base)

	type result struct {
		nw  *p2p.Network
		err error
	}
	results := make(chan result, p2p.NumParties)
	for pid := 0; pid < p2p.NumParties; pid++ {
		pid := pid
		go func() {
			nw, err := p2p.NewNetwork(pid, topo, nil)
			results <- result{nw, err}
		}()
	}

	nws := make([]*p2p.Network, p2p.NumParties)
	for i := 0; i < p2p.NumParties; i++ {
		r := <-results
		require.NoError(t, r.err)
		nws[r.nw.PID] = r.nw
	}
	defer func() {
		for _, nw := range nws {
			nw.Close()
		}
	}()

	for pid, nw := range nws {
		for other := 0; other < p2p.NumParties; other++ {
			if other == pid {
				continue
			}
			require.NotNilf(t, nw.Conns[other], "party %d missing conn to %d", pid, other)
		}
	}

	errc := make(chan error, p2p.NumParties)
	for _, nw := range nws {
		nw := nw
		go func() { errc <- nw.SyncAll() }()
	}
	for i := 0; i < p2p.NumParties; i++ {
		require.NoError(t, <-errc)
	}
}

func TestLocalhostTopology(t *testing.T) {
	topo := p2p.Localhost(10000)
	for i := 0; i < p2p.NumParties; i++ {
		require.Equal(t, "127.0.0.1", topo.Host[i])
		require.Equal(t, 10000+i, topo.Port[i])
	}
}
