package offline_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markkurossi/graphsc/circuit"
	"github.com/markkurossi/graphsc/offline"
	"github.com/markkurossi/graphsc/p2p"
	"github.com/markkurossi/graphsc/preproc"
	"github.com/markkurossi/graphsc/prg"
)

// pipeConn returns a connected pair wrapping an in-memory net.Pipe,
// standing in for a dialed TCP connection between two parties.
func pipeConn() (*p2p.Conn, *p2p.Conn) {
	a, b := net.Pipe()
	return p2p.NewConn(a), p2p.NewConn(b)
}

// threePartyNetworks wires up the three in-process connections the
// dealer and the two online parties need, without going through
// NewNetwork's TCP listen/dial machinery.
func threePartyNetworks() (dealer, p1, p2 *p2p.Network) {
	d1, p1d := pipeConn()
	d2, p2d := pipeConn()
	p12, p21 := pipeConn()

	dealer = &p2p.Network{PID: 0, Conns: [p2p.NumParties]*p2p.Conn{nil, d1, d2}}
	p1 = &p2p.Network{PID: 1, Conns: [p2p.NumParties]*p2p.Conn{p1d, nil, p12}}
	p2 = &p2p.Network{PID: 2, Conns: [p2p.NumParties]*p2p.Conn{p2d, p21, nil}}
	return
}

func sharedSeeds(pid int) prg.SeedWords {
	return prg.SeedWords{
		SelfHi: uint64(pid), SelfLo: uint64(pid),
		AllHi: 1, AllLo: 2,
		P01Hi: 11, P01Lo: 22,
		P02Hi: 33, P02Lo: 44,
		P12Hi: 55, P12Lo: 66,
	}
}

func TestOfflineMulTripleReconstructs(t *testing.T) {
	c := circuit.New()
	a := c.NewInputWire(1)
	b := c.NewInputWire(2)
	out, err := c.AddArith(circuit.Mul, a, b)
	require.NoError(t, err)
	require.NoError(t, c.SetAsOutput(out))
	lc := c.OrderGatesByLevel()

	nwD, nw1, nw2 := threePartyNetworks()

	poolD, err := prg.NewPool(0, sharedSeeds(0))
	require.NoError(t, err)
	pool1, err := prg.NewPool(1, sharedSeeds(1))
	require.NoError(t, err)
	pool2, err := prg.NewPool(2, sharedSeeds(2))
	require.NoError(t, err)

	type runResult struct {
		role  offline.Role
		store *preproc.Circuit
		err   error
	}
	results := make(chan runResult, 3)
	run := func(role offline.Role, nw *p2p.Network, pool *prg.Pool) {
		store, err := offline.NewEvaluator(role, nw, pool, lc).Run()
		results <- runResult{role, store, err}
	}
	go run(offline.Dealer, nwD, poolD)
	go run(offline.OnlineP1, nw1, pool1)
	go run(offline.OnlineP2, nw2, pool2)

	stores := make(map[offline.Role]*preproc.Circuit, 3)
	for i := 0; i < 3; i++ {
		r := <-results
		require.NoError(t, r.err)
		stores[r.role] = r.store
	}

	mulGateID := lc.Layers[1][0].ID
	dealerRec := stores[offline.Dealer].Get(mulGateID).(*preproc.TripleRecord)
	p1Rec := stores[offline.OnlineP1].Get(mulGateID).(*preproc.TripleRecord)
	p2Rec := stores[offline.OnlineP2].Get(mulGateID).(*preproc.TripleRecord)

	require.Equal(t, dealerRec.A, p1Rec.A.Add(p2Rec.A))
	require.Equal(t, dealerRec.B, p1Rec.B.Add(p2Rec.B))
	require.Equal(t, dealerRec.C, p1Rec.C.Add(p2Rec.C))
	require.Equal(t, dealerRec.A.Mul(dealerRec.B), dealerRec.C)
}
