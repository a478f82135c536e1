package scenario

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"floodsim/internal/dataType"
	"floodsim/internal/metrics"
	"floodsim/internal/node"
	"floodsim/internal/sim"
	"floodsim/internal/topology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func params(name string, strategy node.Strategy) Params {
	o := node.DefaultOptions()
	o.Strategy = strategy
	return Params{
		Name:             name,
		Runs:             1,
		Seed:             1,
		Validators:       4,
		Watchers:         10,
		Transactions:     20,
		Latency:          0.1,
		Jitter:           0.05,
		ChurnDisconnects: 2,
		Node:             o,
	}
}

func build(t *testing.T, seed int64, validators, watchers int, o node.Options) (*sim.Network, *topology.Layout) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	nw := sim.NewNetwork(sim.NewScheduler(), rng, sim.NetworkOptions{Latency: 0.1, Jitter: 0.05})
	factory := func(id dataType.NodeID, role node.Role) *node.Node {
		if role == node.RoleValidator {
			return node.NewValidator(id, o)
		}
		return node.NewWatcher(id, o)
	}
	l, err := topology.Generate(nw, rng, validators, watchers, factory)
	require.NoError(t, err)
	return nw, l
}

func TestFloodAllReachesEveryNode(t *testing.T) {
	nw, l := build(t, 2, 3, 8, node.DefaultOptions())
	ctx := context.Background()
	sched := nw.Scheduler()

	v, _ := nw.Host(l.Validators[0])
	for i := 0; i < 20; i++ {
		v.Node().SubmitTransaction()
		require.NoError(t, sched.RunFor(ctx, 0.5))
	}
	require.NoError(t, sched.RunFor(ctx, 30))

	for _, h := range nw.Hosts() {
		assert.Equal(t, 20, h.Node().Stats().TxUnique, h.ID())
		assert.Equal(t, 20, h.Ledger().CountKind(dataType.KindTransaction), h.ID())
	}

	stats, err := CheckInvariants(nw, l, 20)
	require.NoError(t, err)
	assert.Greater(t, stats.WatcherTxTraffic, 0)
	assert.Greater(t, stats.ValidatorAvgHops, 0.0)
}

func TestSelectiveStaysBounded(t *testing.T) {
	o := node.DefaultOptions()
	o.Strategy = node.Selective
	nw, l := build(t, 3, 4, 12, o)
	ctx := context.Background()
	sched := nw.Scheduler()

	w, _ := nw.Host(l.Watchers()[0])
	for i := 0; i < 20; i++ {
		w.Node().SubmitTransaction()
		require.NoError(t, sched.RunFor(ctx, 0.5))
	}
	require.NoError(t, sched.RunFor(ctx, 30))
	assert.Equal(t, 0, sched.Pending())

	assert.Equal(t, 20, w.Node().Stats().TxUnique)
	for _, h := range nw.Hosts() {
		s := h.Node().Stats()
		assert.LessOrEqual(t, s.TxUnique, 20, h.ID())
		assert.Len(t, s.Hops, s.TxUnique+s.SCPUnique, h.ID())
		for _, e := range h.Node().Tracker().Entries() {
			assert.GreaterOrEqual(t, e.Quality, 0)
		}
	}
}

func TestCheckInvariantsDetectsMissingTraffic(t *testing.T) {
	nw, l := build(t, 4, 3, 5, node.DefaultOptions())
	w, _ := nw.Host(l.Watchers()[0])
	w.Node().SubmitTransaction()

	_, err := CheckInvariants(nw, l, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))
	assert.True(t, errors.Is(err, node.ErrNoUniqueTransactions))
}

func TestRunnerScenarios(t *testing.T) {
	tests := []struct {
		name     string
		scenario string
		watchers int
		pull     bool
	}{
		{"tier1", Tier1, 10, false},
		{"tier1 pull", Tier1, 10, true},
		{"churn", Churn, 10, false},
		{"churn model", ChurnModel, 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params(tt.scenario, node.FloodAll)
			p.Watchers = tt.watchers
			if tt.pull {
				p.Node.TxPropagation = node.Pull
			}
			r, err := NewRunner(p, nil, nil)
			require.NoError(t, err)

			var collectors []*metrics.Collector
			r.OnRun = func(_ string, c *metrics.Collector) { collectors = append(collectors, c) }

			s, err := r.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, s.Runs)
			assert.Greater(t, s.Figures["avg_validators_tx_traffic"], 0.0)
			assert.Greater(t, s.Figures["avg_watchers_scp_traffic"], 0.0)
			assert.Len(t, collectors, 1)
		})
	}
}

func TestRunnerIsDeterministic(t *testing.T) {
	p := params(Tier1, node.FloodAll)
	p.Runs = 2

	run := func() metrics.Summary {
		r, err := NewRunner(p, nil, nil)
		require.NoError(t, err)
		s, err := r.Run(context.Background())
		require.NoError(t, err)
		return s
	}
	assert.Equal(t, run().Figures, run().Figures)
}

func TestRunnerPeerSamplingFailsInvariants(t *testing.T) {
	r, err := NewRunner(params(Tier1, node.PeerSampling), nil, nil)
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))
}

func TestNewRunnerUnknownScenario(t *testing.T) {
	_, err := NewRunner(params("mesh", node.FloodAll), nil, nil)
	assert.True(t, errors.Is(err, ErrUnknownScenario))
}

func TestImportantWatcherTraffic(t *testing.T) {
	assert.Equal(t, 0, ImportantWatcherTraffic(nil, nil))

	nw, l := build(t, 6, 2, 6, node.DefaultOptions())
	ctx := context.Background()
	w, _ := nw.Host(l.Watchers()[0])
	w.Node().SubmitTransaction()
	require.NoError(t, nw.Scheduler().RunFor(ctx, 10))

	got := ImportantWatcherTraffic(nw, w.Node())
	want := 0
	for _, e := range w.Node().SelectedPeers() {
		h, _ := nw.Host(e.Peer)
		if h.Node().Role() == node.RoleWatcher {
			want += h.Node().Stats().TxTotal()
		}
	}
	assert.Equal(t, want, got)
}
