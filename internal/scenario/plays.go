package scenario

import (
	"context"
	"fmt"
	"math/rand"

	"floodsim/internal/dataType"
	"floodsim/internal/metrics"
	"floodsim/internal/node"
	"floodsim/internal/sim"
	"floodsim/internal/topology"

	"go.uber.org/zap"
)

const (
	Tier1      = "tier1"
	Churn      = "churn"
	ChurnModel = "churn_model"
)

// Play drives one run on a freshly generated network.
type Play func(ctx context.Context, e *Env) (metrics.RunStats, error)

var plays = map[string]Play{
	Tier1:      playTier1,
	Churn:      playChurn(churnPlan{preDrain: 10, postDrain: 2}),
	ChurnModel: playChurn(churnPlan{preDrain: 2, postDrain: 3, victims: []int64{2, 5}}),
}

// Names lists the known scenarios.
func Names() []string {
	return []string{Tier1, Churn, ChurnModel}
}

// Env is the state of one run handed to a Play.
type Env struct {
	RunID  string
	Params Params
	Net    *sim.Network
	Layout *topology.Layout
	Rng    *rand.Rand
	Log    *zap.Logger
}

func (e *Env) Scheduler() *sim.Scheduler { return e.Net.Scheduler() }

func (e *Env) Node(id dataType.NodeID) *node.Node {
	h, ok := e.Net.Host(id)
	if !ok {
		return nil
	}
	return h.Node()
}

// SetEmitting toggles consensus emission on every validator.
func (e *Env) SetEmitting(on bool) {
	for _, id := range e.Layout.Validators {
		if n := e.Node(id); n != nil {
			n.SetEmitting(on)
		}
	}
}

// PickSubmitter chooses a random live watcher, or the first validator when
// there are none.
func (e *Env) PickSubmitter() *node.Node {
	ws := e.Layout.Watchers()
	if len(ws) == 0 {
		return e.Node(e.Layout.Validators[0])
	}
	return e.Node(ws[e.Rng.Intn(len(ws))])
}

func playTier1(ctx context.Context, e *Env) (metrics.RunStats, error) {
	w := e.PickSubmitter()
	e.Log.Info("submit from", zap.Stringer("node", w))

	for i := 0; i < e.Params.Transactions; i++ {
		w.SubmitTransaction()
		if err := e.Scheduler().RunFor(ctx, 0.5); err != nil {
			return metrics.RunStats{}, err
		}
	}

	// make sure txs reach everyone
	e.SetEmitting(false)
	if err := e.Scheduler().RunFor(ctx, 30); err != nil {
		return metrics.RunStats{}, err
	}
	return finish(e, w)
}

type churnPlan struct {
	preDrain  float64
	postDrain float64
	// victims are fixed watcher indexes; nil removes ChurnDisconnects random watchers.
	victims []int64
}

func playChurn(plan churnPlan) Play {
	return func(ctx context.Context, e *Env) (metrics.RunStats, error) {
		sched := e.Scheduler()
		if err := sched.RunFor(ctx, 2); err != nil {
			return metrics.RunStats{}, err
		}

		w := e.PickSubmitter()
		churned := false
		n := e.Params.Transactions
		for i := 0; i < n; i++ {
			w.SubmitTransaction()
			if err := sched.RunFor(ctx, 1); err != nil {
				return metrics.RunStats{}, err
			}
			if churned || i*3 <= n {
				continue
			}

			e.SetEmitting(false)
			if err := sched.RunFor(ctx, plan.preDrain); err != nil {
				return metrics.RunStats{}, err
			}
			removed, err := e.churn(plan)
			if err != nil {
				return metrics.RunStats{}, fmt.Errorf("churn: %w", err)
			}
			e.Log.Info("churn", zap.Int("at_tx", i), zap.Any("removed", removed))
			w = e.PickSubmitter()
			churned = true

			if err := sched.RunFor(ctx, plan.postDrain); err != nil {
				return metrics.RunStats{}, err
			}
			e.SetEmitting(true)
		}

		e.SetEmitting(false)
		if err := sched.RunFor(ctx, 10); err != nil {
			return metrics.RunStats{}, err
		}
		return finish(e, w)
	}
}

func (e *Env) churn(plan churnPlan) ([]dataType.NodeID, error) {
	if plan.victims != nil {
		return topology.Churn(e.Net, e.Layout, e.Rng, plan.victims)
	}
	return topology.ChurnRandom(e.Net, e.Layout, e.Rng, e.Params.ChurnDisconnects)
}

func finish(e *Env, submitter *node.Node) (metrics.RunStats, error) {
	stats, err := CheckInvariants(e.Net, e.Layout, e.Params.Transactions)
	if err != nil {
		return stats, err
	}
	stats.ImportantTxTraffic = ImportantWatcherTraffic(e.Net, submitter)
	return stats, nil
}
