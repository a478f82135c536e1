package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"floodsim/internal/dataType"
	"floodsim/internal/metrics"
	"floodsim/internal/node"
	"floodsim/internal/sim"
	"floodsim/internal/topology"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnknownScenario = errors.New("unknown scenario")

// Params describes a batch of runs.
type Params struct {
	Name         string
	Runs         int
	Seed         int64
	Validators   int
	Watchers     int
	Transactions int
	Latency      float64
	Jitter       float64
	// ChurnDisconnects is how many watchers the churn scenario removes.
	ChurnDisconnects int
	// Node is the template for every node; Logger and Metrics are filled per run.
	Node node.Options
}

// Loggers hands out one logger per simulated node.
type Loggers interface {
	Logger(name string) *zap.Logger
}

type nopLoggers struct{}

func (nopLoggers) Logger(string) *zap.Logger { return zap.NewNop() }

// Runner executes a scenario Runs times with consecutive seeds and
// summarises the results.
type Runner struct {
	params Params
	play   Play
	logs   Loggers
	lg     *zap.Logger
	buffer *metrics.RunBuffer

	// OnRun, if set, is called with each run's collector before the run starts.
	OnRun func(runID string, c *metrics.Collector)
}

func NewRunner(p Params, logs Loggers, lg *zap.Logger) (*Runner, error) {
	play, ok := plays[p.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, p.Name)
	}
	if p.Runs <= 0 {
		p.Runs = 1
	}
	if logs == nil {
		logs = nopLoggers{}
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Runner{
		params: p,
		play:   play,
		logs:   logs,
		lg:     lg,
		buffer: metrics.NewRunBuffer(),
	}, nil
}

// Run executes every run and returns the averaged summary. The first failing
// run aborts the batch.
func (r *Runner) Run(ctx context.Context) (metrics.Summary, error) {
	for i := 0; i < r.params.Runs; i++ {
		stats, err := r.runOnce(ctx, i)
		if err != nil {
			return metrics.Summary{}, fmt.Errorf("run %d: %w", i+1, err)
		}
		r.buffer.Add(stats)
	}
	s := metrics.Summarize(r.buffer)
	s.Log(r.lg)
	return s, nil
}

func (r *Runner) runOnce(ctx context.Context, i int) (metrics.RunStats, error) {
	runID := uuid.NewString()
	rng := rand.New(rand.NewSource(r.params.Seed + int64(i)))
	collector := metrics.NewCollector(runID)
	if r.OnRun != nil {
		r.OnRun(runID, collector)
	}

	nw := sim.NewNetwork(sim.NewScheduler(), rng, sim.NetworkOptions{
		Latency: r.params.Latency,
		Jitter:  r.params.Jitter,
		Logger:  r.lg,
	})
	defer nw.Reset()

	factory := func(id dataType.NodeID, role node.Role) *node.Node {
		o := r.params.Node
		o.Logger = r.logs.Logger(string(id))
		o.Metrics = collector
		if role == node.RoleValidator {
			return node.NewValidator(id, o)
		}
		return node.NewWatcher(id, o)
	}
	layout, err := topology.Generate(nw, rng, r.params.Validators, r.params.Watchers, factory)
	if err != nil {
		return metrics.RunStats{}, fmt.Errorf("generate topology: %w", err)
	}

	lg := r.lg.With(zap.String("run", runID))
	lg.Info("run begin",
		zap.Int("run_number", i+1),
		zap.String("scenario", r.params.Name),
		zap.Stringer("strategy", r.params.Node.Strategy),
		zap.Int("graph_size", len(layout.Validators)+len(layout.Watchers())),
		zap.Ints("watcher_degrees", layout.Degrees()))

	e := &Env{
		RunID:  runID,
		Params: r.params,
		Net:    nw,
		Layout: layout,
		Rng:    rng,
		Log:    lg,
	}
	stats, err := r.play(ctx, e)
	if err != nil {
		return stats, err
	}
	stats.RunID = runID
	stats.Scenario = r.params.Name
	stats.Strategy = r.params.Node.Strategy.String()

	lg.Info("validators traffic", zap.Int("scp", stats.ValidatorSCPTraffic), zap.Int("tx", stats.ValidatorTxTraffic))
	lg.Info("watchers traffic", zap.Int("scp", stats.WatcherSCPTraffic), zap.Int("tx", stats.WatcherTxTraffic))
	lg.Info("run done", zap.Int("run_number", i+1))
	return stats, nil
}
