package metrics

import (
	"sort"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// RunStats is the aggregate outcome of one simulation run.
type RunStats struct {
	RunID    string
	Scenario string
	Strategy string

	ValidatorTxTraffic  int
	ValidatorSCPTraffic int
	WatcherTxTraffic    int
	WatcherSCPTraffic   int
	// ImportantTxTraffic is the transaction traffic received by the
	// submitter's selected forward set.
	ImportantTxTraffic int

	ValidatorAvgHops    float64
	WatcherAvgHops      float64
	ValidatorAvgLatency float64
	WatcherAvgLatency   float64
}

// RunBuffer is a thread-safe buffer for RunStats
type RunBuffer struct {
	mu      sync.Mutex
	entries []RunStats
}

func NewRunBuffer() *RunBuffer {
	return &RunBuffer{
		entries: make([]RunStats, 0, 16),
	}
}

func (rb *RunBuffer) Add(entry RunStats) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.entries = append(rb.entries, entry)
}

func (rb *RunBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.entries)
}

// Swap returns the buffered runs and empties the buffer.
func (rb *RunBuffer) Swap() []RunStats {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	current := rb.entries
	rb.entries = make([]RunStats, 0, 16)
	return current
}

// Analyzer reduces a batch of runs to named figures.
type Analyzer interface {
	Analyze(runs []RunStats) map[string]float64
}

// Field names one per-run figure.
type Field struct {
	Name  string
	Value func(RunStats) float64
}

// DefaultFields are the per-run figures reported at the end of a scenario.
var DefaultFields = []Field{
	{"watchers_tx_traffic", func(r RunStats) float64 { return float64(r.WatcherTxTraffic) }},
	{"important_watchers_tx_traffic", func(r RunStats) float64 { return float64(r.ImportantTxTraffic) }},
	{"watchers_scp_traffic", func(r RunStats) float64 { return float64(r.WatcherSCPTraffic) }},
	{"validators_tx_traffic", func(r RunStats) float64 { return float64(r.ValidatorTxTraffic) }},
	{"validators_scp_traffic", func(r RunStats) float64 { return float64(r.ValidatorSCPTraffic) }},
	{"validator_hops", func(r RunStats) float64 { return r.ValidatorAvgHops }},
	{"watcher_hops", func(r RunStats) float64 { return r.WatcherAvgHops }},
	{"validator_latency", func(r RunStats) float64 { return r.ValidatorAvgLatency }},
	{"watcher_latency", func(r RunStats) float64 { return r.WatcherAvgLatency }},
}

// MeanAnalyzer averages each field across runs.
type MeanAnalyzer struct {
	Fields []Field
}

func (m *MeanAnalyzer) Analyze(runs []RunStats) map[string]float64 {
	out := make(map[string]float64, len(m.Fields))
	if len(runs) == 0 {
		return out
	}
	for _, f := range m.Fields {
		out["avg_"+f.Name] = stat.Mean(column(runs, f), nil)
	}
	return out
}

// SpreadAnalyzer reports the sample standard deviation of each field.
// Fewer than two runs yield no figures.
type SpreadAnalyzer struct {
	Fields []Field
}

func (s *SpreadAnalyzer) Analyze(runs []RunStats) map[string]float64 {
	out := make(map[string]float64, len(s.Fields))
	if len(runs) < 2 {
		return out
	}
	for _, f := range s.Fields {
		out["stddev_"+f.Name] = stat.StdDev(column(runs, f), nil)
	}
	return out
}

func column(runs []RunStats, f Field) []float64 {
	xs := make([]float64, len(runs))
	for i, r := range runs {
		xs[i] = f.Value(r)
	}
	return xs
}

// Summary is the merged output of all analyzers over one batch.
type Summary struct {
	Runs    int
	Figures map[string]float64
}

// Summarize drains the buffer through analyzers. With no analyzers the
// mean and spread of DefaultFields are used.
func Summarize(rb *RunBuffer, analyzers ...Analyzer) Summary {
	if len(analyzers) == 0 {
		analyzers = []Analyzer{
			&MeanAnalyzer{Fields: DefaultFields},
			&SpreadAnalyzer{Fields: DefaultFields},
		}
	}
	runs := rb.Swap()
	s := Summary{Runs: len(runs), Figures: make(map[string]float64)}
	for _, a := range analyzers {
		for k, v := range a.Analyze(runs) {
			s.Figures[k] = v
		}
	}
	return s
}

// Log writes the summary as one line per figure, in name order.
func (s Summary) Log(lg *zap.Logger) {
	names := make([]string, 0, len(s.Figures))
	for k := range s.Figures {
		names = append(names, k)
	}
	sort.Strings(names)
	lg.Info("averaged stats per run", zap.Int("runs", s.Runs))
	for _, k := range names {
		lg.Info(k, zap.Float64("value", s.Figures[k]))
	}
}
