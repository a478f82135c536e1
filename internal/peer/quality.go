package peer

import (
	"sort"

	"floodsim/internal/dataType"
)

// DefaultGracePeriod is how long after first sighting a duplicate consensus
// message still earns its sender partial credit.
const DefaultGracePeriod = 0.5

const (
	firstSeenCredit = 2
	nearMissCredit  = 1
)

// Tracker is the per-node neighbor quality table keyed by local port.
// It is owned by a single node and is not safe for concurrent use.
type Tracker struct {
	grace     float64
	neighbors map[dataType.Port]*dataType.NeighborEntry
	onChange  func(dataType.NeighborEntry)
	onRemove  func(dataType.Port)
}

func NewTracker(grace float64) *Tracker {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Tracker{
		grace:     grace,
		neighbors: make(map[dataType.Port]*dataType.NeighborEntry),
	}
}

// OnChange registers fn to be called after any neighbor's quality is
// written, including resets.
func (t *Tracker) OnChange(fn func(dataType.NeighborEntry)) {
	t.onChange = fn
}

// OnRemove registers fn to be called when a neighbor row is dropped.
func (t *Tracker) OnRemove(fn func(dataType.Port)) {
	t.onRemove = fn
}

// OnLinkUp inserts a neighbor with quality 0, replacing any stale row.
func (t *Tracker) OnLinkUp(port dataType.Port, peer dataType.NodeID) {
	e := &dataType.NeighborEntry{Port: port, Peer: peer}
	t.neighbors[port] = e
	t.notify(e)
}

// OnLinkDown drops the neighbor on port and zeroes every remaining quality.
// Unknown ports still trigger the reset.
func (t *Tracker) OnLinkDown(port dataType.Port) {
	if _, ok := t.neighbors[port]; ok {
		delete(t.neighbors, port)
		if t.onRemove != nil {
			t.onRemove(port)
		}
	}
	for _, e := range t.neighbors {
		e.Quality = 0
		t.notify(e)
	}
}

// OnConsensusArrival credits the neighbor on port for delivering a consensus
// message. firstSeenAt is only meaningful when firstSeen is false.
func (t *Tracker) OnConsensusArrival(port dataType.Port, firstSeen bool, firstSeenAt, now float64) {
	e, ok := t.neighbors[port]
	if !ok {
		return
	}
	switch {
	case firstSeen:
		e.Quality += firstSeenCredit
	case now-firstSeenAt <= t.grace:
		e.Quality += nearMissCredit
	default:
		return
	}
	t.notify(e)
}

func (t *Tracker) notify(e *dataType.NeighborEntry) {
	if t.onChange != nil {
		t.onChange(*e)
	}
}

// Quality returns the quality of the neighbor on port.
func (t *Tracker) Quality(port dataType.Port) (int, bool) {
	e, ok := t.neighbors[port]
	if !ok {
		return 0, false
	}
	return e.Quality, true
}

func (t *Tracker) Len() int {
	return len(t.neighbors)
}

// AnyPositive reports whether at least one neighbor has quality above zero.
func (t *Tracker) AnyPositive() bool {
	for _, e := range t.neighbors {
		if e.Quality > 0 {
			return true
		}
	}
	return false
}

// Entries returns a snapshot of the table ordered by port.
func (t *Tracker) Entries() []dataType.NeighborEntry {
	out := make([]dataType.NeighborEntry, 0, len(t.neighbors))
	for _, e := range t.neighbors {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// Ports returns the connected ports in ascending order.
func (t *Tracker) Ports() []dataType.Port {
	out := make([]dataType.Port, 0, len(t.neighbors))
	for p := range t.neighbors {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
