package topology

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"floodsim/internal/dataType"
	"floodsim/internal/node"
	"floodsim/internal/sim"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Factory builds the node for one identity.
type Factory func(id dataType.NodeID, role node.Role) *node.Node

func ValidatorID(i int) dataType.NodeID { return dataType.NodeID(fmt.Sprintf("val%d", i)) }
func WatcherID(i int) dataType.NodeID { return dataType.NodeID(fmt.Sprintf("wat%d", i)) }

// Layout is the node placement of one run. Graph holds the watcher overlay;
// graph node i is watcher WatcherID(i).
type Layout struct {
	Validators []dataType.NodeID
	Graph      *simple.UndirectedGraph

	watchers map[int64]dataType.NodeID
}

// Watchers returns the live watchers ordered by graph index.
func (l *Layout) Watchers() []dataType.NodeID {
	idx := l.watcherIndexes()
	out := make([]dataType.NodeID, len(idx))
	for i, id := range idx {
		out[i] = l.watchers[id]
	}
	return out
}

func (l *Layout) watcherIndexes() []int64 {
	idx := make([]int64, 0, len(l.watchers))
	for id := range l.watchers {
		idx = append(idx, id)
	}
	sort.Slice(idx, func(i, j int) bool { return idx[i] < idx[j] })
	return idx
}

// Degrees returns the overlay degree of each live watcher, in Watchers order.
func (l *Layout) Degrees() []int {
	idx := l.watcherIndexes()
	out := make([]int, len(idx))
	for i, id := range idx {
		out[i] = l.Graph.From(id).Len()
	}
	return out
}

// ConnectedProbability is the Erdős–Rényi edge probability 2 ln n / n, above
// the connectivity threshold for large n.
func ConnectedProbability(n int) float64 {
	if n <= 1 {
		return 1
	}
	return math.Min(1, 2*math.Log(float64(n))/float64(n))
}

// ErdosRenyi draws G(n, p).
func ErdosRenyi(n int, p float64, rng *rand.Rand) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < p {
				g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
	}
	return g
}

// ConnectAll links every pair in ids.
func ConnectAll(nw *sim.Network, ids []dataType.NodeID) error {
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if err := nw.Link(ids[i], ids[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Generate builds a fully connected validator tier and an Erdős–Rényi
// watcher overlay attached to it.
func Generate(nw *sim.Network, rng *rand.Rand, validators, watchers int, factory Factory) (*Layout, error) {
	return generate(nw, rng, validators, watchers, nil, factory)
}

// generate draws the watcher graph after the validator tier is linked, unless
// g is supplied.
func generate(nw *sim.Network, rng *rand.Rand, validators, watchers int, g *simple.UndirectedGraph, factory Factory) (*Layout, error) {
	if validators <= 0 {
		return nil, errors.New("topology needs at least one validator")
	}
	l := &Layout{watchers: make(map[int64]dataType.NodeID)}

	for i := 0; i < validators; i++ {
		id := ValidatorID(i)
		if _, err := nw.Add(factory(id, node.RoleValidator)); err != nil {
			return nil, err
		}
		l.Validators = append(l.Validators, id)
	}
	if err := ConnectAll(nw, l.Validators); err != nil {
		return nil, fmt.Errorf("connect validators: %w", err)
	}

	if g == nil {
		g = ErdosRenyi(watchers, ConnectedProbability(watchers), rng)
	}
	l.Graph = g
	for i := 0; i < watchers; i++ {
		id := WatcherID(i)
		if _, err := nw.Add(factory(id, node.RoleWatcher)); err != nil {
			return nil, err
		}
		l.watchers[int64(i)] = id
	}
	for i := 0; i < watchers; i++ {
		for j := i + 1; j < watchers; j++ {
			if l.Graph.HasEdgeBetween(int64(i), int64(j)) {
				if err := nw.Link(WatcherID(i), WatcherID(j)); err != nil {
					return nil, err
				}
			}
		}
	}
	if watchers == 0 {
		return l, nil
	}

	comps := components(l.Graph)
	if len(comps) > 1 {
		for _, c := range comps {
			val := l.Validators[rng.Intn(len(l.Validators))]
			if err := nw.Link(l.watchers[c[0]], val); err != nil {
				return nil, err
			}
		}
		return l, nil
	}
	if err := nw.Link(WatcherID(0), l.Validators[0]); err != nil {
		return nil, err
	}
	return l, nil
}

// Connected reports whether the watcher overlay is a single component.
func (l *Layout) Connected() bool {
	return len(components(l.Graph)) <= 1
}

// ChurnRandom removes k random live watchers and repairs connectivity.
func ChurnRandom(nw *sim.Network, l *Layout, rng *rand.Rand, k int) ([]dataType.NodeID, error) {
	idx := l.watcherIndexes()
	if k > len(idx)-1 {
		k = len(idx) - 1
	}
	if k <= 0 {
		return nil, nil
	}
	var victims []int64
	for _, i := range rng.Perm(len(idx))[:k] {
		victims = append(victims, idx[i])
	}
	return Churn(nw, l, rng, victims)
}

// Churn removes the watchers at the given graph indexes. Afterwards, if the
// remaining overlay is disconnected, one watcher of every component is linked
// to a random validator; otherwise a random watcher is linked to a random
// validator unless the two are already connected.
func Churn(nw *sim.Network, l *Layout, rng *rand.Rand, victims []int64) ([]dataType.NodeID, error) {
	var removed []dataType.NodeID
	for _, v := range victims {
		id, ok := l.watchers[v]
		if !ok {
			return removed, fmt.Errorf("churn: watcher index %d: %w", v, sim.ErrUnknownNode)
		}
		l.Graph.RemoveNode(v)
		delete(l.watchers, v)
		if err := nw.Remove(id); err != nil {
			return removed, err
		}
		removed = append(removed, id)
	}

	live := l.Watchers()
	if len(live) == 0 {
		return removed, nil
	}
	randWat := live[rng.Intn(len(live))]
	randVal := l.Validators[rng.Intn(len(l.Validators))]

	comps := components(l.Graph)
	if len(comps) > 1 {
		for _, c := range comps {
			id := l.watchers[c[0]]
			if nw.IsLinked(id, randVal) {
				continue
			}
			if err := nw.Link(id, randVal); err != nil {
				return removed, err
			}
		}
		return removed, nil
	}
	if !nw.IsLinked(randWat, randVal) {
		if err := nw.Link(randWat, randVal); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// components returns the connected components of g as sorted index lists,
// ordered by their smallest index.
func components(g graph.Undirected) [][]int64 {
	var out [][]int64
	for _, cc := range topo.ConnectedComponents(g) {
		ids := make([]int64, len(cc))
		for i, n := range cc {
			ids[i] = n.ID()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
