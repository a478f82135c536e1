package node

import (
	"fmt"
	"slices"

	"floodsim/internal/dataType"
	"floodsim/internal/metrics"
	"floodsim/internal/peer"

	"go.uber.org/zap"
)

const (
	DefaultRounds   = 2
	DefaultInterval = 1.0

	// demandRetry is how long a node waits on an outstanding demand before
	// asking another advertiser for the same key.
	demandRetry = 1.0
)

type Options struct {
	Strategy          Strategy
	MaxClusters       int
	Redundancy        int
	RefloodDuplicates bool
	TxPropagation     TxPropagation
	GracePeriod       float64

	// Validator emission.
	Rounds   int
	Interval float64

	Logger  *zap.Logger
	Metrics *metrics.Collector
}

func DefaultOptions() Options {
	return Options{
		Strategy:          FloodAll,
		MaxClusters:       peer.DefaultMaxClusters,
		RefloodDuplicates: true,
		TxPropagation:     Push,
		GracePeriod:       peer.DefaultGracePeriod,
		Rounds:            DefaultRounds,
		Interval:          DefaultInterval,
	}
}

// Node is one validator or watcher. All methods must be called from the
// substrate's event loop.
type Node struct {
	id   dataType.NodeID
	role Role
	opts Options
	lg   *zap.Logger

	sub     Substrate
	tracker *peer.Tracker
	stats   metrics.NodeStats

	txSeq     uint64
	advertSeq uint64
	demandSeq uint64
	demanded  map[dataType.PacketKey]float64

	// validator only
	round    int
	emitting bool
	timer    Timer
}

func NewValidator(id dataType.NodeID, opts Options) *Node {
	n := newNode(id, RoleValidator, opts)
	n.emitting = true
	return n
}

func NewWatcher(id dataType.NodeID, opts Options) *Node {
	return newNode(id, RoleWatcher, opts)
}

func newNode(id dataType.NodeID, role Role, opts Options) *Node {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TxPropagation == "" {
		opts.TxPropagation = Push
	}
	if opts.Rounds < 0 {
		opts.Rounds = 0
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	n := &Node{
		id:       id,
		role:     role,
		opts:     opts,
		lg:       opts.Logger.With(zap.String("node", string(id)), zap.Stringer("role", role)),
		tracker:  peer.NewTracker(opts.GracePeriod),
		demanded: make(map[dataType.PacketKey]float64),
	}
	if opts.Metrics != nil {
		n.tracker.OnChange(func(e dataType.NeighborEntry) {
			opts.Metrics.SetQuality(string(id), e.Port, e.Quality)
		})
		n.tracker.OnRemove(func(p dataType.Port) {
			opts.Metrics.DeleteQuality(string(id), p)
		})
	}
	return n
}

func (n *Node) ID() dataType.NodeID { return n.id }
func (n *Node) Role() Role { return n.role }
func (n *Node) Strategy() Strategy { return n.opts.Strategy }
func (n *Node) Substrate() Substrate { return n.sub }
func (n *Node) String() string { return string(n.id) }
func (n *Node) Tracker() *peer.Tracker { return n.tracker }

// Stats returns a snapshot of the node's counters and traces.
func (n *Node) Stats() metrics.NodeStats {
	s := n.stats
	s.Hops = slices.Clone(n.stats.Hops)
	s.Latency = slices.Clone(n.stats.Latency)
	return s
}

// Attach binds the node to its substrate. Validators start their emission
// timer here.
func (n *Node) Attach(sub Substrate) {
	n.sub = sub
	if n.role == RoleValidator && n.opts.Rounds > 0 {
		n.timer = sub.CreateTimer(n.opts.Interval, n.tick)
	}
}

// Detach stops any timer the node owns.
func (n *Node) Detach() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Node) OnLinkUp(port dataType.Port, peerID dataType.NodeID) {
	n.tracker.OnLinkUp(port, peerID)
	n.lg.Debug("link up", zap.Int("port", int(port)), zap.String("peer", string(peerID)))
}

func (n *Node) OnLinkDown(port dataType.Port) {
	n.tracker.OnLinkDown(port)
	n.lg.Debug("link down", zap.Int("port", int(port)))
}

// SubmitTransaction originates a new transaction at this node and returns
// its key.
func (n *Node) SubmitTransaction() dataType.PacketKey {
	tx := &dataType.Transaction{
		Seq:       n.txSeq,
		Origin:    n.id,
		CreatedAt: n.sub.Now(),
	}
	n.txSeq++
	n.sub.Inject(tx)
	return tx.Key()
}

// HandleReceive processes one arrival of pkt on inPort. The substrate
// records the packet in the ledger after this returns, so ledger presence
// here means the packet was seen before.
func (n *Node) HandleReceive(pkt dataType.Packet, inPort dataType.Port) {
	key := pkt.Key()
	now := n.sub.Now()
	entry, seen := n.sub.Floodmap().Lookup(key)
	unique := !seen

	class := key.Kind.Class()
	n.stats.Count(class, unique)
	n.opts.Metrics.ObservePacket(string(n.id), n.role.String(), class, unique)

	if key.Kind == dataType.KindSCP && inPort != dataType.NoPort {
		n.tracker.OnConsensusArrival(inPort, unique, entry.FirstSeen, now)
	}

	switch p := pkt.(type) {
	case *dataType.Transaction:
		n.handleTransaction(p, inPort, unique)
	case *dataType.SCPMessage:
		n.handleSCP(p, inPort, unique)
	case *dataType.AdvertOffer:
		n.handleAdvert(p, inPort, unique)
	case *dataType.DemandRequest:
		n.handleDemand(p, inPort, unique)
	default:
		panic(fmt.Sprintf("node %s: unknown packet type %T", n.id, pkt))
	}
}

func (n *Node) handleTransaction(tx *dataType.Transaction, inPort dataType.Port, unique bool) {
	if unique {
		delete(n.demanded, tx.Key())
		n.recordHops(tx, dataType.ClassTransaction)
		if n.role == RoleWatcher {
			n.recordLatency(tx.CreatedAt, dataType.ClassTransaction)
		}
		if n.opts.TxPropagation == Pull {
			n.advertise(tx.Key(), inPort)
			return
		}
	} else if n.opts.TxPropagation == Pull {
		return
	}
	n.forward(tx, inPort)
}

func (n *Node) handleSCP(msg *dataType.SCPMessage, inPort dataType.Port, unique bool) {
	if unique {
		n.recordHops(msg, dataType.ClassConsensus)
		n.recordLatency(msg.CreatedAt, dataType.ClassConsensus)
	} else if !n.opts.RefloodDuplicates {
		return
	}
	if n.role == RoleWatcher {
		n.sub.Flood(msg, inPort)
		return
	}
	n.forward(msg, inPort)
}

func (n *Node) handleAdvert(ad *dataType.AdvertOffer, inPort dataType.Port, unique bool) {
	if !unique || inPort == dataType.NoPort {
		return
	}
	n.recordHops(ad, dataType.ClassConsensus)

	now := n.sub.Now()
	var missing []dataType.PacketKey
	for _, k := range ad.Keys {
		if _, ok := n.sub.Floodmap().Lookup(k); ok {
			continue
		}
		if at, pending := n.demanded[k]; pending && now-at < demandRetry {
			continue
		}
		n.demanded[k] = now
		missing = append(missing, k)
	}
	if len(missing) == 0 {
		return
	}
	n.demandSeq++
	n.sub.Send(&dataType.DemandRequest{
		ID:   dataType.PacketKey{Kind: dataType.KindDemand, Origin: n.id, Seq: n.demandSeq},
		Keys: missing,
	}, []dataType.Port{inPort})
}

func (n *Node) handleDemand(d *dataType.DemandRequest, inPort dataType.Port, unique bool) {
	if !unique || inPort == dataType.NoPort {
		return
	}
	n.recordHops(d, dataType.ClassConsensus)

	for _, k := range d.Keys {
		entry, ok := n.sub.Floodmap().Lookup(k)
		if !ok {
			n.lg.Debug("demand for unknown key", zap.Stringer("key", k))
			continue
		}
		n.sub.Send(entry.Packet, []dataType.Port{inPort})
	}
}

// advertise offers key to the strategy's forward set.
func (n *Node) advertise(key dataType.PacketKey, inPort dataType.Port) {
	ports := n.forwardSet(inPort)
	if len(ports) == 0 {
		return
	}
	n.advertSeq++
	n.sub.Send(&dataType.AdvertOffer{
		ID:   dataType.PacketKey{Kind: dataType.KindAdvert, Origin: n.id, Seq: n.advertSeq},
		Keys: []dataType.PacketKey{key},
	}, ports)
}

// forward sends pkt according to the node's strategy.
func (n *Node) forward(pkt dataType.Packet, inPort dataType.Port) {
	switch n.opts.Strategy {
	case FloodAll:
		n.sub.Flood(pkt, inPort)
	case Selective:
		if !n.tracker.AnyPositive() {
			n.sub.Flood(pkt, inPort)
			return
		}
		n.sub.Send(pkt, n.selected(inPort))
	case PeerSampling:
	default:
		panic(fmt.Sprintf("node %s: unknown strategy %v", n.id, n.opts.Strategy))
	}
}

// forwardSet resolves the strategy to explicit ports.
func (n *Node) forwardSet(inPort dataType.Port) []dataType.Port {
	switch n.opts.Strategy {
	case Selective:
		if n.tracker.AnyPositive() {
			return n.selected(inPort)
		}
	case PeerSampling:
		return nil
	}
	return without(n.tracker.Ports(), inPort)
}

// selected clusters every neighbor but inPort, so the redundancy cap counts
// only peers that can actually receive the packet.
func (n *Node) selected(inPort dataType.Port) []dataType.Port {
	entries := n.tracker.Entries()
	candidates := entries[:0]
	for _, e := range entries {
		if e.Port != inPort {
			candidates = append(candidates, e)
		}
	}
	return peer.SelectForwardSet(candidates, n.opts.MaxClusters, n.opts.Redundancy)
}

// SelectedPeers returns the neighbors the selector currently favours,
// regardless of the node's strategy.
func (n *Node) SelectedPeers() []dataType.NeighborEntry {
	ports := peer.SelectForwardSet(n.tracker.Entries(), n.opts.MaxClusters, n.opts.Redundancy)
	out := make([]dataType.NeighborEntry, 0, len(ports))
	for _, e := range n.tracker.Entries() {
		if slices.Contains(ports, e.Port) {
			out = append(out, e)
		}
	}
	return out
}

func (n *Node) recordHops(pkt dataType.Packet, class dataType.Class) {
	h := len(pkt.Trace())
	n.stats.Hops = append(n.stats.Hops, h)
	n.opts.Metrics.ObserveHops(n.role.String(), class, h)
}

func (n *Node) recordLatency(createdAt float64, class dataType.Class) {
	l := n.sub.Now() - createdAt
	n.stats.Latency = append(n.stats.Latency, l)
	n.opts.Metrics.ObserveLatency(n.role.String(), class, l)
}

func without(ports []dataType.Port, p dataType.Port) []dataType.Port {
	out := make([]dataType.Port, 0, len(ports))
	for _, q := range ports {
		if q != p {
			out = append(out, q)
		}
	}
	return out
}
