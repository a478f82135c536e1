package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"floodsim/internal/dataType"
	"floodsim/internal/node"

	"go.uber.org/zap"
)

var (
	ErrUnknownNode   = errors.New("unknown node")
	ErrDuplicateNode = errors.New("node already exists")
	ErrAlreadyLinked = errors.New("nodes already linked")
	ErrNotLinked     = errors.New("nodes not linked")
	ErrSelfLink      = errors.New("cannot link a node to itself")
)

const (
	DefaultLatency = 0.1
	DefaultJitter  = 0.05
)

type NetworkOptions struct {
	// Latency is the base one-way delay of every link, in seconds.
	Latency float64
	// Jitter is the spread added on top of Latency, drawn once per link.
	Jitter float64
	Logger *zap.Logger
}

// link is one bidirectional connection. A link is never reused once down;
// relinking the same pair allocates fresh ports.
type link struct {
	a, b         *Host
	portA, portB dataType.Port
	latency      float64
	up           bool
}

func (l *link) other(h *Host) (*Host, dataType.Port) {
	if h == l.a {
		return l.b, l.portB
	}
	return l.a, l.portA
}

// Network owns the hosts of one simulation run and the links between them.
type Network struct {
	sched *Scheduler
	rng   *rand.Rand
	opts  NetworkOptions
	lg    *zap.Logger
	hosts map[dataType.NodeID]*Host
}

func NewNetwork(sched *Scheduler, rng *rand.Rand, opts NetworkOptions) *Network {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Latency < 0 {
		opts.Latency = 0
	}
	if opts.Jitter < 0 {
		opts.Jitter = 0
	}
	return &Network{
		sched: sched,
		rng:   rng,
		opts:  opts,
		lg:    opts.Logger,
		hosts: make(map[dataType.NodeID]*Host),
	}
}

func (nw *Network) Scheduler() *Scheduler { return nw.sched }

// Add places n on the network and attaches it to a fresh host.
func (nw *Network) Add(n *node.Node) (*Host, error) {
	if _, ok := nw.hosts[n.ID()]; ok {
		return nil, fmt.Errorf("add %s: %w", n.ID(), ErrDuplicateNode)
	}
	h := newHost(nw, n)
	nw.hosts[n.ID()] = h
	n.Attach(h)
	return h, nil
}

func (nw *Network) Host(id dataType.NodeID) (*Host, bool) {
	h, ok := nw.hosts[id]
	return h, ok
}

// Hosts returns every live host ordered by node id.
func (nw *Network) Hosts() []*Host {
	out := make([]*Host, 0, len(nw.hosts))
	for _, h := range nw.hosts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (nw *Network) lookupPair(a, b dataType.NodeID) (*Host, *Host, error) {
	ha, ok := nw.hosts[a]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", a, ErrUnknownNode)
	}
	hb, ok := nw.hosts[b]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", b, ErrUnknownNode)
	}
	return ha, hb, nil
}

// Link connects a and b, allocating a new port on each side and notifying
// both nodes.
func (nw *Network) Link(a, b dataType.NodeID) error {
	if a == b {
		return fmt.Errorf("link %s: %w", a, ErrSelfLink)
	}
	ha, hb, err := nw.lookupPair(a, b)
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}
	if _, ok := ha.peers[b]; ok {
		return fmt.Errorf("link %s-%s: %w", a, b, ErrAlreadyLinked)
	}

	l := &link{
		a:       ha,
		b:       hb,
		portA:   ha.allocPort(),
		portB:   hb.allocPort(),
		latency: nw.opts.Latency + nw.opts.Jitter*nw.rng.Float64(),
		up:      true,
	}
	ha.attachLink(l.portA, b, l)
	hb.attachLink(l.portB, a, l)

	ha.node.OnLinkUp(l.portA, b)
	hb.node.OnLinkUp(l.portB, a)
	nw.lg.Debug("link up", zap.String("a", string(a)), zap.String("b", string(b)), zap.Float64("latency", l.latency))
	return nil
}

// Unlink tears down the link between a and b. Packets in flight on it are
// dropped.
func (nw *Network) Unlink(a, b dataType.NodeID) error {
	ha, _, err := nw.lookupPair(a, b)
	if err != nil {
		return fmt.Errorf("unlink: %w", err)
	}
	port, ok := ha.peers[b]
	if !ok {
		return fmt.Errorf("unlink %s-%s: %w", a, b, ErrNotLinked)
	}
	nw.unlink(ha.links[port])
	return nil
}

func (nw *Network) unlink(l *link) {
	l.up = false
	l.a.detachLink(l.portA, l.b.id)
	l.b.detachLink(l.portB, l.a.id)
	l.a.node.OnLinkDown(l.portA)
	l.b.node.OnLinkDown(l.portB)
	nw.lg.Debug("link down", zap.String("a", string(l.a.id)), zap.String("b", string(l.b.id)))
}

func (nw *Network) IsLinked(a, b dataType.NodeID) bool {
	ha, ok := nw.hosts[a]
	if !ok {
		return false
	}
	_, ok = ha.peers[b]
	return ok
}

// Remove disconnects id from all peers and tears its host down.
func (nw *Network) Remove(id dataType.NodeID) error {
	h, ok := nw.hosts[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrUnknownNode)
	}
	for _, port := range h.Ports() {
		nw.unlink(h.links[port])
	}
	h.teardown()
	delete(nw.hosts, id)
	return nil
}

// Reset removes every host.
func (nw *Network) Reset() {
	for _, h := range nw.Hosts() {
		_ = nw.Remove(h.id)
	}
}
