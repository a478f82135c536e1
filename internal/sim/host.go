package sim

import (
	"sort"

	"floodsim/internal/dataType"
	"floodsim/internal/node"

	"go.uber.org/zap"
)

// Host is the per-node side of the network. It owns the node's ledger and
// ports and implements node.Substrate.
type Host struct {
	id     dataType.NodeID
	nw     *Network
	node   *node.Node
	ledger *dataType.Floodmap

	nextPort dataType.Port
	links    map[dataType.Port]*link
	peers    map[dataType.NodeID]dataType.Port

	// sentOn remembers which ports already carried a key. A host transmits
	// a key on a port at most once.
	sentOn map[dataType.PacketKey]map[dataType.Port]struct{}

	timers     []*Ticker
	sent       int
	suppressed int
	removed    bool
}

var _ node.Substrate = (*Host)(nil)

func newHost(nw *Network, n *node.Node) *Host {
	return &Host{
		id:       n.ID(),
		nw:       nw,
		node:     n,
		ledger:   dataType.NewFloodmap(0),
		nextPort: dataType.NoPort,
		links:    make(map[dataType.Port]*link),
		peers:    make(map[dataType.NodeID]dataType.Port),
		sentOn:   make(map[dataType.PacketKey]map[dataType.Port]struct{}),
	}
}

func (h *Host) ID() dataType.NodeID { return h.id }
func (h *Host) Node() *node.Node { return h.node }
func (h *Host) Ledger() *dataType.Floodmap { return h.ledger }

// Sent is the number of packets put on the wire by this host.
func (h *Host) Sent() int { return h.sent }

// Suppressed is the number of sends skipped because the port already
// carried the key.
func (h *Host) Suppressed() int { return h.suppressed }

func (h *Host) allocPort() dataType.Port {
	h.nextPort++
	return h.nextPort
}

func (h *Host) attachLink(port dataType.Port, peer dataType.NodeID, l *link) {
	h.links[port] = l
	h.peers[peer] = port
}

func (h *Host) detachLink(port dataType.Port, peer dataType.NodeID) {
	delete(h.links, port)
	delete(h.peers, peer)
}

// Ports returns the connected ports in ascending order.
func (h *Host) Ports() []dataType.Port {
	out := make([]dataType.Port, 0, len(h.links))
	for p := range h.links {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Peers returns the ids of connected nodes in ascending order.
func (h *Host) Peers() []dataType.NodeID {
	out := make([]dataType.NodeID, 0, len(h.peers))
	for id := range h.peers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PortTo returns the local port linked to peer.
func (h *Host) PortTo(peer dataType.NodeID) (dataType.Port, bool) {
	p, ok := h.peers[peer]
	return p, ok
}

func (h *Host) Now() float64 { return h.nw.sched.Now() }

func (h *Host) Floodmap() node.Ledger { return h.ledger }

func (h *Host) Flood(pkt dataType.Packet, exclude dataType.Port) {
	for _, p := range h.Ports() {
		if p != exclude {
			h.transmit(pkt, p)
		}
	}
}

func (h *Host) Send(pkt dataType.Packet, ports []dataType.Port) {
	for _, p := range ports {
		h.transmit(pkt, p)
	}
}

func (h *Host) transmit(pkt dataType.Packet, port dataType.Port) {
	if h.removed {
		return
	}
	l, ok := h.links[port]
	if !ok {
		h.nw.lg.Debug("send on unknown port", zap.String("node", string(h.id)), zap.Int("port", int(port)))
		return
	}
	key := pkt.Key()
	ports, ok := h.sentOn[key]
	if !ok {
		ports = make(map[dataType.Port]struct{})
		h.sentOn[key] = ports
	}
	if _, done := ports[port]; done {
		h.suppressed++
		return
	}
	ports[port] = struct{}{}
	h.sent++

	out := pkt.WithHop(h.id)
	remote, rport := l.other(h)
	h.nw.sched.After(l.latency, func() {
		if !l.up || remote.removed {
			return
		}
		remote.deliver(out, rport)
	})
}

// deliver hands pkt to the node and then records it in the ledger, so the
// node sees the ledger as it was before this arrival.
func (h *Host) deliver(pkt dataType.Packet, port dataType.Port) {
	h.node.HandleReceive(pkt, port)
	h.ledger.Record(pkt, h.Now())
}

func (h *Host) Inject(pkt dataType.Packet) {
	if h.removed {
		return
	}
	h.deliver(pkt, dataType.NoPort)
}

func (h *Host) CreateTimer(interval float64, fn func()) node.Timer {
	t := h.nw.sched.Every(interval, func() {
		if !h.removed {
			fn()
		}
	})
	h.timers = append(h.timers, t)
	return t
}

func (h *Host) teardown() {
	h.removed = true
	h.node.Detach()
	for _, t := range h.timers {
		t.Stop()
	}
	h.timers = nil
}
