package dataType

import (
	"fmt"
	"slices"
)

// NodeID identifies a simulated node, e.g. "val0" or "wat3".
type NodeID string

// Kind is the wire kind of a packet.
type Kind uint8

const (
	KindTransaction Kind = iota + 1
	KindSCP
	KindAdvert
	KindDemand
)

func (k Kind) String() string {
	switch k {
	case KindTransaction:
		return "Tx"
	case KindSCP:
		return "SCP"
	case KindAdvert:
		return "Advert"
	case KindDemand:
		return "Demand"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Class groups kinds for traffic accounting. Adverts and demands are
// accounted as consensus traffic.
type Class string

const (
	ClassTransaction Class = "tx"
	ClassConsensus   Class = "scp"
)

func (k Kind) Class() Class {
	if k == KindTransaction {
		return ClassTransaction
	}
	return ClassConsensus
}

// PacketKey uniquely identifies one logical message. It is comparable and is
// the index of every Floodmap.
type PacketKey struct {
	Kind   Kind
	Origin NodeID
	Seq    uint64
}

func (k PacketKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Kind, k.Origin, k.Seq)
}

// Packet is the closed set of messages exchanged on the overlay:
// *Transaction, *SCPMessage, *AdvertOffer and *DemandRequest.
// Packets are immutable once sent; WithHop returns a copy.
type Packet interface {
	Key() PacketKey
	// Trace lists the nodes that relayed the packet, oldest first.
	Trace() []NodeID
	// WithHop returns a copy of the packet with id appended to its trace.
	WithHop(id NodeID) Packet

	isPacket()
}

type Transaction struct {
	Seq       uint64
	Origin    NodeID
	Hops      []NodeID
	CreatedAt float64
}

func (t *Transaction) Key() PacketKey {
	return PacketKey{Kind: KindTransaction, Origin: t.Origin, Seq: t.Seq}
}

func (t *Transaction) Trace() []NodeID { return t.Hops }

func (t *Transaction) WithHop(id NodeID) Packet {
	c := *t
	c.Hops = appendHop(t.Hops, id)
	return &c
}

func (*Transaction) isPacket() {}

// SCPMessage is a consensus message emitted once per validator round.
// Origin is empty for anonymous messages, in which case Round alone keys it.
type SCPMessage struct {
	Round     uint64
	Origin    NodeID
	Hops      []NodeID
	CreatedAt float64
}

func (m *SCPMessage) Key() PacketKey {
	return PacketKey{Kind: KindSCP, Origin: m.Origin, Seq: m.Round}
}

func (m *SCPMessage) Trace() []NodeID { return m.Hops }

func (m *SCPMessage) WithHop(id NodeID) Packet {
	c := *m
	c.Hops = appendHop(m.Hops, id)
	return &c
}

func (*SCPMessage) isPacket() {}

// AdvertOffer announces keys the sender can serve on demand.
type AdvertOffer struct {
	ID   PacketKey
	Keys []PacketKey
	Hops []NodeID
}

func (a *AdvertOffer) Key() PacketKey { return a.ID }

func (a *AdvertOffer) Trace() []NodeID { return a.Hops }

func (a *AdvertOffer) WithHop(id NodeID) Packet {
	c := *a
	c.Hops = appendHop(a.Hops, id)
	return &c
}

func (*AdvertOffer) isPacket() {}

// DemandRequest asks the receiver for the payloads of Keys.
type DemandRequest struct {
	ID   PacketKey
	Keys []PacketKey
	Hops []NodeID
}

func (d *DemandRequest) Key() PacketKey { return d.ID }

func (d *DemandRequest) Trace() []NodeID { return d.Hops }

func (d *DemandRequest) WithHop(id NodeID) Packet {
	c := *d
	c.Hops = appendHop(d.Hops, id)
	return &c
}

func (*DemandRequest) isPacket() {}

// appendHop never aliases the sender's backing array, so copies delivered
// on different links keep independent traces.
func appendHop(hops []NodeID, id NodeID) []NodeID {
	out := slices.Clone(hops)
	return append(out, id)
}
