package node

import "floodsim/internal/dataType"

// Substrate is what a node needs from the simulated network it is attached to.
type Substrate interface {
	Now() float64
	// Flood sends pkt on every connected port except exclude.
	Flood(pkt dataType.Packet, exclude dataType.Port)
	// Send sends pkt on each of ports.
	Send(pkt dataType.Packet, ports []dataType.Port)
	// Floodmap is the node's read-only view of its ledger.
	Floodmap() Ledger
	// Inject dispatches pkt to the node as if received on no port.
	Inject(pkt dataType.Packet)
	CreateTimer(interval float64, fn func()) Timer
}

type Ledger interface {
	Lookup(key dataType.PacketKey) (dataType.FloodEntry, bool)
}

type Timer interface {
	Stop()
}
