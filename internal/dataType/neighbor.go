package dataType

// Port is a node-local link identifier. Ports are allocated from 1 and never
// reused for the lifetime of a node; NoPort marks locally originated traffic.
type Port int

const NoPort Port = 0

// NeighborEntry is one directly connected peer as seen from the local node.
type NeighborEntry struct {
	Port    Port
	Quality int
	Peer    NodeID
}
