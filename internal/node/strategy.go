package node

import (
	"fmt"
	"strings"
)

// Strategy decides which neighbors a node forwards to. It is fixed at
// construction.
type Strategy int

const (
	FloodAll Strategy = iota
	Selective
	// PeerSampling is recognized but not implemented; nodes using it do not
	// forward.
	PeerSampling
)

func (s Strategy) String() string {
	switch s {
	case FloodAll:
		return "flood_all"
	case Selective:
		return "selective"
	case PeerSampling:
		return "peer_sampling"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts the names printed by String, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flood_all", "flood-all", "all":
		return FloodAll, nil
	case "selective":
		return Selective, nil
	case "peer_sampling", "peer-sampling":
		return PeerSampling, nil
	default:
		return FloodAll, fmt.Errorf("unknown flood strategy %q", s)
	}
}

// TxPropagation selects how unique transactions leave a node.
type TxPropagation string

const (
	// Push forwards the transaction itself.
	Push TxPropagation = "push"
	// Pull advertises the key and lets peers demand the payload.
	Pull TxPropagation = "pull"
)

// Role distinguishes validators from watchers.
type Role int

const (
	RoleValidator Role = iota
	RoleWatcher
)

func (r Role) String() string {
	if r == RoleValidator {
		return "validator"
	}
	return "watcher"
}
