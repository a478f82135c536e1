package node

import (
	"floodsim/internal/dataType"

	"go.uber.org/zap"
)

// SetEmitting turns consensus emission on or off. The round counter is kept,
// and the change takes effect on the next tick.
func (n *Node) SetEmitting(on bool) {
	n.emitting = on
}

func (n *Node) Emitting() bool { return n.emitting }

// Round is the next round a validator will emit.
func (n *Node) Round() int { return n.round }

func (n *Node) tick() {
	if n.round >= n.opts.Rounds {
		n.Detach()
		return
	}
	if !n.emitting {
		return
	}
	msg := &dataType.SCPMessage{
		Round:     uint64(n.round),
		Origin:    n.id,
		CreatedAt: n.sub.Now(),
	}
	n.lg.Debug("emit", zap.Int("round", n.round))
	n.round++
	n.sub.Inject(msg)
	if n.round >= n.opts.Rounds {
		n.Detach()
	}
}
