package node

import (
	"errors"
	"fmt"

	"floodsim/internal/dataType"

	"go.uber.org/zap"
)

var (
	ErrNoUniqueTransactions = errors.New("no unique transactions")
	ErrNoUniqueConsensus    = errors.New("no unique consensus traffic")
)

// Report logs the node's hop average and duplicate ratios. It fails when
// expectTx is set and no transaction was seen, or when no consensus message
// was ever seen.
func (n *Node) Report(expectTx bool) error {
	s := &n.stats
	if len(s.Hops) > 0 {
		n.lg.Info("average hop count", zap.Float64("hops", s.AverageHops()))
	}

	if expectTx && s.TxUnique == 0 {
		return fmt.Errorf("%w on %s", ErrNoUniqueTransactions, n.id)
	}
	if s.TxUnique > 0 {
		n.lg.Info("duplicate tx traffic ratio",
			zap.Float64("ratio", s.DuplicateRatio(dataType.ClassTransaction)),
			zap.Int("dup", s.TxDuplicate),
			zap.Int("unique", s.TxUnique))
	}

	if s.SCPUnique == 0 {
		return fmt.Errorf("%w on %s", ErrNoUniqueConsensus, n.id)
	}
	n.lg.Info("duplicate scp traffic ratio",
		zap.Float64("ratio", s.DuplicateRatio(dataType.ClassConsensus)),
		zap.Int("dup", s.SCPDuplicate),
		zap.Int("unique", s.SCPUnique))
	return nil
}
