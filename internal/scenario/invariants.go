package scenario

import (
	"errors"
	"fmt"

	"floodsim/internal/dataType"
	"floodsim/internal/metrics"
	"floodsim/internal/node"
	"floodsim/internal/sim"
	"floodsim/internal/topology"

	"gonum.org/v1/gonum/stat"
)

var ErrInvariant = errors.New("invariant violated")

// CheckInvariants verifies that all flood traffic reached every node and
// aggregates the run's traffic. Every validator must hold exactly txs
// transactions; every node must hold the consensus messages of every round
// the validators emitted and must pass its own report.
func CheckInvariants(nw *sim.Network, l *topology.Layout, txs int) (metrics.RunStats, error) {
	var stats metrics.RunStats
	if len(l.Validators) == 0 {
		return stats, fmt.Errorf("%w: no validators", ErrInvariant)
	}

	v0, ok := nw.Host(l.Validators[0])
	if !ok {
		return stats, fmt.Errorf("%w: %s", sim.ErrUnknownNode, l.Validators[0])
	}
	expectSCP := v0.Node().Round() * len(l.Validators)

	var errs []error
	var valHops, valLat, watHops, watLat []float64

	for _, id := range l.Validators {
		h, ok := nw.Host(id)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", sim.ErrUnknownNode, id))
			continue
		}
		if got := h.Ledger().CountKind(dataType.KindTransaction); got != txs {
			errs = append(errs, fmt.Errorf("%w: validator %s missing txs, expected %d, actual %d", ErrInvariant, id, txs, got))
		}
		if got := h.Ledger().CountKind(dataType.KindSCP); got < expectSCP {
			errs = append(errs, fmt.Errorf("%w: validator %s missing SCP, expected %d, actual %d", ErrInvariant, id, expectSCP, got))
		}
		n := h.Node()
		if err := n.Report(true); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrInvariant, err))
		}
		s := n.Stats()
		stats.ValidatorTxTraffic += s.TxTotal()
		stats.ValidatorSCPTraffic += s.SCPTotal()
		valHops = append(valHops, s.AverageHops())
		valLat = append(valLat, s.AverageLatency())
	}

	for _, id := range l.Watchers() {
		h, ok := nw.Host(id)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", sim.ErrUnknownNode, id))
			continue
		}
		if got := h.Ledger().CountKind(dataType.KindSCP); got < expectSCP {
			errs = append(errs, fmt.Errorf("%w: watcher %s missing SCP, expected %d, actual %d", ErrInvariant, id, expectSCP, got))
		}
		n := h.Node()
		if err := n.Report(false); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrInvariant, err))
		}
		s := n.Stats()
		stats.WatcherTxTraffic += s.TxTotal()
		stats.WatcherSCPTraffic += s.SCPTotal()
		watHops = append(watHops, s.AverageHops())
		watLat = append(watLat, s.AverageLatency())
	}

	stats.ValidatorAvgHops = mean(valHops)
	stats.ValidatorAvgLatency = mean(valLat)
	stats.WatcherAvgHops = mean(watHops)
	stats.WatcherAvgLatency = mean(watLat)
	return stats, errors.Join(errs...)
}

// ImportantWatcherTraffic totals the transaction traffic seen by the
// watchers the submitter currently selects as its best peers.
func ImportantWatcherTraffic(nw *sim.Network, submitter *node.Node) int {
	if submitter == nil {
		return 0
	}
	total := 0
	for _, e := range submitter.SelectedPeers() {
		h, ok := nw.Host(e.Peer)
		if !ok || h.Node().Role() != node.RoleWatcher {
			continue
		}
		s := h.Node().Stats()
		total += s.TxTotal()
	}
	return total
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
