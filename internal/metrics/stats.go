package metrics

import "floodsim/internal/dataType"

// NodeStats holds the traffic counters and traces of one node. Counters and
// traces only grow for the lifetime of a run.
type NodeStats struct {
	TxUnique     int
	TxDuplicate  int
	SCPUnique    int
	SCPDuplicate int

	// Hops holds the trace length of every uniquely received packet.
	Hops []int
	// Latency holds seconds from creation to first receipt.
	Latency []float64
}

// Count records one arrival of a packet of the given class.
func (s *NodeStats) Count(class dataType.Class, unique bool) {
	switch {
	case class == dataType.ClassTransaction && unique:
		s.TxUnique++
	case class == dataType.ClassTransaction:
		s.TxDuplicate++
	case unique:
		s.SCPUnique++
	default:
		s.SCPDuplicate++
	}
}

func (s NodeStats) TxTotal() int  { return s.TxUnique + s.TxDuplicate }
func (s NodeStats) SCPTotal() int { return s.SCPUnique + s.SCPDuplicate }

// DuplicateRatio returns duplicates over total for class, or 0 with no traffic.
func (s NodeStats) DuplicateRatio(class dataType.Class) float64 {
	dup, total := s.SCPDuplicate, s.SCPTotal()
	if class == dataType.ClassTransaction {
		dup, total = s.TxDuplicate, s.TxTotal()
	}
	if total == 0 {
		return 0
	}
	return float64(dup) / float64(total)
}

func (s NodeStats) AverageHops() float64 {
	if len(s.Hops) == 0 {
		return 0
	}
	sum := 0
	for _, h := range s.Hops {
		sum += h
	}
	return float64(sum) / float64(len(s.Hops))
}

func (s NodeStats) AverageLatency() float64 {
	if len(s.Latency) == 0 {
		return 0
	}
	sum := 0.0
	for _, l := range s.Latency {
		sum += l
	}
	return sum / float64(len(s.Latency))
}
