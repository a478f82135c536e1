package peer

import (
	"testing"

	"floodsim/internal/dataType"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_LinkUpStartsAtZero(t *testing.T) {
	tr := NewTracker(0)
	tr.OnLinkUp(1, "val0")
	tr.OnLinkUp(2, "wat1")

	q, ok := tr.Quality(1)
	require.True(t, ok)
	assert.Equal(t, 0, q)
	assert.False(t, tr.AnyPositive())
	assert.Equal(t, []dataType.Port{1, 2}, tr.Ports())
}

func TestTracker_ConsensusCredit(t *testing.T) {
	tests := []struct {
		name        string
		firstSeen   bool
		firstSeenAt float64
		now         float64
		want        int
	}{
		{"first sighting", true, 0, 0, 2},
		{"near miss", false, 0, 0.3, 1},
		{"at grace boundary", false, 1.0, 1.5, 1},
		{"late duplicate", false, 0, 0.51, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(DefaultGracePeriod)
			tr.OnLinkUp(1, "a")
			tr.OnConsensusArrival(1, tt.firstSeen, tt.firstSeenAt, tt.now)
			q, _ := tr.Quality(1)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestTracker_GraceWindowAcrossPorts(t *testing.T) {
	tr := NewTracker(DefaultGracePeriod)
	tr.OnLinkUp(1, "a")
	tr.OnLinkUp(2, "b")

	tr.OnConsensusArrival(1, true, 0, 0)
	tr.OnConsensusArrival(2, false, 0, 0.3)

	q1, _ := tr.Quality(1)
	q2, _ := tr.Quality(2)
	assert.Equal(t, 2, q1)
	assert.Equal(t, 1, q2)
}

func TestTracker_LateDuplicatesAreIdempotent(t *testing.T) {
	tr := NewTracker(DefaultGracePeriod)
	tr.OnLinkUp(1, "a")
	tr.OnConsensusArrival(1, true, 0, 0)
	for i := 0; i < 10; i++ {
		tr.OnConsensusArrival(1, false, 0, 1+float64(i))
	}
	q, _ := tr.Quality(1)
	assert.Equal(t, 2, q)
}

func TestTracker_LinkDownResetsSurvivors(t *testing.T) {
	tr := NewTracker(0)
	for p, q := range []int{3, 4, 0} {
		port := dataType.Port(p + 1)
		tr.OnLinkUp(port, dataType.NodeID(rune('a'+p)))
		for i := 0; i < q; i++ {
			// quality accrues by one per near miss
			tr.OnConsensusArrival(port, false, 0, 0)
		}
	}
	q, _ := tr.Quality(2)
	require.Equal(t, 4, q)

	tr.OnLinkDown(4) // unknown port still resets
	for _, e := range tr.Entries() {
		assert.Equal(t, 0, e.Quality, "port %d", e.Port)
	}
	assert.Equal(t, 3, tr.Len())

	tr.OnConsensusArrival(1, true, 0, 0)
	tr.OnLinkDown(3)
	assert.Equal(t, 2, tr.Len())
	for _, e := range tr.Entries() {
		assert.Equal(t, 0, e.Quality, "port %d", e.Port)
	}
}

func TestTracker_UnknownPortIgnored(t *testing.T) {
	tr := NewTracker(0)
	tr.OnConsensusArrival(9, true, 0, 0)
	_, ok := tr.Quality(9)
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_OnChange(t *testing.T) {
	tr := NewTracker(0)
	var seen []dataType.NeighborEntry
	tr.OnChange(func(e dataType.NeighborEntry) { seen = append(seen, e) })

	tr.OnLinkUp(1, "a")
	tr.OnConsensusArrival(1, true, 0, 0)
	tr.OnConsensusArrival(1, false, 0, 5) // no change, no callback

	require.Len(t, seen, 2)
	assert.Equal(t, 2, seen[1].Quality)
}

func TestTracker_OnRemoveFiresForKnownPortsOnly(t *testing.T) {
	tr := NewTracker(0)
	var removed []dataType.Port
	tr.OnRemove(func(p dataType.Port) { removed = append(removed, p) })
	tr.OnLinkUp(1, "a")
	tr.OnLinkUp(2, "b")

	tr.OnLinkDown(2)
	tr.OnLinkDown(7)
	assert.Equal(t, []dataType.Port{2}, removed)
	assert.Equal(t, []dataType.Port{1}, tr.Ports())
}
