package dataType

import (
	"fmt"
	"sync"
	"testing"
)

func TestFloodmap_RecordFirstWins(t *testing.T) {
	fm := NewFloodmap(4)
	tx := &Transaction{Seq: 1, Origin: "wat0", CreatedAt: 1.5}

	if fm.Has(tx.Key()) {
		t.Fatal("fresh floodmap should not have key")
	}
	if !fm.Record(tx, 2.0) {
		t.Fatal("first Record should return true")
	}
	if fm.Record(tx.WithHop("wat1"), 3.0) {
		t.Fatal("second Record should return false")
	}

	e, ok := fm.Lookup(tx.Key())
	if !ok {
		t.Fatal("Lookup after Record returned !ok")
	}
	if e.FirstSeen != 2.0 {
		t.Errorf("FirstSeen = %v, want 2.0", e.FirstSeen)
	}
	if len(e.Packet.Trace()) != 0 {
		t.Errorf("ledger kept a later copy: trace %v", e.Packet.Trace())
	}
}

func TestFloodmap_CountKind(t *testing.T) {
	fm := NewFloodmap(0)
	for i := range 20 {
		fm.Record(&Transaction{Seq: uint64(i), Origin: "wat0"}, 0)
	}
	for i := range 3 {
		fm.Record(&SCPMessage{Round: uint64(i), Origin: "val0"}, 0)
		fm.Record(&SCPMessage{Round: uint64(i), Origin: "val1"}, 0)
	}
	fm.Record(&AdvertOffer{ID: PacketKey{Kind: KindAdvert, Origin: "wat1", Seq: 1}}, 0)

	tests := []struct {
		kind Kind
		want int
	}{
		{KindTransaction, 20},
		{KindSCP, 6},
		{KindAdvert, 1},
		{KindDemand, 0},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := fm.CountKind(tt.kind); got != tt.want {
				t.Errorf("CountKind(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
	if fm.Len() != 27 {
		t.Errorf("Len = %d, want 27", fm.Len())
	}
}

func TestFloodmap_ConcurrentRecord(t *testing.T) {
	fm := NewFloodmap(8)
	var wg sync.WaitGroup
	const G = 16
	const N = 200

	var mu sync.Mutex
	firsts := 0
	for g := range G {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range N {
				if fm.Record(&Transaction{Seq: uint64(i), Origin: NodeID(fmt.Sprintf("n%d", i%4))}, float64(g)) {
					mu.Lock()
					firsts++
					mu.Unlock()
				}
			}
		}(g)
	}
	wg.Wait()

	if firsts != N {
		t.Fatalf("unique records = %d, want %d", firsts, N)
	}
	if fm.Len() != N {
		t.Fatalf("Len = %d, want %d", fm.Len(), N)
	}
}
