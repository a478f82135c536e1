package dataType

import "testing"

func TestWithHopDoesNotAlias(t *testing.T) {
	base := &Transaction{Seq: 7, Origin: "wat0", Hops: make([]NodeID, 0, 8)}
	base.Hops = append(base.Hops, "wat0")

	a := base.WithHop("wat1")
	b := base.WithHop("wat2")

	if got := a.Trace(); len(got) != 2 || got[1] != "wat1" {
		t.Fatalf("a trace = %v", got)
	}
	if got := b.Trace(); len(got) != 2 || got[1] != "wat2" {
		t.Fatalf("b trace = %v", got)
	}
	if len(base.Hops) != 1 {
		t.Fatalf("original trace mutated: %v", base.Hops)
	}
	if a.Key() != base.Key() {
		t.Fatal("WithHop changed the key")
	}
}

func TestKeysAndClasses(t *testing.T) {
	tests := []struct {
		name  string
		pkt   Packet
		kind  Kind
		class Class
		str   string
	}{
		{"tx", &Transaction{Seq: 3, Origin: "wat1"}, KindTransaction, ClassTransaction, "Tx/wat1/3"},
		{"scp", &SCPMessage{Round: 1, Origin: "val0"}, KindSCP, ClassConsensus, "SCP/val0/1"},
		{"advert", &AdvertOffer{ID: PacketKey{KindAdvert, "wat2", 4}}, KindAdvert, ClassConsensus, "Advert/wat2/4"},
		{"demand", &DemandRequest{ID: PacketKey{KindDemand, "wat3", 9}}, KindDemand, ClassConsensus, "Demand/wat3/9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := tt.pkt.Key()
			if k.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", k.Kind, tt.kind)
			}
			if k.Kind.Class() != tt.class {
				t.Errorf("class = %v, want %v", k.Kind.Class(), tt.class)
			}
			if k.String() != tt.str {
				t.Errorf("String() = %q, want %q", k.String(), tt.str)
			}
		})
	}
}
