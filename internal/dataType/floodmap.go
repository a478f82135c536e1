package dataType

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultFloodmapBuckets = 16

// FloodEntry is what a node remembers about a packet key: the first copy it
// processed and when.
type FloodEntry struct {
	Packet    Packet
	FirstSeen float64
}

type floodBucket struct {
	mu      sync.RWMutex
	entries map[PacketKey]FloodEntry
}

// Floodmap is the per-node ledger of every packet key ever seen. A key is
// recorded at most once; presence is authoritative for "already processed".
type Floodmap struct {
	buckets     []*floodBucket
	bucketCount uint64
}

func NewFloodmap(bucketCount int) *Floodmap {
	if bucketCount <= 0 {
		bucketCount = defaultFloodmapBuckets
	}
	fm := &Floodmap{
		buckets:     make([]*floodBucket, bucketCount),
		bucketCount: uint64(bucketCount),
	}
	for i := 0; i < bucketCount; i++ {
		fm.buckets[i] = &floodBucket{entries: make(map[PacketKey]FloodEntry)}
	}
	return fm
}

func (fm *Floodmap) getBucket(key PacketKey) *floodBucket {
	h := xxhash.Sum64String(key.String())
	return fm.buckets[h%fm.bucketCount]
}

// Lookup returns the entry for key, if present.
func (fm *Floodmap) Lookup(key PacketKey) (FloodEntry, bool) {
	bucket := fm.getBucket(key)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()
	e, ok := bucket.entries[key]
	return e, ok
}

func (fm *Floodmap) Has(key PacketKey) bool {
	_, ok := fm.Lookup(key)
	return ok
}

// Record stores pkt under its key with timestamp now. It returns false and
// leaves the ledger untouched if the key is already present.
func (fm *Floodmap) Record(pkt Packet, now float64) bool {
	key := pkt.Key()
	bucket := fm.getBucket(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	if _, exists := bucket.entries[key]; exists {
		return false
	}
	bucket.entries[key] = FloodEntry{Packet: pkt, FirstSeen: now}
	return true
}

func (fm *Floodmap) Len() int {
	n := 0
	for _, b := range fm.buckets {
		b.mu.RLock()
		n += len(b.entries)
		b.mu.RUnlock()
	}
	return n
}

// CountKind returns how many recorded keys are of kind k.
func (fm *Floodmap) CountKind(k Kind) int {
	n := 0
	for _, b := range fm.buckets {
		b.mu.RLock()
		for key := range b.entries {
			if key.Kind == k {
				n++
			}
		}
		b.mu.RUnlock()
	}
	return n
}
