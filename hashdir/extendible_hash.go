// Package hashdir implements the extendible-hash page directory: a
// page-id → value mapping that grows in O(1) expected time by doubling
// its directory and splitting the one overflowing bucket, instead of
// rehashing everything the way a plain hash table would.
//
// Grounded directly on original_source/src/hash/extendible_hash.cpp (the
// CMU 15-445 reference this is modeled on), translated into idiomatic Go:
// generics stand in for the C++ template parameters, and the directory is
// a slice of pointers to separate bucket objects (several slots may share
// one bucket), so GetNumBuckets can count distinct buckets independently
// of directory size.
package hashdir

import (
	"math/bits"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Hasher computes a 64-bit hash of a key. The directory bit-reverses the
// result before taking the high globalDepth bits (design note,
// "bit-reverse hashing") so that doubling the directory refines rather
// than reshuffles the index.
type Hasher[K any] func(key K) uint64

type entry[K comparable, V any] struct {
	key   K
	value V
}

type bucket[K comparable, V any] struct {
	localDepth uint
	capacity   int
	entries    []entry[K, V]
}

func newBucket[K comparable, V any](localDepth uint, capacity int) *bucket[K, V] {
	return &bucket[K, V]{localDepth: localDepth, capacity: capacity}
}

func (b *bucket[K, V]) full() bool { return len(b.entries) >= b.capacity }

func (b *bucket[K, V]) find(key K) (V, bool) {
	for _, e := range b.entries {
		if e.key == key {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) put(key K, value V) {
	for i := range b.entries {
		if b.entries[i].key == key {
			b.entries[i].value = value
			return
		}
	}
	b.entries = append(b.entries, entry[K, V]{key: key, value: value})
}

func (b *bucket[K, V]) remove(key K) bool {
	for i, e := range b.entries {
		if e.key == key {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Directory is the extendible-hash page directory. Zero value is not
// usable; construct with New.
type Directory[K comparable, V any] struct {
	mu          sync.Mutex
	bucketSize  int
	hash        Hasher[K]
	globalDepth uint
	slots       []*bucket[K, V]
}

// New returns a directory with a single bucket at global depth 0, each
// bucket holding up to bucketSize entries before it must split.
func New[K comparable, V any](bucketSize int, hash Hasher[K]) *Directory[K, V] {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	root := newBucket[K, V](0, bucketSize)
	return &Directory[K, V]{
		bucketSize:  bucketSize,
		hash:        hash,
		globalDepth: 0,
		slots:       []*bucket[K, V]{root},
	}
}

// index computes the directory slot for key: bit-reverse the hash, then
// take the high globalDepth bits.
func (d *Directory[K, V]) index(key K) int {
	if d.globalDepth == 0 {
		return 0
	}
	h := bits.Reverse64(d.hash(key))
	return int(h >> (64 - d.globalDepth))
}

// Find returns the value associated with key, if present.
func (d *Directory[K, V]) Find(key K) (V, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slots[d.index(key)].find(key)
}

// Remove deletes key if present. Buckets never merge back — bucket
// shrinking on deletion is out of scope.
func (d *Directory[K, V]) Remove(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slots[d.index(key)].remove(key)
}

// Insert adds key→value, or overwrites the existing value for key,
// splitting and (if necessary) doubling the directory as many times as
// needed to make room.
func (d *Directory[K, V]) Insert(key K, value V) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.slots[d.index(key)].find(key); exists {
		d.slots[d.index(key)].put(key, value)
		return
	}

	for {
		idx := d.index(key)
		b := d.slots[idx]

		if !b.full() {
			b.put(key, value)
			return
		}

		if b.localDepth == d.globalDepth {
			d.doubleDirectory()
		}
		d.splitBucket(b)
		// Loop: re-hash and retry against the freshly split bucket.
	}
}

// doubleDirectory doubles the directory size; each new slot inherits the
// bucket pointer of its sibling, so no bucket is touched and no entry is
// rehashed by this step alone.
func (d *Directory[K, V]) doubleDirectory() {
	old := d.slots
	d.slots = make([]*bucket[K, V], len(old)*2)
	for i, b := range old {
		d.slots[2*i] = b
		d.slots[2*i+1] = b
	}
	d.globalDepth++
}

// splitBucket replaces b with two fresh buckets at localDepth+1 and
// redistributes b's entries into them by rehashing, repointing exactly
// the directory slots that referenced b.
func (d *Directory[K, V]) splitBucket(b *bucket[K, V]) {
	newDepth := b.localDepth + 1
	lo := newBucket[K, V](newDepth, d.bucketSize)
	hi := newBucket[K, V](newDepth, d.bucketSize)

	// The slots referencing b are exactly those whose index shares b's
	// high localDepth bits; among those, the new high bit (bit newDepth-1
	// from the top of the globalDepth-bit index) decides lo vs hi.
	splitBit := uint(1) << (d.globalDepth - newDepth)
	for i, slot := range d.slots {
		if slot != b {
			continue
		}
		if uint(i)&splitBit == 0 {
			d.slots[i] = lo
		} else {
			d.slots[i] = hi
		}
	}

	for _, e := range b.entries {
		target := d.slots[d.index(e.key)]
		target.put(e.key, e.value)
	}
}

// GetGlobalDepth returns the number of bits the directory currently
// distinguishes.
func (d *Directory[K, V]) GetGlobalDepth() uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.globalDepth
}

// GetLocalDepth returns the local depth of the bucket referenced by
// directory slot i.
func (d *Directory[K, V]) GetLocalDepth(slot int) uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slots[slot].localDepth
}

// GetNumBuckets returns the number of distinct bucket objects currently
// referenced by the directory (not the directory's slot count).
func (d *Directory[K, V]) GetNumBuckets() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[*bucket[K, V]]struct{}, len(d.slots))
	for _, b := range d.slots {
		seen[b] = struct{}{}
	}
	return len(seen)
}

// Uint64Hasher hashes any fixed-width integer key by its 8-byte
// little-endian encoding via xxhash — the 64-bit hash this directory's "hash
// addressing" step calls for (design note, "bit-reverse hashing").
func Uint64Hasher[K ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64]() Hasher[K] {
	return func(key K) uint64 {
		var buf [8]byte
		v := uint64(key)
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		return xxhash.Sum64(buf[:])
	}
}

// StringHasher hashes string keys via xxhash.
func StringHasher() Hasher[string] {
	return func(key string) uint64 {
		return xxhash.Sum64String(key)
	}
}
