package bptree

import (
	"fmt"
	"strings"

	"bpstore/storage_engine/page"
)

// InternalPage is a B+Tree internal node: array[0].second is the leftmost
// child pointer (array[0].first is reserved and never consulted by
// Lookup), and array[i] for i in [1,size) pairs a routing key with the
// child reached when a search key is >= that key.
type InternalPage[V comparable] struct {
	header
	keySize int
	codec   ValueCodec[V]
}

// NewInternalPage views buf (expected to be a buffer-pool frame's 4 KiB
// data) as an internal page with the given key width and value codec.
func NewInternalPage[V comparable](buf []byte, keySize int, codec ValueCodec[V]) *InternalPage[V] {
	return &InternalPage[V]{header: header{buf: buf}, keySize: keySize, codec: codec}
}

func (p *InternalPage[V]) entrySize() int { return p.keySize + p.codec.Size }

func (p *InternalPage[V]) entryOffset(i int32) int {
	return HeaderSize + int(i)*p.entrySize()
}

// Init resets the page to an empty internal node. maxSize follows
// floor((PAGE_SIZE - HeaderSize - keySize) / entrySize) — see HeaderSize's
// doc comment for why this implementation's formula differs from the
// page-size-only formula.
func (p *InternalPage[V]) Init(pageID, parentID page.ID) {
	p.setPageType(page.TypeInternal)
	maxSize := int32((len(p.buf) - HeaderSize - p.keySize) / p.entrySize())
	p.setMaxSize(maxSize)
	p.setSize(0)
	p.setPageID(pageID)
	p.SetParentPageID(parentID)
}

// KeyAt returns a view of the key at index i. Mutating the returned slice
// mutates the page.
func (p *InternalPage[V]) KeyAt(i int32) []byte {
	off := p.entryOffset(i)
	return p.buf[off : off+p.keySize]
}

// SetKeyAt overwrites the key at index i. len(key) must equal the page's
// key size.
func (p *InternalPage[V]) SetKeyAt(i int32, key []byte) {
	if len(key) != p.keySize {
		fail("SetKeyAt: key length %d != page key size %d", len(key), p.keySize)
	}
	copy(p.KeyAt(i), key)
}

func (p *InternalPage[V]) valueOffset(i int32) int {
	return p.entryOffset(i) + p.keySize
}

// ValueAt returns the child pointer at index i.
func (p *InternalPage[V]) ValueAt(i int32) V {
	off := p.valueOffset(i)
	return p.codec.Decode(p.buf[off : off+p.codec.Size])
}

func (p *InternalPage[V]) setValueAt(i int32, v V) {
	off := p.valueOffset(i)
	p.codec.Encode(v, p.buf[off:off+p.codec.Size])
}

// ValueIndex returns the first index i with ValueAt(i) == v. Fatal if v
// is not present — a caller asking for the index of a child it doesn't
// hold is a driver bug.
func (p *InternalPage[V]) ValueIndex(v V) int32 {
	size := p.Size()
	for i := int32(0); i < size; i++ {
		if p.ValueAt(i) == v {
			return i
		}
	}
	fail("ValueIndex: value not found among %d children", size)
	return -1
}

// Lookup returns the unique i with array[i].first <= key <
// array[i+1].first, treating array[0].first as -infinity and
// array[size].first as +infinity: the smallest i such that
// cmp(array[i+1].first, key) > 0, or size-1 if no such i exists. (A
// literal reading of "cmp(array[i+1].first, key) >= 0" would route an
// exact key match to i instead of i+1, contradicting the routing
// convention's own worked example at an exact match — strict ">" is
// what that example requires.)
func (p *InternalPage[V]) Lookup(key []byte, cmp Comparator) int32 {
	size := p.Size()
	if size == 0 {
		fail("Lookup: empty internal page")
	}
	for i := int32(0); i < size-1; i++ {
		if cmp(p.KeyAt(i+1), key) > 0 {
			return i
		}
	}
	return size - 1
}

// PopulateNewRoot writes the two-child layout a fresh root gets right
// after the original root splits: array[0].second = oldChild,
// array[1] = (newKey, newChild), size = 2.
func (p *InternalPage[V]) PopulateNewRoot(oldChild V, newKey []byte, newChild V) {
	p.setValueAt(0, oldChild)
	p.SetKeyAt(1, newKey)
	p.setValueAt(1, newChild)
	p.setSize(2)
}

// InsertNodeAfter finds oldChild, shifts entries after it one slot
// right, and writes (newKey, newChild) immediately after it. Precondition
// size < maxSize.
func (p *InternalPage[V]) InsertNodeAfter(oldChild V, newKey []byte, newChild V) int32 {
	if p.IsFull() {
		fail("InsertNodeAfter: page at capacity (size=%d, maxSize=%d)", p.Size(), p.MaxSize())
	}
	idx := p.ValueIndex(oldChild)
	size := p.Size()
	for i := size; i > idx+1; i-- {
		p.SetKeyAt(i, p.KeyAt(i-1))
		p.setValueAt(i, p.ValueAt(i-1))
	}
	p.SetKeyAt(idx+1, newKey)
	p.setValueAt(idx+1, newChild)
	p.setSize(size + 1)
	return size + 1
}

// MoveHalfTo transfers the upper size-size/2 entries to recipient via
// CopyHalfFrom, then shrinks size to size/2. Used by split.
func (p *InternalPage[V]) MoveHalfTo(recipient *InternalPage[V]) {
	splitIdx := p.Size() / 2
	recipient.CopyHalfFrom(p, splitIdx)
	p.setSize(splitIdx)
}

// CopyHalfFrom appends src's entries from startIdx onward into this page,
// which is assumed empty.
func (p *InternalPage[V]) CopyHalfFrom(src *InternalPage[V], startIdx int32) {
	count := src.Size() - startIdx
	for i := int32(0); i < count; i++ {
		p.SetKeyAt(i, src.KeyAt(startIdx+i))
		p.setValueAt(i, src.ValueAt(startIdx+i))
	}
	p.setSize(count)
}

// RemoveAndReturnOnlyChild is only legal when size == 2 (the root
// collapsing to a single child): returns array[1].second, sets size=0.
func (p *InternalPage[V]) RemoveAndReturnOnlyChild() V {
	if p.Size() != 2 {
		fail("RemoveAndReturnOnlyChild: size=%d, want 2", p.Size())
	}
	v := p.ValueAt(1)
	p.setSize(0)
	return v
}

// Remove shifts [i+1, size) one slot left and decrements size.
func (p *InternalPage[V]) Remove(i int32) {
	size := p.Size()
	if i < 0 || i >= size {
		fail("Remove: index %d out of range [0,%d)", i, size)
	}
	for j := i; j < size-1; j++ {
		p.SetKeyAt(j, p.KeyAt(j+1))
		p.setValueAt(j, p.ValueAt(j+1))
	}
	p.setSize(size - 1)
}

// DebugString renders the internal node's header and, if verbose, every
// routing entry (array[0]'s key is omitted since it's never consulted).
// Not part of the durability contract; for development and test failure
// output only.
func (p *InternalPage[V]) DebugString(verbose bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "internal page=%d parent=%d size=%d/%d",
		p.PageID(), p.ParentPageID(), p.Size(), p.MaxSize())
	if verbose {
		b.WriteString(" entries=[")
		fmt.Fprintf(&b, "_:%v", p.ValueAt(0))
		for i := int32(1); i < p.Size(); i++ {
			fmt.Fprintf(&b, " %x:%v", p.KeyAt(i), p.ValueAt(i))
		}
		b.WriteString("]")
	}
	return b.String()
}

// MoveAllTo appends this node's entries to recipient and empties this
// node — used when merging two underfull siblings. indexInParent is
// accepted for signature parity with the reference implementation; the
// page layer performs no parent bookkeeping (the driver rewrites the
// parent's separator and removes the pointer to this page).
func (p *InternalPage[V]) MoveAllTo(recipient *InternalPage[V], indexInParent int32) {
	_ = indexInParent
	start := recipient.Size()
	size := p.Size()
	for i := int32(0); i < size; i++ {
		recipient.SetKeyAt(start+i, p.KeyAt(i))
		recipient.setValueAt(start+i, p.ValueAt(i))
	}
	recipient.setSize(start + size)
	p.setSize(0)
}

// MoveFirstToEndOf moves this page's first entry to the end of
// recipient. The caller is responsible for updating the parent's
// separator key.
func (p *InternalPage[V]) MoveFirstToEndOf(recipient *InternalPage[V]) {
	key := append([]byte(nil), p.KeyAt(0)...)
	val := p.ValueAt(0)

	idx := recipient.Size()
	recipient.SetKeyAt(idx, key)
	recipient.setValueAt(idx, val)
	recipient.setSize(idx + 1)

	p.Remove(0)
}

// MoveLastToFrontOf moves this page's last entry to the front of
// recipient. parentIdx is accepted for signature parity with the
// reference implementation; the caller rewrites the parent's separator.
func (p *InternalPage[V]) MoveLastToFrontOf(recipient *InternalPage[V], parentIdx int32) {
	_ = parentIdx
	size := p.Size()
	key := append([]byte(nil), p.KeyAt(size-1)...)
	val := p.ValueAt(size - 1)

	recCount := recipient.Size()
	for i := recCount; i > 0; i-- {
		recipient.SetKeyAt(i, recipient.KeyAt(i-1))
		recipient.setValueAt(i, recipient.ValueAt(i-1))
	}
	recipient.SetKeyAt(0, key)
	recipient.setValueAt(0, val)
	recipient.setSize(recCount + 1)

	p.setSize(size - 1)
}
