package bptree

import (
	"fmt"
	"strings"

	"bpstore/storage_engine/page"
)

// LeafPage is a B+Tree leaf node: array[i] for i in [0,size) pairs a key
// with the RID of the tuple it locates. Leaves are linked in key order by
// nextPageId, terminated by page.InvalidID.
type LeafPage struct {
	header
	keySize int
	codec   ValueCodec[page.RID]
}

// NewLeafPage views buf (expected to be a buffer-pool frame's 4 KiB data)
// as a leaf page with the given key width.
func NewLeafPage(buf []byte, keySize int) *LeafPage {
	return &LeafPage{header: header{buf: buf}, keySize: keySize, codec: RIDCodec}
}

func (p *LeafPage) entrySize() int { return p.keySize + p.codec.Size }

func (p *LeafPage) entryOffset(i int32) int {
	return HeaderSize + int(i)*p.entrySize()
}

// Init resets the page to an empty leaf node. maxSize follows
// floor((PAGE_SIZE - HeaderSize) / entrySize) — see HeaderSize's doc
// comment for why this differs from a page-size-only
// formula.
func (p *LeafPage) Init(pageID, parentID page.ID) {
	p.setPageType(page.TypeLeaf)
	maxSize := int32((len(p.buf) - HeaderSize) / p.entrySize())
	p.setMaxSize(maxSize)
	p.setSize(0)
	p.setPageID(pageID)
	p.SetParentPageID(parentID)
	p.setNextPageID(page.InvalidID)
}

// NextPageID returns the page id of the next leaf in key order, or
// page.InvalidID if this is the last leaf.
func (p *LeafPage) NextPageID() page.ID { return p.nextPageID() }

// SetNextPageID sets the forward link to the next leaf in key order.
func (p *LeafPage) SetNextPageID(id page.ID) { p.setNextPageID(id) }

// KeyAt returns a view of the key at index i. Mutating the returned slice
// mutates the page.
func (p *LeafPage) KeyAt(i int32) []byte {
	off := p.entryOffset(i)
	return p.buf[off : off+p.keySize]
}

func (p *LeafPage) setKeyAt(i int32, key []byte) {
	if len(key) != p.keySize {
		fail("setKeyAt: key length %d != page key size %d", len(key), p.keySize)
	}
	copy(p.KeyAt(i), key)
}

func (p *LeafPage) valueOffset(i int32) int {
	return p.entryOffset(i) + p.keySize
}

// ValueAt returns the RID stored at index i.
func (p *LeafPage) ValueAt(i int32) page.RID {
	off := p.valueOffset(i)
	return p.codec.Decode(p.buf[off : off+p.codec.Size])
}

func (p *LeafPage) setValueAt(i int32, v page.RID) {
	off := p.valueOffset(i)
	p.codec.Encode(v, p.buf[off:off+p.codec.Size])
}

// KeyIndex returns the smallest i with cmp(array[i].first, key) >= 0, or
// size if every key is strictly less than key.
func (p *LeafPage) KeyIndex(key []byte, cmp Comparator) int32 {
	size := p.Size()
	for i := int32(0); i < size; i++ {
		if cmp(p.KeyAt(i), key) >= 0 {
			return i
		}
	}
	return size
}

// Insert writes (key, value) into sorted position. Precondition size <
// maxSize. Keys are expected unique — the caller detects duplicates via
// Lookup first; a true duplicate is inserted as a second entry.
func (p *LeafPage) Insert(key []byte, value page.RID, cmp Comparator) int32 {
	if p.IsFull() {
		fail("Insert: page at capacity (size=%d, maxSize=%d)", p.Size(), p.MaxSize())
	}
	size := p.Size()
	idx := p.KeyIndex(key, cmp)
	for i := size; i > idx; i-- {
		p.setKeyAt(i, p.KeyAt(i-1))
		p.setValueAt(i, p.ValueAt(i-1))
	}
	p.setKeyAt(idx, key)
	p.setValueAt(idx, value)
	p.setSize(size + 1)
	return size + 1
}

// Lookup scans for the first entry whose key compares equal to key,
// returning its value.
func (p *LeafPage) Lookup(key []byte, cmp Comparator) (page.RID, bool) {
	size := p.Size()
	for i := int32(0); i < size; i++ {
		if cmp(p.KeyAt(i), key) == 0 {
			return p.ValueAt(i), true
		}
	}
	return page.RID{}, false
}

// RemoveAndDeleteRecord removes the first entry matching key, a no-op if
// absent.
func (p *LeafPage) RemoveAndDeleteRecord(key []byte, cmp Comparator) int32 {
	size := p.Size()
	for i := int32(0); i < size; i++ {
		if cmp(p.KeyAt(i), key) == 0 {
			for j := i; j < size-1; j++ {
				p.setKeyAt(j, p.KeyAt(j+1))
				p.setValueAt(j, p.ValueAt(j+1))
			}
			p.setSize(size - 1)
			return size - 1
		}
	}
	return size
}

// MoveHalfTo transfers the upper size-size/2 entries to recipient via
// CopyHalfFrom, then shrinks size to size/2. The caller relinks the leaf
// chain: recipient.next = this.next; this.next = recipient.pageId.
func (p *LeafPage) MoveHalfTo(recipient *LeafPage) {
	splitIdx := p.Size() / 2
	recipient.CopyHalfFrom(p, splitIdx)
	p.setSize(splitIdx)
}

// CopyHalfFrom appends src's entries from startIdx onward into this page,
// which is assumed empty.
func (p *LeafPage) CopyHalfFrom(src *LeafPage, startIdx int32) {
	count := src.Size() - startIdx
	for i := int32(0); i < count; i++ {
		p.setKeyAt(i, src.KeyAt(startIdx+i))
		p.setValueAt(i, src.ValueAt(startIdx+i))
	}
	p.setSize(count)
}

// MoveAllTo appends this leaf's entries to recipient, empties this leaf,
// and clears its next-pointer. The caller relinks the leaf chain before
// invoking this.
func (p *LeafPage) MoveAllTo(recipient *LeafPage) {
	start := recipient.Size()
	size := p.Size()
	for i := int32(0); i < size; i++ {
		recipient.setKeyAt(start+i, p.KeyAt(i))
		recipient.setValueAt(start+i, p.ValueAt(i))
	}
	recipient.setSize(start + size)
	p.setSize(0)
	p.setNextPageID(page.InvalidID)
}

// MoveFirstToEndOf moves this leaf's first entry to the end of
// recipient.
func (p *LeafPage) MoveFirstToEndOf(recipient *LeafPage) {
	key := append([]byte(nil), p.KeyAt(0)...)
	val := p.ValueAt(0)

	idx := recipient.Size()
	recipient.setKeyAt(idx, key)
	recipient.setValueAt(idx, val)
	recipient.setSize(idx + 1)

	size := p.Size()
	for j := int32(0); j < size-1; j++ {
		p.setKeyAt(j, p.KeyAt(j+1))
		p.setValueAt(j, p.ValueAt(j+1))
	}
	p.setSize(size - 1)
}

// DebugString renders the leaf's header and, if verbose, every key. Not
// part of the durability contract; for development and test failure
// output only.
func (p *LeafPage) DebugString(verbose bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "leaf page=%d parent=%d next=%d size=%d/%d",
		p.PageID(), p.ParentPageID(), p.NextPageID(), p.Size(), p.MaxSize())
	if verbose {
		b.WriteString(" entries=[")
		for i := int32(0); i < p.Size(); i++ {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "(%x,%v)", p.KeyAt(i), p.ValueAt(i))
		}
		b.WriteString("]")
	}
	return b.String()
}

// MoveLastToFrontOf moves this leaf's last entry to the front of
// recipient. parentIdx is accepted for signature parity with the
// reference implementation; the caller rewrites the parent's separator.
func (p *LeafPage) MoveLastToFrontOf(recipient *LeafPage, parentIdx int32) {
	_ = parentIdx
	size := p.Size()
	key := append([]byte(nil), p.KeyAt(size-1)...)
	val := p.ValueAt(size - 1)

	recCount := recipient.Size()
	for i := recCount; i > 0; i-- {
		recipient.setKeyAt(i, recipient.KeyAt(i-1))
		recipient.setValueAt(i, recipient.ValueAt(i-1))
	}
	recipient.setKeyAt(0, key)
	recipient.setValueAt(0, val)
	recipient.setSize(recCount + 1)

	p.setSize(size - 1)
}
