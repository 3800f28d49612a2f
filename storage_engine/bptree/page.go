// Package bptree implements the in-page binary layout and the
// split/merge/redistribute operations of a B+Tree internal node and leaf
// node. It works directly on the byte slice backing a
// buffer-pool frame, the same way nihil-sum-minidb's
// pkg/storage/page.BPlusTreePage operates on a *Page's Data field — no
// intermediate parsed struct, no marshal/unmarshal step.
//
// The five canonical key widths (4/8/16/32/64 bytes) are represented as
// a runtime-configured key size over raw []byte, rather than five
// separate generic instantiations; the value type (page.ID for internal
// pages, page.RID for leaves) is the only compile-time type parameter,
// carried alongside an explicit ValueCodec so one implementation serves
// both.
//
// Driving the tree (root management, parent-pointer maintenance, latch
// crabbing) is not this package's job — it only implements the page
// contracts an index algorithm built on top would call.
package bptree

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"bpstore/storage_engine/page"
)

// Header layout: 28 bytes, packed.
const (
	offPageType     = 0
	offLSN          = 4
	offSize         = 8
	offMaxSize      = 12
	offParentPageID = 16
	offPageID       = 20
	offNextPageID   = 24

	// HeaderSize is the fixed header footprint preceding array[] on every
	// B+Tree page. A formula stated only in terms of
	// PAGE_SIZE alone; this implementation additionally reserves
	// HeaderSize bytes for the header fields above, so maxSize is
	// computed as floor((PAGE_SIZE - HeaderSize [- keySize for internal
	// pages]) / entrySize) instead — see DESIGN.md for why the literal
	// formula would overflow the frame.
	HeaderSize = 28
)

// Comparator orders two encoded keys, mirroring the C++ reference's
// strict-weak-order cmp(a, b) -> {-, 0, +}.
type Comparator func(a, b []byte) int

// BytesComparator orders big-endian fixed-width encoded keys by their
// natural byte order, which coincides with numeric order as long as
// callers encode keys big-endian. Provided for callers that don't need
// a custom ordering.
func BytesComparator(a, b []byte) int {
	return bytes.Compare(a, b)
}

// ValueCodec describes how to read and write a fixed-width value of type
// V to and from a page's entry array, so one generic implementation can
// serve both page.ID values (internal pages) and page.RID values (leaf
// pages) without per-instantiation code paths.
type ValueCodec[V any] struct {
	Size   int
	Encode func(v V, dst []byte)
	Decode func(src []byte) V
}

// PageIDCodec encodes page.ID as a 4-byte little-endian integer — the
// value type internal pages store.
var PageIDCodec = ValueCodec[page.ID]{
	Size: 4,
	Encode: func(v page.ID, dst []byte) {
		binary.LittleEndian.PutUint32(dst, uint32(v))
	},
	Decode: func(src []byte) page.ID {
		return page.ID(int32(binary.LittleEndian.Uint32(src)))
	},
}

// RIDCodec encodes a page.RID as its 4-byte page id followed by its
// 4-byte slot — the value type leaf pages store.
var RIDCodec = ValueCodec[page.RID]{
	Size: 8,
	Encode: func(v page.RID, dst []byte) {
		binary.LittleEndian.PutUint32(dst[0:4], uint32(v.PageID))
		binary.LittleEndian.PutUint32(dst[4:8], v.Slot)
	},
	Decode: func(src []byte) page.RID {
		return page.RID{
			PageID: page.ID(int32(binary.LittleEndian.Uint32(src[0:4]))),
			Slot:   binary.LittleEndian.Uint32(src[4:8]),
		}
	},
}

// fail enforces a precondition; violating one is a bug in the caller (the
// B+Tree driver), not a recoverable condition.
func fail(format string, args ...any) {
	panic(fmt.Sprintf("bptree: precondition violated: "+format, args...))
}

// header wraps the 28-byte common prefix every B+Tree page shares.
// Embedded by value in both InternalPage and LeafPage; buf is a slice, so
// copying the header by value still shares the underlying frame bytes.
type header struct {
	buf []byte
}

func (h header) pageType() page.PageType {
	return page.PageType(int32(binary.LittleEndian.Uint32(h.buf[offPageType:])))
}
func (h header) setPageType(t page.PageType) {
	binary.LittleEndian.PutUint32(h.buf[offPageType:], uint32(t))
}

func (h header) LSN() uint32 { return binary.LittleEndian.Uint32(h.buf[offLSN:]) }
func (h header) SetLSN(lsn uint32) {
	binary.LittleEndian.PutUint32(h.buf[offLSN:], lsn)
}

func (h header) Size() int32 { return int32(binary.LittleEndian.Uint32(h.buf[offSize:])) }
func (h header) setSize(n int32) {
	binary.LittleEndian.PutUint32(h.buf[offSize:], uint32(n))
}

func (h header) MaxSize() int32 { return int32(binary.LittleEndian.Uint32(h.buf[offMaxSize:])) }
func (h header) setMaxSize(n int32) {
	binary.LittleEndian.PutUint32(h.buf[offMaxSize:], uint32(n))
}

func (h header) ParentPageID() page.ID {
	return page.ID(int32(binary.LittleEndian.Uint32(h.buf[offParentPageID:])))
}
func (h header) SetParentPageID(id page.ID) {
	binary.LittleEndian.PutUint32(h.buf[offParentPageID:], uint32(id))
}

func (h header) PageID() page.ID {
	return page.ID(int32(binary.LittleEndian.Uint32(h.buf[offPageID:])))
}
func (h header) setPageID(id page.ID) {
	binary.LittleEndian.PutUint32(h.buf[offPageID:], uint32(id))
}

func (h header) nextPageID() page.ID {
	return page.ID(int32(binary.LittleEndian.Uint32(h.buf[offNextPageID:])))
}
func (h header) setNextPageID(id page.ID) {
	binary.LittleEndian.PutUint32(h.buf[offNextPageID:], uint32(id))
}

// IsFull reports whether the page has no room for another entry.
func (h header) IsFull() bool { return h.Size() >= h.MaxSize() }
