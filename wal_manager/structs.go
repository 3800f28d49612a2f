package wal_manager

import (
	"os"
	"sync"
)

const RecordHeaderSize = 16

// Record is one write-ahead log entry: an LSN, a CRC32 guarding LSN+Data
// against a torn write, and an opaque payload. The core only needs
// Manager to hand out LSNs and report how far they've been made durable
// (the GetFlushedLSN contract bufferpool.LogManager expects) — it does
// not replay or interpret Data itself.
type Record struct {
	LSN  uint64
	Data []byte
	CRC  uint32
}

// Manager is a minimal append-only write-ahead log: Append assigns the
// next LSN and buffers the record; Sync fsyncs the backing file and
// advances the durable point Flush on the buffer pool side checks
// against. It deliberately does not implement segment rotation or
// replay-on-open — those belong to a full recovery subsystem, out of
// scope for the page-server core this package serves.
type Manager struct {
	mu         sync.Mutex
	file       *os.File
	nextLSN    uint64
	flushedLSN uint64
}
