package bufferpool

import (
	"sync"

	"bpstore/hashdir"
	"bpstore/replacer"
	diskmanager "bpstore/storage_engine/disk_manager"
	"bpstore/storage_engine/page"
)

// ############################################# BUFFER POOL #############################################

// Pool manages a fixed number of in-memory frames backing a much larger
// space of on-disk pages. It works for both B+Tree internal pages and
// B+Tree leaf pages — the buffer pool never looks past a page's bytes.
type Pool struct {
	frames    []*page.Frame
	freeList  []int
	pageTable *hashdir.Directory[page.ID, int] // pageID -> frame index
	replacer  *replacer.LRUReplacer
	disk      diskmanager.DiskManager
	log       LogManager
	mu        sync.Mutex
}

// Stats returns buffer pool statistics.
type Stats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
}

// LogManager is the minimal collaborator the buffer pool needs from a
// write-ahead log: the durable point up to which log records have been
// flushed, so a dirty page cannot be written back before the log record
// that justifies its contents is itself durable. Small interface so
// bufferpool doesn't need to import the whole wal_manager package.
type LogManager interface {
	GetFlushedLSN() uint64
}

// hashDirBucketSize is the extendible-hash bucket capacity used for the
// page table.
const hashDirBucketSize = 4
