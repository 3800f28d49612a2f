package diskmanager

import (
	"fmt"
	"os"
	"sync"

	"bpstore/storage_engine/page"
)

// FileDiskManager persists pages to a single backing file, addressed by
// pageID*PageSize byte offset. It owns the OS file handle and the
// allocation counter; freed ids are recycled before growing the file.
type FileDiskManager struct {
	mu      sync.Mutex
	file    *os.File
	nextID  page.ID
	freeIDs []page.ID
}

// OpenFileDiskManager opens (creating if necessary) the file at path and
// resumes page allocation after whatever pages it already holds.
func OpenFileDiskManager(path string) (*FileDiskManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("diskmanager: open %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("diskmanager: stat %s: %w", path, err)
	}
	return &FileDiskManager{
		file:   f,
		nextID: page.ID(stat.Size() / page.PageSize),
	}, nil
}

func (d *FileDiskManager) AllocatePage() (page.ID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var id page.ID
	if n := len(d.freeIDs); n > 0 {
		id = d.freeIDs[n-1]
		d.freeIDs = d.freeIDs[:n-1]
	} else {
		id = d.nextID
		d.nextID++
	}

	var zero [page.PageSize]byte
	if _, err := d.file.WriteAt(zero[:], int64(id)*page.PageSize); err != nil {
		return page.InvalidID, fmt.Errorf("diskmanager: allocate page %d: %w", id, err)
	}
	return id, nil
}

// DeallocatePage recycles the id for a future AllocatePage; the bytes on
// disk are left in place until the slot is reused, so ReadPage of a freed
// id still returns the old contents rather than an error.
func (d *FileDiskManager) DeallocatePage(id page.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.freeIDs = append(d.freeIDs, id)
	return nil
}

func (d *FileDiskManager) ReadPage(id page.ID, buf *[page.PageSize]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.file.ReadAt(buf[:], int64(id)*page.PageSize)
	if err != nil && n == 0 {
		return fmt.Errorf("diskmanager: read page %d: %w", id, err)
	}
	for i := n; i < page.PageSize; i++ {
		buf[i] = 0
	}
	return nil
}

func (d *FileDiskManager) WritePage(id page.ID, buf *[page.PageSize]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.file.WriteAt(buf[:], int64(id)*page.PageSize); err != nil {
		return fmt.Errorf("diskmanager: write page %d: %w", id, err)
	}
	return nil
}

// Sync flushes the backing file to stable storage.
func (d *FileDiskManager) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Sync()
}

// Close syncs and closes the backing file.
func (d *FileDiskManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.file.Sync(); err != nil {
		d.file.Close()
		return fmt.Errorf("diskmanager: sync before close: %w", err)
	}
	return d.file.Close()
}

var _ DiskManager = (*FileDiskManager)(nil)
