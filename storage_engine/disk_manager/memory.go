package diskmanager

import (
	"fmt"
	"sync"

	"bpstore/storage_engine/page"
)

// MemDiskManager is an in-memory stand-in for the on-disk allocator, used
// by the buffer pool's tests and by cmd/bench where durability across
// process restarts is not the point.
type MemDiskManager struct {
	mu      sync.Mutex
	pages   map[page.ID]*[page.PageSize]byte
	nextID  page.ID
	freeIDs []page.ID
}

// NewMemDiskManager returns an empty in-memory disk manager.
func NewMemDiskManager() *MemDiskManager {
	return &MemDiskManager{
		pages: make(map[page.ID]*[page.PageSize]byte),
	}
}

func (m *MemDiskManager) AllocatePage() (page.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id page.ID
	if n := len(m.freeIDs); n > 0 {
		id = m.freeIDs[n-1]
		m.freeIDs = m.freeIDs[:n-1]
	} else {
		id = m.nextID
		m.nextID++
	}
	m.pages[id] = &[page.PageSize]byte{}
	return id, nil
}

func (m *MemDiskManager) DeallocatePage(id page.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
	m.freeIDs = append(m.freeIDs, id)
	return nil
}

func (m *MemDiskManager) ReadPage(id page.ID, buf *[page.PageSize]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.pages[id]
	if !ok {
		return fmt.Errorf("diskmanager: page %d not allocated", id)
	}
	*buf = *src
	return nil
}

func (m *MemDiskManager) WritePage(id page.ID, buf *[page.PageSize]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[id]; !ok {
		return fmt.Errorf("diskmanager: page %d not allocated", id)
	}
	stored := *buf
	m.pages[id] = &stored
	return nil
}

var _ DiskManager = (*MemDiskManager)(nil)
