package bufferpool

import (
	"fmt"

	"bpstore/hashdir"
	"bpstore/replacer"
	diskmanager "bpstore/storage_engine/disk_manager"
	"bpstore/storage_engine/page"
)

/*
This file is the main file of the buffer pool.
The buffer pool works on LRU based caching mechanism and holds access to
a disk manager for flushing dirty frames onto disk; if a page is not
found in the cache, the disk manager loads it from disk into a free (or
victim) frame for future access.

Pages are identified by page.ID.
*/

// NewPool creates a new buffer pool with room for capacity frames.
func NewPool(capacity int, disk diskmanager.DiskManager) *Pool {
	frames := make([]*page.Frame, capacity)
	freeList := make([]int, capacity)
	for i := 0; i < capacity; i++ {
		frames[i] = page.NewFrame()
		freeList[i] = capacity - 1 - i // pop from the back, so frame 0 is handed out first
	}
	return &Pool{
		frames:    frames,
		freeList:  freeList,
		pageTable: hashdir.New[page.ID, int](hashDirBucketSize, hashdir.Uint64Hasher[page.ID]()),
		replacer:  replacer.NewLRUReplacer(),
		disk:      disk,
	}
}

// SetLogManager wires a write-ahead log so dirty writeback can be gated
// on the log's durable LSN.
func (p *Pool) SetLogManager(log LogManager) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = log
}

// FetchPage returns the frame holding id, pinning it, loading it from
// disk first if it is not already resident.
func (p *Pool) FetchPage(id page.ID) (*page.Frame, error) {
	if id == page.InvalidID {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if frameIdx, ok := p.pageTable.Find(id); ok {
		fr := p.frames[frameIdx]
		fmt.Printf("[bufferpool] HIT  pageID=%d pinCount=%d\n", id, fr.PinCount())
		if fr.PinCount() == 0 {
			p.replacer.Erase(frameIdx)
		}
		fr.Pin()
		return fr, nil
	}

	fmt.Printf("[bufferpool] MISS pageID=%d — loading from disk\n", id)
	frameIdx, err := p.evictOrTakeFree()
	if err != nil {
		return nil, fmt.Errorf("bufferpool: fetch page %d: %w", id, err)
	}

	fr := p.frames[frameIdx]
	fr.Reset()
	if err := p.disk.ReadPage(id, fr.Data()); err != nil {
		p.freeList = append(p.freeList, frameIdx)
		return nil, fmt.Errorf("bufferpool: read page %d: %w", id, err)
	}
	fr.SetID(id)
	fr.Pin()
	p.pageTable.Insert(id, frameIdx)
	return fr, nil
}

// NewPage allocates a fresh page on disk and returns a pinned, zeroed
// frame for it.
func (p *Pool) NewPage() (*page.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := p.disk.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("bufferpool: allocate page: %w", err)
	}

	frameIdx, err := p.evictOrTakeFree()
	if err != nil {
		p.disk.DeallocatePage(id)
		return nil, fmt.Errorf("bufferpool: new page: %w", err)
	}

	fr := p.frames[frameIdx]
	fr.Reset()
	fr.SetID(id)
	fr.SetDirty(true)
	fr.Pin()
	p.pageTable.Insert(id, frameIdx)
	return fr, nil
}

// UnpinPage decrements id's pin count. When the count reaches zero the
// frame becomes eligible for eviction.
func (p *Pool) UnpinPage(id page.ID, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, ok := p.pageTable.Find(id)
	if !ok {
		return fmt.Errorf("bufferpool: page %d not in pool", id)
	}
	fr := p.frames[frameIdx]
	if fr.PinCount() == 0 {
		return fmt.Errorf("bufferpool: page %d already unpinned", id)
	}
	fr.Unpin()
	if dirty {
		fr.SetDirty(true)
	}
	if fr.PinCount() == 0 {
		p.replacer.Insert(frameIdx)
	}
	return nil
}

// FlushPage writes id's frame to disk if dirty, refusing to do so if a
// log manager is wired and the frame's LSN is not yet covered by the
// log's durable point.
func (p *Pool) FlushPage(id page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, ok := p.pageTable.Find(id)
	if !ok {
		return fmt.Errorf("bufferpool: page %d not in pool", id)
	}
	return p.flushFrame(frameIdx)
}

// flushFrame writes the frame at frameIdx to disk if dirty. Caller must
// hold p.mu.
func (p *Pool) flushFrame(frameIdx int) error {
	fr := p.frames[frameIdx]
	if !fr.IsDirty() {
		return nil
	}

	if p.log != nil {
		flushed := p.log.GetFlushedLSN()
		if fr.LSN() > flushed {
			fmt.Printf("[bufferpool] FLUSH BLOCKED pageID=%d pageLSN=%d flushedLSN=%d\n", fr.ID(), fr.LSN(), flushed)
			return fmt.Errorf("bufferpool: page %d LSN %d not yet covered by log (flushed=%d)", fr.ID(), fr.LSN(), flushed)
		}
	}

	if err := p.disk.WritePage(fr.ID(), fr.Data()); err != nil {
		return fmt.Errorf("bufferpool: flush page %d: %w", fr.ID(), err)
	}
	fr.SetDirty(false)
	return nil
}

// FlushAllPages writes every dirty, log-cleared frame to disk. Any frame
// whose flush fails — blocked on the log, or a disk write error — is
// silently skipped; FlushAllPages always returns nil.
func (p *Pool) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, fr := range p.frames {
		if fr.ID() == page.InvalidID || !fr.IsDirty() {
			continue
		}
		if err := p.flushFrame(i); err != nil {
			continue
		}
	}
	return nil
}

// DeletePage removes id from the pool, refusing if it is still pinned.
// The frame is returned to the free list rather than the replacer, since
// it holds no page worth remembering LRU order for.
func (p *Pool) DeletePage(id page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, ok := p.pageTable.Find(id)
	if !ok {
		return nil
	}
	fr := p.frames[frameIdx]
	if fr.PinCount() > 0 {
		return fmt.Errorf("bufferpool: cannot delete pinned page %d", id)
	}

	p.replacer.Erase(frameIdx)
	p.pageTable.Remove(id)
	if err := p.disk.DeallocatePage(id); err != nil {
		return fmt.Errorf("bufferpool: deallocate page %d: %w", id, err)
	}
	fr.Reset()
	p.freeList = append(p.freeList, frameIdx)
	return nil
}

// evictOrTakeFree returns a frame index ready to be overwritten: a free
// frame if one exists, otherwise an LRU victim flushed to disk first if
// it was dirty. Caller must hold p.mu.
func (p *Pool) evictOrTakeFree() (int, error) {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return idx, nil
	}

	frameIdx, ok := p.replacer.Victim()
	if !ok {
		return 0, fmt.Errorf("all frames are pinned, cannot evict")
	}

	fr := p.frames[frameIdx]
	fmt.Printf("[bufferpool] EVICT pageID=%d dirty=%v\n", fr.ID(), fr.IsDirty())
	if err := p.flushFrame(frameIdx); err != nil {
		// Put the victim back rather than lose track of it.
		p.replacer.Insert(frameIdx)
		return 0, err
	}
	p.pageTable.Remove(fr.ID())
	return frameIdx, nil
}
