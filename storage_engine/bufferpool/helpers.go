package bufferpool

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"bpstore/storage_engine/page"
)

/*
This file holds helper functions for the buffer pool.
*/

// GetStats returns current buffer pool statistics.
func (p *Pool) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{Capacity: len(p.frames)}
	for _, fr := range p.frames {
		if fr.ID() == page.InvalidID {
			continue
		}
		stats.TotalPages++
		if fr.PinCount() > 0 {
			stats.PinnedPages++
		}
		if fr.IsDirty() {
			stats.DirtyPages++
		}
	}
	return stats
}

// String renders stats the way an operator would want to read them at a
// glance: resident bytes, not just page counts.
func (s Stats) String() string {
	resident := uint64(s.TotalPages) * page.PageSize
	capacityBytes := uint64(s.Capacity) * page.PageSize
	return fmt.Sprintf("%s/%s resident (%d/%d pages), %d pinned, %d dirty",
		humanize.Bytes(resident), humanize.Bytes(capacityBytes),
		s.TotalPages, s.Capacity, s.PinnedPages, s.DirtyPages)
}

// Size returns the current number of resident pages in the buffer pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, fr := range p.frames {
		if fr.ID() != page.InvalidID {
			n++
		}
	}
	return n
}

// Capacity returns the maximum number of frames the buffer pool holds.
func (p *Pool) Capacity() int {
	return len(p.frames)
}
