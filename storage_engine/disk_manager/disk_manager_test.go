package diskmanager

import (
	"path/filepath"
	"testing"

	"bpstore/storage_engine/page"
)

func testManagers(t *testing.T) map[string]DiskManager {
	t.Helper()
	fileMgr, err := OpenFileDiskManager(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatalf("OpenFileDiskManager: %v", err)
	}
	t.Cleanup(func() { fileMgr.Close() })
	return map[string]DiskManager{
		"mem":  NewMemDiskManager(),
		"file": fileMgr,
	}
}

func TestAllocateWriteReadRoundTrip(t *testing.T) {
	for name, dm := range testManagers(t) {
		t.Run(name, func(t *testing.T) {
			id, err := dm.AllocatePage()
			if err != nil {
				t.Fatalf("AllocatePage: %v", err)
			}

			var buf [page.PageSize]byte
			buf[0] = 0x42
			buf[page.PageSize-1] = 0x99
			if err := dm.WritePage(id, &buf); err != nil {
				t.Fatalf("WritePage: %v", err)
			}

			var got [page.PageSize]byte
			if err := dm.ReadPage(id, &got); err != nil {
				t.Fatalf("ReadPage: %v", err)
			}
			if got != buf {
				t.Fatalf("read bytes did not match written bytes")
			}
		})
	}
}

func TestDeallocatePageRecyclesID(t *testing.T) {
	for name, dm := range testManagers(t) {
		t.Run(name, func(t *testing.T) {
			id1, err := dm.AllocatePage()
			if err != nil {
				t.Fatalf("AllocatePage: %v", err)
			}
			if err := dm.DeallocatePage(id1); err != nil {
				t.Fatalf("DeallocatePage: %v", err)
			}
			id2, err := dm.AllocatePage()
			if err != nil {
				t.Fatalf("AllocatePage: %v", err)
			}
			if id2 != id1 {
				t.Fatalf("AllocatePage after Deallocate = %d, want recycled id %d", id2, id1)
			}
		})
	}
}
