package wal_manager

import (
	"fmt"
	"os"
)

/*

WAL file
────────────────────────────────────
| Record | Record | Record | ...   |
────────────────────────────────────

Each Record:
────────────────────────────────────────────
| LSN (8) | LEN (4) | CRC (4) | DATA (LEN) |
────────────────────────────────────────────

	RecordHeaderSize = 16

*/

// OpenManager opens (creating if necessary) the log file at path. LSN
// numbering always restarts at 1 (0 is never assigned, so a flushed LSN
// of 0 means nothing is durable yet) — this package does not replay an
// existing file on open, so reopening a non-empty log and calling
// Append will overlap LSNs with whatever it already held. Callers that
// need crash recovery across restarts need a heavier LogManager than
// this one.
func OpenManager(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	return &Manager{file: f, nextLSN: 1}, nil
}

// Append assigns the next LSN to data, writes the encoded record to the
// log file, and returns the assigned LSN. The record is not durable
// until Sync is called — GetFlushedLSN will not reflect it until then.
func (m *Manager) Append(data []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lsn := m.nextLSN
	m.nextLSN++

	rec := Record{LSN: lsn, Data: data, CRC: calculateCRC(lsn, data)}
	if _, err := m.file.Write(rec.Encode()); err != nil {
		return 0, fmt.Errorf("wal: append LSN %d: %w", lsn, err)
	}
	return lsn, nil
}

// Sync flushes the log file to stable storage and advances the durable
// point to the last LSN assigned by Append.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}
	if m.nextLSN > 0 {
		m.flushedLSN = m.nextLSN - 1
	}
	return nil
}

// GetFlushedLSN returns the highest LSN known to be durable, or 0 when no
// record has been synced yet. Satisfies
// bufferpool.LogManager.
func (m *Manager) GetFlushedLSN() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushedLSN
}

// Close syncs and closes the backing log file.
func (m *Manager) Close() error {
	if err := m.Sync(); err != nil {
		m.file.Close()
		return err
	}
	return m.file.Close()
}
