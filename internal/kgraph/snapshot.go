package kgraph

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SnapshotCounter increments monotonically per successful write-query,
// satisfying invariant 1: snapshot monotonicity.
type SnapshotCounter struct {
	mu  sync.Mutex
	dir string
	n   int
}

// NewSnapshotCounter creates the run's snapshot directory
// <base>/<timestamp>/snapshot_<runIndex>/ and returns a counter starting at 0.
func NewSnapshotCounter(base string, runIndex int, now time.Time) (*SnapshotCounter, error) {
	dir := filepath.Join(base, now.Format("20060102T150405"), fmt.Sprintf("snapshot_%d", runIndex))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory %s: %w", dir, err)
	}
	return &SnapshotCounter{dir: dir}, nil
}

// Dir returns the snapshot directory.
func (c *SnapshotCounter) Dir() string {
	return c.dir
}

// Next increments the counter and returns the path for the next snapshot
// file with the given extension (without the leading dot).
func (c *SnapshotCounter) Next(ext string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return filepath.Join(c.dir, fmt.Sprintf("snapshot_%d.%s", c.n, ext))
}

// Count returns the current counter value.
func (c *SnapshotCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
