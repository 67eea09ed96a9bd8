package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Guard serialises read-modify-write cycles on a single file: an in-process
// mutex for goroutines and a sibling ".lock" file for other processes.
type Guard struct {
	mu       sync.Mutex
	lockPath string
}

// NewGuard returns a Guard for the file at target.
func NewGuard(target string) *Guard {
	return &Guard{lockPath: target + ".lock"}
}

// Do runs fn while holding both locks. The lock file's directory is created
// if needed.
func (g *Guard) Do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(g.lockPath), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	fl := NewFileLock(g.lockPath)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}
