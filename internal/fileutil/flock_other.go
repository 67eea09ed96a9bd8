//go:build !unix

package fileutil

// FileLock is a no-op outside unix; Guard's in-process mutex still
// serialises writers within one process.
type FileLock struct {
	path string
}

// NewFileLock creates a FileLock for path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock is a no-op.
func (fl *FileLock) Lock() error { return nil }

// Unlock is a no-op.
func (fl *FileLock) Unlock() error { return nil }
