// Package history keeps the ledger of captured artifacts.
package history

import (
	"time"

	"github.com/google/uuid"
)

// Entry records one artifact written to disk. Width and Height are the
// dimensions of the encoded image, after any crop or resize.
type Entry struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	Timestamp time.Time `json:"timestamp"`
	Width     uint32    `json:"width"`
	Height    uint32    `json:"height"`
	Tags      []string  `json:"tags"`
}

// NewEntry creates an entry with a fresh random ID stamped with the current
// UTC time.
func NewEntry(path string, width, height int, tags ...string) Entry {
	if tags == nil {
		tags = []string{}
	}
	return Entry{
		ID:        uuid.NewString(),
		FilePath:  path,
		Timestamp: time.Now().UTC(),
		Width:     uint32(width),
		Height:    uint32(height),
		Tags:      tags,
	}
}
