package history

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bryanchriswhite/FocusShot/internal/fileutil"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// FileName is the ledger file inside the application-data directory.
const FileName = "history.json"

// ErrDuplicateID is returned by Append when the entry's ID is already in
// the ledger.
var ErrDuplicateID = errors.New("history entry id already exists")

// Ledger is the append-only history stored as one JSON array. Every
// mutation is a whole-file read-modify-write done under a Guard and
// committed with an atomic rename.
type Ledger struct {
	path  string
	guard *fileutil.Guard
}

// NewLedger creates a ledger rooted at the application-data directory.
func NewLedger(dataDir string) *Ledger {
	path := filepath.Join(dataDir, FileName)
	return &Ledger{
		path:  path,
		guard: fileutil.NewGuard(path),
	}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// All returns every entry in insertion order. A missing file is an empty
// ledger; an unparseable one is a Corrupt error.
func (l *Ledger) All() ([]Entry, error) {
	return l.read()
}

// Get returns the entry with the given id.
func (l *Ledger) Get(id string) (Entry, error) {
	entries, err := l.read()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, shoterr.Errorf(shoterr.KindNotFound, shoterr.StageHistory, "get", "entry %q", id)
}

// Append adds entry to the end of the ledger. It fails without writing if
// the ledger is corrupt or already holds entry.ID.
func (l *Ledger) Append(entry Entry) error {
	if entry.ID == "" {
		return shoterr.Errorf(shoterr.KindInvalid, shoterr.StageHistory, "append", "entry id is required")
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}

	var count int
	err := l.guard.Do(func() error {
		entries, err := l.read()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.ID == entry.ID {
				return shoterr.New(shoterr.KindInvalid, shoterr.StageHistory, "append", ErrDuplicateID)
			}
		}
		entries = append(entries, entry)
		count = len(entries)
		return l.write(entries)
	})
	if err != nil {
		return shoterr.InStage(err, shoterr.StageHistory, shoterr.KindStorageUnavailable, "append")
	}

	logger.WithComponent("history").Info().
		Str("id", entry.ID).
		Str("file_path", entry.FilePath).
		Int("entries", count).
		Msg("History entry appended")
	return nil
}

// Clear empties the ledger. It is the only way entries are removed.
func (l *Ledger) Clear() error {
	err := l.guard.Do(func() error {
		return l.write([]Entry{})
	})
	if err != nil {
		return shoterr.InStage(err, shoterr.StageHistory, shoterr.KindStorageUnavailable, "clear")
	}

	logger.WithComponent("history").Info().
		Str("path", l.path).
		Msg("History cleared")
	return nil
}

func (l *Ledger) read() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageHistory, "read", err).WithPath(l.path)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.WithComponent("history").Error().
			Err(err).
			Str("path", l.path).
			Msg("History file is corrupt")
		return nil, shoterr.New(shoterr.KindCorrupt, shoterr.StageHistory, "parse", err).WithPath(l.path)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (l *Ledger) write(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageHistory, "create directory", err).WithPath(filepath.Dir(l.path))
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return shoterr.New(shoterr.KindInvalid, shoterr.StageHistory, "marshal", err)
	}
	if err := fileutil.WriteFileAtomic(l.path, data, 0644); err != nil {
		return shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageHistory, "write", err).WithPath(l.path)
	}
	return nil
}
