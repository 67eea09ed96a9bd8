// Package shot is the boundary of the capture pipeline. A Service owns the
// settings, history and artifact stores for one application-data directory
// and drives capture -> transform -> encode -> persist -> record.
package shot

import (
	"image"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusShot/internal/artifact"
	"github.com/bryanchriswhite/FocusShot/internal/capture"
	"github.com/bryanchriswhite/FocusShot/internal/config"
	"github.com/bryanchriswhite/FocusShot/internal/history"
	"github.com/bryanchriswhite/FocusShot/internal/imaging"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// ClipboardSink receives decoded images for the system clipboard.
// rgba is row-major straight-alpha RGBA8 with no row padding.
type ClipboardSink interface {
	SetImage(width, height int, rgba []byte) error
}

// HotkeyRegistrar binds a key combination such as "CmdOrCtrl+Shift+S" to a
// callback.
type HotkeyRegistrar interface {
	Register(combo string, fn func()) error
}

// RegionSelector asks the user for a rectangle on a display. It serves the
// capture_region hotkey, which has no rectangle of its own.
type RegionSelector interface {
	SelectRegion(display capture.Display, frame *image.NRGBA) (imaging.Rect, error)
}

// Options configures a Service.
type Options struct {
	// DataDir holds settings.json and history.json. Required.
	DataDir string
	// Source produces frames. Captures fail with SourceUnavailable when nil.
	Source    capture.Source
	Clipboard ClipboardSink
	Selector  RegionSelector
	// Now overrides the clock used for artifact names.
	Now func() time.Time
}

// EventType distinguishes history events.
type EventType string

const (
	EventAdded   EventType = "added"
	EventCleared EventType = "cleared"
)

// Event is pushed to subscribers when the history changes.
type Event struct {
	Type  EventType      `json:"type"`
	Entry *history.Entry `json:"entry,omitempty"`
}

// Service implements the boundary operations
type Service struct {
	dataDir   string
	source    capture.Source
	clipboard ClipboardSink
	selector  RegionSelector
	settings  *config.Store
	history   *history.Ledger
	artifacts *artifact.Store

	mu        sync.RWMutex
	listeners []chan Event
}

// New creates a Service over opts.DataDir. Nothing is read or written until
// the first operation.
func New(opts Options) (*Service, error) {
	if opts.DataDir == "" {
		return nil, shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSettings, "new service", "data directory is required")
	}

	artifacts := artifact.NewStore()
	if opts.Now != nil {
		artifacts = artifact.NewStoreWithClock(opts.Now)
	}

	s := &Service{
		dataDir:   opts.DataDir,
		source:    opts.Source,
		clipboard: opts.Clipboard,
		selector:  opts.Selector,
		settings:  config.NewStore(opts.DataDir),
		history:   history.NewLedger(opts.DataDir),
		artifacts: artifacts,
	}

	logger.WithComponent("shot").Debug().
		Str("data_dir", opts.DataDir).
		Bool("source", opts.Source != nil).
		Bool("clipboard", opts.Clipboard != nil).
		Msg("Service created")

	return s, nil
}

// DataDir returns the application-data directory.
func (s *Service) DataDir() string {
	return s.dataDir
}

// SettingsPath returns the settings file path.
func (s *Service) SettingsPath() string {
	return s.settings.Path()
}

// HistoryPath returns the history file path.
func (s *Service) HistoryPath() string {
	return s.history.Path()
}

// LoadSettings returns the stored settings, or defaults when the file is
// missing or unreadable.
func (s *Service) LoadSettings() (config.Settings, error) {
	return s.settings.Load()
}

// LoadSettingsStrict is LoadSettings but reports a corrupt file as Corrupt.
func (s *Service) LoadSettingsStrict() (config.Settings, error) {
	return s.settings.LoadStrict()
}

// SaveSettings validates and persists settings wholesale.
func (s *Service) SaveSettings(settings config.Settings) error {
	return s.settings.Save(settings)
}

// UpdateSettings applies fn to the stored settings under the settings lock.
func (s *Service) UpdateSettings(fn func(*config.Settings) error) (config.Settings, error) {
	return s.settings.Update(fn)
}

// GetHistory returns every history entry in insertion order.
func (s *Service) GetHistory() ([]history.Entry, error) {
	return s.history.All()
}

// AddHistory appends entry to the ledger.
func (s *Service) AddHistory(entry history.Entry) error {
	if err := s.history.Append(entry); err != nil {
		return err
	}
	s.notifyListeners(Event{Type: EventAdded, Entry: &entry})
	return nil
}

// ClearHistory empties the ledger. Artifacts on disk are left alone.
func (s *Service) ClearHistory() error {
	if err := s.history.Clear(); err != nil {
		return err
	}
	s.notifyListeners(Event{Type: EventCleared})
	return nil
}

// ListDisplays lists the source's displays, primary first.
func (s *Service) ListDisplays() ([]capture.Display, error) {
	src, err := s.requireSource()
	if err != nil {
		return nil, err
	}
	return src.ListDisplays()
}

// ListWindows lists the source's top-level windows.
func (s *Service) ListWindows() ([]capture.Window, error) {
	src, err := s.requireSource()
	if err != nil {
		return nil, err
	}
	return src.ListWindows()
}

// SourceInfo describes the capture backend in use.
type SourceInfo struct {
	Name         string               `json:"name"`
	Capabilities capture.Capabilities `json:"capabilities"`
}

// Source reports the active backend.
func (s *Service) Source() (SourceInfo, error) {
	src, err := s.requireSource()
	if err != nil {
		return SourceInfo{}, err
	}
	caps := src.Capabilities()
	return SourceInfo{Name: src.Name(), Capabilities: caps}, nil
}

func (s *Service) requireSource() (capture.Source, error) {
	if s.source == nil {
		return nil, shoterr.Errorf(shoterr.KindSourceUnavailable, shoterr.StageSource, "capture", "no capture source configured")
	}
	return s.source, nil
}

// Subscribe adds a listener for history changes
func (s *Service) Subscribe() chan Event {
	ch := make(chan Event, 10)
	s.mu.Lock()
	s.listeners = append(s.listeners, ch)
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener
func (s *Service) Unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, listener := range s.listeners {
		if listener == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

func (s *Service) notifyListeners(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, listener := range s.listeners {
		select {
		case listener <- ev:
		default:
			// Skip if channel is full
		}
	}
}
