// Package shoterr defines the error kinds shared by the capture pipeline and
// its stores.
//
// Every failure that crosses a package boundary is an *Error carrying a Kind
// and the pipeline Stage that produced it, so callers can tell a capture
// failure apart from an encode or storage failure:
//
//	path, err := svc.CaptureFullScreen()
//	if errors.Is(err, shoterr.ErrSourceUnavailable) { ... }
//	switch shoterr.StageOf(err) { case shoterr.StageStorage: ... }
package shoterr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindSourceUnavailable
	KindCaptureFailed
	KindRegionOutOfBounds
	KindEmptyRegion
	KindUnsupportedFormat
	KindStorageUnavailable
	KindNotFound
	KindCorrupt
	KindInvalid
)

// Sentinel errors, one per kind. An *Error matches the sentinel of its kind
// under errors.Is.
var (
	ErrSourceUnavailable  = errors.New("no capture source available")
	ErrCaptureFailed      = errors.New("capture failed")
	ErrRegionOutOfBounds  = errors.New("region origin outside source bounds")
	ErrEmptyRegion        = errors.New("region is empty")
	ErrUnsupportedFormat  = errors.New("unsupported image format")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotFound           = errors.New("not found")
	ErrCorrupt            = errors.New("corrupt data")
	ErrInvalid            = errors.New("invalid argument")
)

var sentinels = map[Kind]error{
	KindSourceUnavailable:  ErrSourceUnavailable,
	KindCaptureFailed:      ErrCaptureFailed,
	KindRegionOutOfBounds:  ErrRegionOutOfBounds,
	KindEmptyRegion:        ErrEmptyRegion,
	KindUnsupportedFormat:  ErrUnsupportedFormat,
	KindStorageUnavailable: ErrStorageUnavailable,
	KindNotFound:           ErrNotFound,
	KindCorrupt:            ErrCorrupt,
	KindInvalid:            ErrInvalid,
}

// String returns the kind name used in logs and API responses.
func (k Kind) String() string {
	switch k {
	case KindSourceUnavailable:
		return "source_unavailable"
	case KindCaptureFailed:
		return "capture_failed"
	case KindRegionOutOfBounds:
		return "region_out_of_bounds"
	case KindEmptyRegion:
		return "empty_region"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindStorageUnavailable:
		return "storage_unavailable"
	case KindNotFound:
		return "not_found"
	case KindCorrupt:
		return "corrupt"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Stage names the pipeline step a failure came from.
type Stage string

const (
	StageSource    Stage = "source"
	StageTransform Stage = "transform"
	StageEncode    Stage = "encode"
	StageStorage   Stage = "storage"
	StageHistory   Stage = "history"
	StageSettings  Stage = "settings"
)

// Error is the typed failure returned across package boundaries.
type Error struct {
	Kind  Kind
	Stage Stage
	Op    string
	Path  string
	Err   error
}

// New creates an Error. err may be nil.
func New(kind Kind, stage Stage, op string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Op: op, Err: err}
}

// Errorf creates an Error whose cause is a formatted message.
func Errorf(kind Kind, stage Stage, op, format string, args ...any) *Error {
	return New(kind, stage, op, fmt.Errorf(format, args...))
}

// WithPath records the file the failure relates to.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(string(e.Stage))
		b.WriteString(": ")
	}
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if sentinel, ok := sentinels[e.Kind]; ok {
		b.WriteString(sentinel.Error())
	} else {
		b.WriteString("error")
	}
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StageOf returns the stage of the first *Error in err's chain.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// InStage attributes err to stage. An *Error that already carries a stage
// keeps it; anything else is wrapped with the given kind.
func InStage(err error, stage Stage, fallback Kind, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Stage == "" {
			e.Stage = stage
		}
		return err
	}
	return New(fallback, stage, op, err)
}
