package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	BadHeader ErrorKind = iota + 1
	BadXref
	TruncatedStream
	CyclicReference
	UnsupportedFilter
	TooDeep
)

// Sentinels matched by ParseError.Is, so callers can write
// errors.Is(err, core.ErrBadXref) without inspecting the kind.
var (
	ErrBadHeader         = errors.New("bad header")
	ErrBadXref           = errors.New("bad cross-reference data")
	ErrTruncatedStream   = errors.New("truncated stream")
	ErrCyclicReference   = errors.New("cyclic reference")
	ErrUnsupportedFilter = errors.New("unsupported filter")
	ErrTooDeep           = errors.New("objects nested too deeply")
)

// Operation level failures.
var (
	ErrAccessDenied     = errors.New("access denied: password required or incorrect")
	ErrInvalidAngle     = errors.New("invalid rotation angle: must be 90, 180 or 270")
	ErrPageIndexInvalid = errors.New("page index out of range")
	ErrNoPagesSelected  = errors.New("no pages selected")
)

func (k ErrorKind) String() string {
	switch k {
	case BadHeader:
		return "bad header"
	case BadXref:
		return "bad xref"
	case TruncatedStream:
		return "truncated stream"
	case CyclicReference:
		return "cyclic reference"
	case UnsupportedFilter:
		return "unsupported filter"
	case TooDeep:
		return "too deep"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case BadHeader:
		return ErrBadHeader
	case BadXref:
		return ErrBadXref
	case TruncatedStream:
		return ErrTruncatedStream
	case CyclicReference:
		return ErrCyclicReference
	case UnsupportedFilter:
		return ErrUnsupportedFilter
	case TooDeep:
		return ErrTooDeep
	}
	return nil
}

// ParseError reports malformed input. Offset is the byte position in the
// file where the problem was detected, or -1 when it is not tied to one.
type ParseError struct {
	Kind   ErrorKind
	Offset int64
	Err    error
}

// NewParseError creates a ParseError of the given kind.
func NewParseError(kind ErrorKind, offset int64, err error) *ParseError {
	return &ParseError{Kind: kind, Offset: offset, Err: err}
}

func (e *ParseError) Error() string {
	msg := "pdf: " + e.Kind.String()
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *ParseError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// SourceReadError names the input file that could not be read or parsed
// during a multi-source operation.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// IOError reports a failure writing an output file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// TypeError is returned when an object has a different variant than the
// caller required.
type TypeError struct {
	Key  string
	Want ObjectType
	Got  Object
}

func (e *TypeError) Error() string {
	got := "missing"
	if e.Got != nil {
		got = e.Got.Type().String()
	}
	if e.Key != "" {
		return fmt.Sprintf("/%s: expected %s, got %s", e.Key, e.Want, got)
	}
	return fmt.Sprintf("expected %s, got %s", e.Want, got)
}
