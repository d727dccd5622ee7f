package compress

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput is reported when Compress is called without a file.
	ErrMissingInput = errors.New("file is null")

	// ErrDecodeTimeout is reported when a source bitmap does not load within
	// the configured decode timeout.
	ErrDecodeTimeout = errors.New("image decode timed out")
)

// Kind classifies pipeline failures so callers can tell a bad upload
// from a broken encoder without matching on messages.
type Kind int

const (
	// KindMissingInput means no file was supplied.
	KindMissingInput Kind = iota + 1

	// KindRead means the source file could not be opened or read.
	KindRead

	// KindDecode means the source bytes are not a loadable image, or loading
	// did not finish in time.
	KindDecode

	// KindEncode means the drawing surface could not be serialized.
	KindEncode

	// KindInvalidOptions means the caller supplied options outside their
	// allowed range.
	KindInvalidOptions
)

// String returns the string representation of the kind, used as a log field.
func (k Kind) String() string {
	switch k {
	case KindMissingInput:
		return "missing_input"
	case KindRead:
		return "read"
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	case KindInvalidOptions:
		return "invalid_options"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every pipeline step.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
