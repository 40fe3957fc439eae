package segment

import (
	"errors"
	"fmt"
)

// Kind classifies why a segmentation call could not produce a result.
type Kind string

const (
	// KindDecode means the input bytes or file could not be decoded as an image.
	KindDecode Kind = "decode"
	// KindEmptyInput means a zero-size image, an empty path or an empty region list.
	KindEmptyInput Kind = "empty_input"
	// KindProcessing means a pipeline stage failed on otherwise valid input.
	KindProcessing Kind = "processing"
	// KindTooLarge means the image exceeds Params.MaxPixels.
	KindTooLarge Kind = "too_large"
)

// Error is returned by every public operation in this package. A caller that
// receives one knows the result is unavailable, as opposed to a nil error with
// zero regions, which means the page has no detectable content.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("segment %s [%s]: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("segment %s [%s]", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func newErrorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether err is (or wraps) a segment *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// KindOf returns the Kind of a segment error, or "" for nil and foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// guard runs fn and converts a panic raised inside it (including one raised
// by the OpenCV bindings) into a KindProcessing error. A failure on one page
// must never take down a whole comparison run.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newErrorf(KindProcessing, op, "recovered: %v", r)
		}
	}()
	if err := fn(); err != nil {
		var se *Error
		if errors.As(err, &se) {
			return err
		}
		return newError(KindProcessing, op, err)
	}
	return nil
}
