// Package failure defines the error kinds surfaced to users of a lesson.
//
// Every operation boundary (packet build, batch advance, library lookup)
// reports errors as *Error so callers can map them to a message or an HTTP
// status without string matching.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindConfiguration covers missing credentials and missing source files.
	KindConfiguration Kind = "configuration"
	// KindRange covers page numbers outside the document and exhausted batches.
	KindRange Kind = "range"
	// KindUpstream covers generation and speech service failures.
	KindUpstream Kind = "upstream"
	// KindAsset covers corrupt or unreadable page and cover images.
	KindAsset Kind = "asset"
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against another *Error with the same kind, so
// errors.Is(err, &failure.Error{Kind: failure.KindRange}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

func newError(kind Kind, op string, err error) *Error {
	if err == nil {
		err = errors.New(string(kind) + " failure")
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configuration wraps err as a configuration failure.
func Configuration(op string, err error) *Error { return newError(KindConfiguration, op, err) }

// Range wraps err as a range failure.
func Range(op string, err error) *Error { return newError(KindRange, op, err) }

// Upstream wraps err as an upstream service failure.
func Upstream(op string, err error) *Error { return newError(KindUpstream, op, err) }

// Asset wraps err as an asset failure.
func Asset(op string, err error) *Error { return newError(KindAsset, op, err) }

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
