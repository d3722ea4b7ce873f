// Package apperr defines the error taxonomy shared by the reader, the live
// view, the report trigger, and the read surfaces.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and status mapping.
type Kind string

const (
	KindUnknown                Kind = "internal"
	KindMalformedRecord        Kind = "malformed_record"
	KindStoreUnavailable       Kind = "store_unavailable"
	KindReportGenerationFailed Kind = "report_generation_failed"
	KindArtifactNotFound       Kind = "artifact_not_found"
	KindReportInProgress       Kind = "report_in_progress"
)

// Error is a classified error carrying the failing operation and its cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = e.Message
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrStoreUnavailable)
// holds for every store failure regardless of operation or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrMalformedRecord        = &Error{Kind: KindMalformedRecord}
	ErrStoreUnavailable       = &Error{Kind: KindStoreUnavailable}
	ErrReportGenerationFailed = &Error{Kind: KindReportGenerationFailed}
	ErrArtifactNotFound       = &Error{Kind: KindArtifactNotFound}
	ErrReportInProgress       = &Error{Kind: KindReportInProgress}
)

// New returns a classified error.
func New(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// StoreUnavailable wraps an I/O failure of the backing record store.
func StoreUnavailable(op string, cause error) *Error {
	return &Error{Kind: KindStoreUnavailable, Op: op, Message: "record store unavailable", Cause: cause}
}

// MalformedRecord marks a record store line that is not a JSON object.
func MalformedRecord(op string, cause error) *Error {
	return &Error{Kind: KindMalformedRecord, Op: op, Message: "malformed record", Cause: cause}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
