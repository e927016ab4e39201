// Package shared contains the error kinds used across the domain packages.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"strings"
)

// Kinds. Every domain error carries one, so that callers can branch with
// errors.Is without knowing which package failed.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrNoData marks a document that ends up empty; it is skipped, not failed.
	ErrNoData = errors.New("no data")
	// ErrDataIntegrity aborts the current document.
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrIO            = errors.New("output error")

	ErrStorage = errors.New("storage read error")
	ErrRender  = errors.New("render error")
)

// DomainError is an error with its place of origin and kind.
type DomainError struct {
	Domain  string // "period", "register", "archive"
	Op      string // "Classify", "Save", ...
	Kind    error
	Message string
	Err     error // cause, optional
}

// Error renders "domain.Op: message[: cause]".
func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(e.Domain)
	b.WriteByte('.')
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *DomainError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewDomainError creates an error with no cause.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError attaches domain context and a kind to err.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// ─── period ────────────────────────────────────────────────────────────────

var (
	ErrDateOutsideYear  = NewDomainError("period", "Classify", ErrDataIntegrity, "date outside the school year")
	ErrTermsNotOrdered  = NewDomainError("period", "NewCalendar", ErrValidation, "term end dates are not ordered")
	ErrTermsUnsupported = NewDomainError("period", "NewCalendar", ErrValidation, "a school year has two or three terms")
)

// ─── register ──────────────────────────────────────────────────────────────

var (
	ErrTeacherNotFound = NewDomainError("register", "FindTeacher", ErrNotFound, "teacher not found")
	ErrClassNotFound   = NewDomainError("register", "FindClass", ErrNotFound, "class not found")
	ErrInvalidDuration = NewDomainError("register", "SumMinutes", ErrDataIntegrity, "lesson duration is not positive")
	ErrUnknownVariant  = NewDomainError("register", "Generate", ErrInvalidInput, "unknown register variant")
)

// ─── archive ───────────────────────────────────────────────────────────────

var (
	ErrNoPages       = NewDomainError("archive", "Save", ErrNoData, "document has no pages")
	ErrOutputCreate  = NewDomainError("archive", "Save", ErrIO, "cannot create output file")
	ErrRendererState = NewDomainError("archive", "Render", ErrRender, "renderer is in an invalid state")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsNoData reports an empty document rather than a failure.
func IsNoData(err error) bool { return errors.Is(err, ErrNoData) }

func IsDataIntegrity(err error) bool { return errors.Is(err, ErrDataIntegrity) }

// IsValidation covers every kind of bad input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValueOutOfRange)
}
