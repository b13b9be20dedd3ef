// Package apperr classifies errors at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vegasq/parqview/query"
	"github.com/vegasq/parqview/reader"
	"github.com/vegasq/parqview/store"
	"github.com/vegasq/parqview/table"
)

// Kind represents the category of error
type Kind string

const (
	// KindValidation represents malformed request input
	KindValidation Kind = "validation"
	// KindMissingField represents a required request field that is absent
	KindMissingField Kind = "missing_field"
	// KindDecode represents content that is not valid parquet
	KindDecode Kind = "decode"
	// KindNotFound represents a missing file
	KindNotFound Kind = "not_found"
	// KindQuery represents a failed SQL query
	KindQuery Kind = "query"
	// KindState represents a request made before a dataset was loaded
	KindState Kind = "state"
	// KindInternal represents unexpected failures
	KindInternal Kind = "internal"
)

// Error is an error with a kind. Message is what clients see.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of kind with a client-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap wraps err with a kind and message. It returns nil for a nil err.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// KindOf returns the kind of err. Errors that are not *Error are classified
// by the sentinel errors they wrap.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	switch {
	case errors.Is(err, store.ErrNoDataset):
		return KindState
	case errors.Is(err, reader.ErrNotFound):
		return KindNotFound
	case errors.Is(err, reader.ErrDecode):
		return KindDecode
	case errors.Is(err, query.ErrQuery):
		return KindQuery
	case errors.Is(err, table.ErrUnknownColumn):
		return KindValidation
	default:
		return KindInternal
	}
}

// StatusCode maps err to an HTTP status code.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindMissingField:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// Is reports whether err has kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Detail returns the message shown to clients for err.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
