package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by services, repositories and the HTTP layer.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrEventNotFound       = errors.New("event not found")
	ErrEventAlreadyExists  = errors.New("event already exists")
	ErrUserAlreadyInEvent  = errors.New("user already in event")
	ErrUserNotInEvent      = errors.New("user not in event")
	ErrStaleVersion        = errors.New("stale version")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	ErrDegenerateVector    = errors.New("degenerate embedding vector")
	ErrCountExtraction     = errors.New("count extraction failed")
)

// ProviderKind identifies which upstream model call failed
type ProviderKind string

const (
	ProviderEmbedding  ProviderKind = "embedding"
	ProviderCompletion ProviderKind = "completion"
)

// ProviderError is returned when an embedding or completion provider fails.
// Status is the HTTP status the failure should surface as.
type ProviderError struct {
	Kind     ProviderKind
	Provider string
	Status   int
	Err      error
}

// NewProviderError builds a ProviderError, deriving the surfaced status from
// the upstream status code (0 when the request never got a response).
func NewProviderError(kind ProviderKind, provider string, upstreamStatus int, err error) *ProviderError {
	return &ProviderError{
		Kind:     kind,
		Provider: provider,
		Status:   StatusClass(upstreamStatus),
		Err:      err,
	}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider %s: %v", e.Kind, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StatusClass maps an upstream provider status to the status we surface.
// Only rejections of the caller's input stay 4xx.
func StatusClass(upstream int) int {
	switch upstream {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// PersistenceOp names the storage operation that failed
type PersistenceOp string

const (
	OpSave   PersistenceOp = "save"
	OpDelete PersistenceOp = "delete"
)

// PersistenceError wraps an unexpected storage failure for an entity
type PersistenceError struct {
	Entity string
	Op     PersistenceOp
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// WrapPersistence wraps err in a PersistenceError unless it already carries
// a domain meaning that callers must be able to match on.
func WrapPersistence(entity string, op PersistenceOp, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrStaleVersion,
		ErrConcurrencyConflict,
		ErrDuplicateEmail,
		ErrEventAlreadyExists,
		ErrUserAlreadyInEvent,
		ErrUserNotInEvent,
		ErrEventNotFound,
		ErrUserNotFound,
		ErrInvalidInput,
		ErrDegenerateVector,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return err
	}
	return &PersistenceError{Entity: entity, Op: op, Err: err}
}
