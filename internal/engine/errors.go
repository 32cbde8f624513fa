package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/index"
	"github.com/roach88/replicon/internal/store"
)

// ReplicationError is an error raised while reconciling or applying, tagged
// with how the caller should react to it.
//
// Codes:
//   - CONTRACT_VIOLATION: a collaborator broke its contract (unordered
//     stream, unset SQL context, malformed event); never retried
//   - TRANSIENT: storage or queue failure; the message is redelivered
//   - STRUCTURAL: configuration that can never succeed (cycles, aggregate
//     over a view, unknown scope type); never retried
//   - NOT_FOUND: the object or scope disappeared
type ReplicationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Scope is the scope key of the pass, if any.
	Scope string

	// ObjectID identifies the affected object, if any.
	ObjectID int64

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes replication errors.
type ErrorCode string

const (
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	ErrCodeTransient         ErrorCode = "TRANSIENT"
	ErrCodeStructural        ErrorCode = "STRUCTURAL"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *ReplicationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Scope != "" {
		msg += fmt.Sprintf(" (scope=%s)", e.Scope)
	}
	if e.ObjectID != 0 {
		msg += fmt.Sprintf(" (object=%d)", e.ObjectID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReplicationError) Unwrap() error { return e.Err }

// Classify wraps err in a ReplicationError with a code derived from the
// sentinel errors of the lower layers. Errors that are already classified
// are returned unchanged; unknown errors are treated as transient.
func Classify(err error, message, scope string) error {
	if err == nil {
		return nil
	}
	var re *ReplicationError
	if errors.As(err, &re) {
		return err
	}
	return &ReplicationError{Code: codeOf(err), Message: message, Scope: scope, Err: err}
}

func codeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, checksum.ErrOutOfOrder),
		errors.Is(err, index.ErrUnsetContext),
		errors.Is(err, errInvalidEvent):
		return ErrCodeContractViolation
	case errors.Is(err, index.ErrCycle),
		errors.Is(err, index.ErrAggregateWithViewDependency),
		errors.Is(err, index.ErrUnsupportedKind),
		errors.Is(err, index.ErrUnknownHandle),
		errors.Is(err, index.ErrDuplicateKey),
		errors.Is(err, index.ErrNotMaterializedView),
		errors.Is(err, filter.ErrEmptySubTypes),
		errors.Is(err, filter.ErrInvalidFilter),
		errors.Is(err, store.ErrUnsupportedMode),
		errors.Is(err, errUndecodable):
		return ErrCodeStructural
	case errors.Is(err, store.ErrNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeTransient
	}
}

var (
	errInvalidEvent = errors.New("invalid change event")
	errUndecodable  = errors.New("undecodable message")
)

func hasCode(err error, code ErrorCode) bool {
	var re *ReplicationError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsRecoverable reports whether err is worth retrying. Context cancellation
// is not: it only happens on shutdown.
func IsRecoverable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var re *ReplicationError
	if errors.As(err, &re) {
		return re.Code == ErrCodeTransient
	}
	return codeOf(err) == ErrCodeTransient
}

// IsStructural returns true if err is a configuration error.
func IsStructural(err error) bool { return hasCode(err, ErrCodeStructural) }

// IsContractViolation returns true if err reports a broken contract.
func IsContractViolation(err error) bool { return hasCode(err, ErrCodeContractViolation) }

// IsNotFound returns true if err reports a missing object or scope.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }
