// Package errors provides centralized error definitions and error handling
// utilities for the Concord codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - SessionError: errors related to negotiation session management
//   - SelectorError: errors related to candidate selection
//   - ReasonerError: errors related to the external Reasoner collaborator
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewSessionError("confirm rejected", errors.ErrSessionTerminal)
//
//	// With context wrapping
//	err := errors.NewReasonerError("aggregate failed", baseErr).WithOperation("aggregate")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrSessionNotFound) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrSessionNotFound indicates that a session could not be found.
	ErrSessionNotFound = New("session not found")
	// ErrSessionTerminal indicates that a session has reached a terminal
	// state and cannot accept further operations.
	ErrSessionTerminal = New("session is terminal")
	// ErrIllegalTransition indicates a state transition not permitted by
	// the session state machine.
	ErrIllegalTransition = New("illegal state transition")
	// ErrDuplicateMessage indicates a message whose ID was already processed.
	ErrDuplicateMessage = New("duplicate message")
	// ErrSessionCancelled indicates that a session was cancelled by the user.
	ErrSessionCancelled = New("session cancelled")
)

// Selection-related sentinel errors
var (
	// ErrEmptyPool indicates that the agent pool contains no members.
	ErrEmptyPool = New("agent pool is empty")
	// ErrNoCandidates indicates that selection produced no candidates.
	ErrNoCandidates = New("no candidates selected")
)

// Reasoner-related sentinel errors
var (
	// ErrBreakerOpen indicates that a call was short-circuited by the
	// open circuit breaker.
	ErrBreakerOpen = New("circuit breaker is open")
	// ErrReasonerUnavailable indicates a failed call to the reasoner.
	ErrReasonerUnavailable = New("reasoner unavailable")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrMaxRecovery indicates that recovery attempts were exhausted.
	ErrMaxRecovery = New("max recovery attempts exceeded")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ConcordError is the base interface for all Concord errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ConcordError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SessionError represents errors related to negotiation session management.
//
// Example:
//
//	err := errors.NewSessionError("confirm rejected", errors.ErrSessionTerminal)
//	err = err.WithSessionID("abc123")
type SessionError struct {
	baseError
	SessionID string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// WithSeverity sets the error severity.
func (e *SessionError) WithSeverity(s Severity) *SessionError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	prefix := "session error"
	if e.SessionID != "" {
		prefix = fmt.Sprintf("session error [session=%s]", e.SessionID)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SelectorError represents errors related to candidate selection.
type SelectorError struct {
	baseError
	DemandID string
	PoolSize int
}

// NewSelectorError creates a new SelectorError.
func NewSelectorError(message string, cause error) *SelectorError {
	return &SelectorError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithDemandID adds a demand ID to the error context.
func (e *SelectorError) WithDemandID(id string) *SelectorError {
	e.DemandID = id
	return e
}

// WithPoolSize adds the pool size to the error context.
func (e *SelectorError) WithPoolSize(n int) *SelectorError {
	e.PoolSize = n
	return e
}

// Error returns the formatted error message.
func (e *SelectorError) Error() string {
	var parts []string
	if e.DemandID != "" {
		parts = append(parts, fmt.Sprintf("demand=%s", e.DemandID))
	}
	if e.PoolSize > 0 {
		parts = append(parts, fmt.Sprintf("pool=%d", e.PoolSize))
	}

	prefix := "selector error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("selector error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SelectorError) Is(target error) bool {
	if _, ok := target.(*SelectorError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ReasonerError represents errors from the external Reasoner collaborator.
// Reasoner errors are retryable by default: the circuit breaker contains
// them and they never become session-fatal.
type ReasonerError struct {
	baseError
	Operation string
}

// NewReasonerError creates a new ReasonerError.
func NewReasonerError(message string, cause error) *ReasonerError {
	return &ReasonerError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: false,
		},
	}
}

// WithOperation adds the reasoner operation name to the error context.
func (e *ReasonerError) WithOperation(op string) *ReasonerError {
	e.Operation = op
	return e
}

// Error returns the formatted error message.
func (e *ReasonerError) Error() string {
	prefix := "reasoner error"
	if e.Operation != "" {
		prefix = fmt.Sprintf("reasoner error [op=%s]", e.Operation)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ReasonerError) Is(target error) bool {
	if _, ok := target.(*ReasonerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates that a resource could not be found.
type NotFoundError struct {
	baseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new NotFoundError for a resource.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s not found: %s", resource, id),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Resource: resource,
		ID:       id,
	}
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if e.Resource == "session" && target == ErrSessionNotFound {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError indicates that input validation failed.
type ValidationError struct {
	baseError
	Field string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			cause:      ErrInvalidInput,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Field: field,
	}
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError indicates that an operation timed out.
type TimeoutError struct {
	baseError
	Operation string
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    fmt.Sprintf("%s timed out", operation),
			cause:      ErrTimeout,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
	}
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable reports whether an error is transient and the operation may
// succeed on retry. Errors that don't implement ConcordError are not
// retryable.
func IsRetryable(err error) bool {
	var ce ConcordError
	if As(err, &ce) {
		return ce.IsRetryable()
	}
	return false
}

// IsUserFacing reports whether an error message is safe to display to end
// users. Errors that don't implement ConcordError are considered internal.
func IsUserFacing(err error) bool {
	var ce ConcordError
	if As(err, &ce) {
		return ce.IsUserFacing()
	}
	return false
}

// SeverityOf returns the severity of an error, defaulting to SeverityError
// for errors that don't implement ConcordError.
func SeverityOf(err error) Severity {
	var ce ConcordError
	if As(err, &ce) {
		return ce.Severity()
	}
	return SeverityError
}
