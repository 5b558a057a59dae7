// Package errors provides centralized error definitions and error handling utilities
// for the bidagent codebase. It defines registry rejection sentinels, domain error
// types carrying ledger context, semantic error types, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures from specific subsystems:
//   - RegistryError: a task registry operation was rejected (abort code, task)
//   - LedgerError: transport or confirmation failure talking to the ledger node
//   - FeedError: the event feed (indexer) could not be queried or decoded
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewRegistryError("place_bid", errors.ErrDeadlinePassed).WithTaskID("task-1")
//
//	if errors.Is(err, errors.ErrDuplicateBid) { ... }
//	if errors.IsRetryable(err) { ... }
//
// # Error Classification
//
// Registry rejections are final for the operation that produced them; ledger
// transport failures and timeouts are retryable. The monitor relies on this
// split to decide whether a cursor may advance.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
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

// Registry rejection sentinels. Each maps to one abort condition of the
// bidding_system contract.
var (
	// ErrDuplicateTaskID indicates a publish with an id that already exists.
	ErrDuplicateTaskID = New("duplicate task id")
	// ErrInvalidBudget indicates a publish with a zero budget.
	ErrInvalidBudget = New("invalid budget")
	// ErrInvalidDeadline indicates a publish whose deadline is not in the future.
	ErrInvalidDeadline = New("invalid deadline")
	// ErrTaskNotFound indicates the task id is unknown to the registry.
	ErrTaskNotFound = New("task not found")
	// ErrTaskNotOpen indicates the task is no longer in the PUBLISHED state.
	ErrTaskNotOpen = New("task not open")
	// ErrDeadlinePassed indicates a bid arrived after the bidding deadline.
	ErrDeadlinePassed = New("deadline passed")
	// ErrInvalidPrice indicates a bid price of zero or above the task budget.
	ErrInvalidPrice = New("invalid price")
	// ErrInvalidReputation indicates a reputation score outside 0..100.
	ErrInvalidReputation = New("invalid reputation score")
	// ErrDuplicateBid indicates the bidder already has a bid on the task.
	ErrDuplicateBid = New("duplicate bid")
	// ErrNoBids indicates select_winner was called on a task without bids.
	ErrNoBids = New("no bids")
	// ErrNotAssigned indicates complete_task on a task that is not ASSIGNED.
	ErrNotAssigned = New("task not assigned")
	// ErrNotWinner indicates complete_task by someone other than the winner.
	ErrNotWinner = New("caller is not the winner")
	// ErrPlatformNotInitialized indicates the registry resource does not exist.
	ErrPlatformNotInitialized = New("platform not initialized")
	// ErrPlatformExists indicates initialize was called twice.
	ErrPlatformExists = New("platform already initialized")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrMalformedResponse indicates a response that did not match its schema.
	ErrMalformedResponse = New("malformed response")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// BidagentError is the base interface for all bidagent errors.
type BidagentError interface {
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

func formatPrefix(name string, parts []string) string {
	if len(parts) == 0 {
		return name
	}
	return fmt.Sprintf("%s [%s]", name, strings.Join(parts, ", "))
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// RegistryError is a rejection returned by the task registry for one
// operation. The cause is one of the registry sentinels above, so callers
// test with errors.Is(err, errors.ErrDuplicateBid) and friends.
//
// Example:
//
//	err := errors.NewRegistryError("place_bid", errors.ErrTaskNotOpen).WithTaskID("task-1")
//	fmt.Println(err) // "registry error [op=place_bid, task=task-1]: task not open"
type RegistryError struct {
	baseError
	Operation string
	TaskID    string
	AbortCode uint64
}

// NewRegistryError creates a new RegistryError for the named operation.
func NewRegistryError(operation string, cause error) *RegistryError {
	msg := "rejected"
	if cause != nil {
		msg = cause.Error()
	}
	return &RegistryError{
		baseError: baseError{
			message:    msg,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Operation: operation,
	}
}

// WithTaskID adds a task ID to the error context.
func (e *RegistryError) WithTaskID(id string) *RegistryError {
	e.TaskID = id
	return e
}

// WithAbortCode records the raw abort code reported by the ledger.
func (e *RegistryError) WithAbortCode(code uint64) *RegistryError {
	e.AbortCode = code
	return e
}

// Error returns the formatted error message.
func (e *RegistryError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Operation))
	}
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}
	if e.AbortCode != 0 {
		parts = append(parts, fmt.Sprintf("abort=%d", e.AbortCode))
	}
	return fmt.Sprintf("%s: %s", formatPrefix("registry error", parts), e.message)
}

// Is checks if this error matches the target.
func (e *RegistryError) Is(target error) bool {
	if _, ok := target.(*RegistryError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// LedgerError represents a failure talking to the ledger node: submission,
// confirmation wait, or a view call. Transport failures are retryable.
//
// Example:
//
//	err := errors.NewLedgerError("wait for transaction", cause).WithTxHash("0xabc")
type LedgerError struct {
	baseError
	TxHash     string
	StatusCode int
}

// NewLedgerError creates a new LedgerError. Ledger errors default to retryable.
func NewLedgerError(message string, cause error) *LedgerError {
	return &LedgerError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithTxHash adds the pending transaction hash to the error context.
func (e *LedgerError) WithTxHash(hash string) *LedgerError {
	e.TxHash = hash
	return e
}

// WithStatusCode records the HTTP status code returned by the node.
func (e *LedgerError) WithStatusCode(code int) *LedgerError {
	e.StatusCode = code
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *LedgerError) WithRetryable(r bool) *LedgerError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *LedgerError) Error() string {
	var parts []string
	if e.TxHash != "" {
		parts = append(parts, fmt.Sprintf("tx=%s", e.TxHash))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	prefix := formatPrefix("ledger error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *LedgerError) Is(target error) bool {
	if _, ok := target.(*LedgerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// FeedError represents a failure querying or decoding the event feed.
type FeedError struct {
	baseError
	Since uint64
}

// NewFeedError creates a new FeedError. Feed errors are always retryable.
func NewFeedError(message string, cause error) *FeedError {
	return &FeedError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithSince records the cursor the failing query started from.
func (e *FeedError) WithSince(seq uint64) *FeedError {
	e.Since = seq
	return e
}

// Error returns the formatted error message.
func (e *FeedError) Error() string {
	prefix := fmt.Sprintf("feed error [since=%d]", e.Since)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *FeedError) Is(target error) bool {
	if _, ok := target.(*FeedError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("reputation must be between 0 and 100").
//		WithField("reputation").WithValue(140)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	prefix := formatPrefix("validation error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var bidErr BidagentError
	if As(err, &bidErr) {
		return bidErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var bidErr BidagentError
	if As(err, &bidErr) {
		return bidErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement BidagentError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var bidErr BidagentError
	if As(err, &bidErr) {
		return bidErr.Severity()
	}
	return SeverityError
}

// IsRegistryRejection returns true if the error is a registry rejection,
// i.e. the ledger confirmed the operation was refused.
func IsRegistryRejection(err error) bool {
	var regErr *RegistryError
	return As(err, &regErr)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
