// Package errors provides centralized error definitions and error handling utilities
// for the Stagehand codebase. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - QueueError: errors related to the admission queue
//   - TaskError: errors raised while executing queued work
//   - ScalingError: errors related to the capacity controller
//   - HistoryError: errors related to the decision history store
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewQueueError("submit rejected", errors.ErrQueueClosed)
//
//	// Semantic error
//	err := errors.NewNotFoundError("work item", "wi-000042")
//
//	// With context wrapping
//	err := errors.NewTaskError("handler crashed", baseErr).WithWorkItemID("wi-000042")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrQueueClosed) { ... }
//
//	// Check for error types
//	var queueErr *errors.QueueError
//	if errors.As(err, &queueErr) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
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

// Queue-related sentinel errors
var (
	// ErrQueueClosed indicates that the admission queue has been shut down
	// and no longer accepts submissions.
	ErrQueueClosed = New("admission queue is closed")
	// ErrQueueDraining indicates that the queue is waiting for in-flight work.
	ErrQueueDraining = New("admission queue is draining")
	// ErrNilTask indicates that a submission carried no executable task.
	ErrNilTask = New("task function is nil")
	// ErrWorkItemNotFound indicates that a work item could not be found.
	ErrWorkItemNotFound = New("work item not found")
)

// Task execution sentinel errors
var (
	// ErrTaskFailed indicates that a queued task returned an error.
	ErrTaskFailed = New("task failed")
	// ErrTaskPanicked indicates that a queued task panicked during execution.
	ErrTaskPanicked = New("task panicked")
)

// Scaling-related sentinel errors
var (
	// ErrMetricsUnavailable indicates that a metrics snapshot was missing or
	// incomplete when the controller evaluated it.
	ErrMetricsUnavailable = New("metrics unavailable")
	// ErrPolicyInvalid indicates that scaling policy options are inconsistent.
	ErrPolicyInvalid = New("scaling policy is invalid")
	// ErrCeilingOutOfRange indicates a concurrency ceiling outside the
	// configured instance bounds.
	ErrCeilingOutOfRange = New("concurrency ceiling out of range")
)

// History-related sentinel errors
var (
	// ErrHistoryDisabled indicates that the decision history store is not configured.
	ErrHistoryDisabled = New("history store is disabled")
	// ErrHistoryClosed indicates that the decision history store has been closed.
	ErrHistoryClosed = New("history store is closed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrOperationFailed indicates a general operation failure.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// StagehandError is the base interface for all Stagehand errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type StagehandError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
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

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

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

// QueueError represents errors related to the admission queue.
//
// Example:
//
//	err := errors.NewQueueError("submit rejected", errors.ErrQueueClosed)
//	err = err.WithWorkItemID("wi-000042")
//	fmt.Println(err) // "queue error [item=wi-000042]: submit rejected: admission queue is closed"
type QueueError struct {
	baseError
	WorkItemID string
	OwnerID    string
}

// NewQueueError creates a new QueueError.
func NewQueueError(message string, cause error) *QueueError {
	return &QueueError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithWorkItemID adds a work item ID to the error context.
func (e *QueueError) WithWorkItemID(id string) *QueueError {
	e.WorkItemID = id
	return e
}

// WithOwnerID adds an owner ID to the error context.
func (e *QueueError) WithOwnerID(id string) *QueueError {
	e.OwnerID = id
	return e
}

// WithSeverity sets the error severity.
func (e *QueueError) WithSeverity(s Severity) *QueueError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *QueueError) WithRetryable(r bool) *QueueError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *QueueError) Error() string {
	var parts []string
	if e.WorkItemID != "" {
		parts = append(parts, fmt.Sprintf("item=%s", e.WorkItemID))
	}
	if e.OwnerID != "" {
		parts = append(parts, fmt.Sprintf("owner=%s", e.OwnerID))
	}

	prefix := "queue error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("queue error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *QueueError) Is(target error) bool {
	if _, ok := target.(*QueueError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TaskError represents errors raised while executing queued work.
//
// Example:
//
//	err := errors.NewTaskError("handler returned error", cause)
//	err = err.WithWorkItemID("wi-000042").WithCategory("write-heavy")
type TaskError struct {
	baseError
	WorkItemID string
	Category   string
	Panicked   bool
}

// NewTaskError creates a new TaskError.
func NewTaskError(message string, cause error) *TaskError {
	return &TaskError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: false,
		},
	}
}

// WithWorkItemID adds a work item ID to the error context.
func (e *TaskError) WithWorkItemID(id string) *TaskError {
	e.WorkItemID = id
	return e
}

// WithCategory adds the work category to the error context.
func (e *TaskError) WithCategory(category string) *TaskError {
	e.Category = category
	return e
}

// WithPanicked marks the error as originating from a recovered panic.
// Panics are escalated to critical severity.
func (e *TaskError) WithPanicked(p bool) *TaskError {
	e.Panicked = p
	if p {
		e.severity = SeverityCritical
	}
	return e
}

// WithSeverity sets the error severity.
func (e *TaskError) WithSeverity(s Severity) *TaskError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *TaskError) WithRetryable(r bool) *TaskError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TaskError) Error() string {
	var parts []string
	if e.WorkItemID != "" {
		parts = append(parts, fmt.Sprintf("item=%s", e.WorkItemID))
	}
	if e.Category != "" {
		parts = append(parts, fmt.Sprintf("category=%s", e.Category))
	}
	if e.Panicked {
		parts = append(parts, "panicked=true")
	}

	prefix := "task error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("task error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *TaskError) Is(target error) bool {
	if _, ok := target.(*TaskError); ok {
		return true
	}
	if e.Panicked && errors.Is(target, ErrTaskPanicked) {
		return true
	}
	return e.baseError.Is(target)
}

// ScalingError represents errors related to the capacity controller.
//
// Example:
//
//	err := errors.NewScalingError("evaluation skipped", errors.ErrMetricsUnavailable)
//	err = err.WithInstances(4)
type ScalingError struct {
	baseError
	Action    string
	Instances int
}

// NewScalingError creates a new ScalingError.
func NewScalingError(message string, cause error) *ScalingError {
	return &ScalingError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: false,
		},
		Instances: -1, // -1 indicates not set
	}
}

// WithAction adds the attempted scaling action to the error context.
func (e *ScalingError) WithAction(action string) *ScalingError {
	e.Action = action
	return e
}

// WithInstances adds the instance count to the error context.
func (e *ScalingError) WithInstances(n int) *ScalingError {
	e.Instances = n
	return e
}

// WithSeverity sets the error severity.
func (e *ScalingError) WithSeverity(s Severity) *ScalingError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *ScalingError) WithRetryable(r bool) *ScalingError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *ScalingError) Error() string {
	var parts []string
	if e.Action != "" {
		parts = append(parts, fmt.Sprintf("action=%s", e.Action))
	}
	if e.Instances >= 0 {
		parts = append(parts, fmt.Sprintf("instances=%d", e.Instances))
	}

	prefix := "scaling error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("scaling error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ScalingError) Is(target error) bool {
	if _, ok := target.(*ScalingError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// HistoryError represents errors related to the decision history store.
//
// Example:
//
//	err := errors.NewHistoryError("insert failed", cause)
//	err = err.WithPath("/var/lib/stagehand/history.db").WithOperation("record_decision")
type HistoryError struct {
	baseError
	Path      string
	Operation string
}

// NewHistoryError creates a new HistoryError.
func NewHistoryError(message string, cause error) *HistoryError {
	return &HistoryError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: false,
		},
	}
}

// WithPath adds the database path to the error context.
func (e *HistoryError) WithPath(path string) *HistoryError {
	e.Path = path
	return e
}

// WithOperation adds the store operation name to the error context.
func (e *HistoryError) WithOperation(op string) *HistoryError {
	e.Operation = op
	return e
}

// WithSeverity sets the error severity.
func (e *HistoryError) WithSeverity(s Severity) *HistoryError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *HistoryError) WithRetryable(r bool) *HistoryError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *HistoryError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Operation))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}

	prefix := "history error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("history error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *HistoryError) Is(target error) bool {
	if _, ok := target.(*HistoryError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("work item", "wi-000042")
//	fmt.Println(err) // "work item 'wi-000042' not found"
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
			retryable:  false,
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

// AlreadyExistsError represents a resource that already exists.
//
// Example:
//
//	err := errors.NewAlreadyExistsError("work item", "wi-000042")
//	fmt.Println(err) // "work item 'wi-000042' already exists"
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' already exists: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' already exists", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("priority level is not recognized")
//	err = err.WithField("priority").WithValue("urgent")
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
			retryable:  false,
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

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
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

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

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
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for queue drain", 30*time.Second)
//	fmt.Println(err) // "timeout error: waiting for queue drain (timeout: 30s)"
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
			retryable:  true, // Timeouts are generally retryable
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

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
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
// that may succeed on retry. This checks for:
//   - Errors implementing StagehandError with IsRetryable() returning true
//   - TimeoutError instances
//   - Errors wrapping ErrTimeout
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements StagehandError
	var shErr StagehandError
	if As(err, &shErr) {
		return shErr.IsRetryable()
	}

	// Check for known retryable sentinel errors
	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
// This checks for:
//   - Errors implementing StagehandError with IsUserFacing() returning true
//   - Semantic errors (NotFoundError, AlreadyExistsError, ValidationError, TimeoutError)
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements StagehandError
	var shErr StagehandError
	if As(err, &shErr) {
		return shErr.IsUserFacing()
	}

	// Semantic errors are always user-facing
	var notFound *NotFoundError
	var alreadyExists *AlreadyExistsError
	var validation *ValidationError
	var timeout *TimeoutError

	if As(err, &notFound) || As(err, &alreadyExists) ||
		As(err, &validation) || As(err, &timeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement StagehandError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityCritical:
//	    alertOnCall(err)
//	case errors.SeverityError:
//	    log.Error("error occurred", "err", err)
//	case errors.SeverityWarning:
//	    log.Warn("warning", "err", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	// Check if error implements StagehandError
	var shErr StagehandError
	if As(err, &shErr) {
		return shErr.Severity()
	}

	// Default to Error severity for unknown errors
	return SeverityError
}

// IsDomainError returns true if the error is a domain-specific error
// (QueueError, TaskError, ScalingError, or HistoryError).
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var queueErr *QueueError
	var taskErr *TaskError
	var scalingErr *ScalingError
	var historyErr *HistoryError

	return As(err, &queueErr) || As(err, &taskErr) ||
		As(err, &scalingErr) || As(err, &historyErr)
}

// IsSemanticError returns true if the error is a semantic error
// (NotFoundError, AlreadyExistsError, ValidationError, or TimeoutError).
func IsSemanticError(err error) bool {
	if err == nil {
		return false
	}

	var notFound *NotFoundError
	var alreadyExists *AlreadyExistsError
	var validation *ValidationError
	var timeout *TimeoutError

	return As(err, &notFound) || As(err, &alreadyExists) ||
		As(err, &validation) || As(err, &timeout)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this preserves the StagehandError interface.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to record decision")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to resolve work item %s", itemID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
