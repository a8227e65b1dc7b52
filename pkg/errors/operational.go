package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an operational failure
type Kind string

// Recognized failure kinds
const (
	LoadFailure Kind = "load_failure"
	SaveFailure Kind = "save_failure"
)

// fallbackMessages are shown when no translation is available
var fallbackMessages = map[Kind]string{
	LoadFailure: "Failed to load flow",
	SaveFailure: "Failed to save flow",
}

// OperationalError represents enhanced error information for debugging.
//
// It wraps errors with operational context including the flow ID, an
// optional node ID and a timestamp. The editor keeps the most recent one as
// its visible error.
type OperationalError struct {
	Kind       Kind                   // Failure classification
	Operation  string                 // What operation was being performed
	FlowID     string                 // Which flow
	NodeID     string                 // Which node (if applicable)
	Timestamp  time.Time              // When error occurred
	Attributes map[string]interface{} // Additional context (optional)
	Cause      error                  // Underlying error
}

// NewOperationalError creates an OperationalError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
//
// Example:
//
//	if err := backend.SaveFlow(ctx, rec); err != nil {
//	    return NewOperationalError(SaveFailure, "saving flow", rec.ID, "", err)
//	}
func NewOperationalError(kind Kind, operation, flowID, nodeID string, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Kind:      kind,
		Operation: operation,
		FlowID:    flowID,
		NodeID:    nodeID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// WithAttrs attaches additional attributes and returns e.
func (e *OperationalError) WithAttrs(attrs map[string]interface{}) *OperationalError {
	if e == nil {
		return nil
	}
	if e.Attributes == nil {
		e.Attributes = make(map[string]interface{}, len(attrs))
	}
	for k, v := range attrs {
		e.Attributes[k] = v
	}
	return e
}

// Error implements the error interface.
//
// Format: "[timestamp] operation: flow={id} node={id}: {cause}"
// If node ID is empty, it's omitted from the message.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	timestamp := e.Timestamp.Format(time.RFC3339)

	if e.NodeID != "" {
		return fmt.Sprintf("[%s] %s: flow=%s node=%s: %v",
			timestamp,
			e.Operation,
			e.FlowID,
			e.NodeID,
			e.Cause)
	}
	return fmt.Sprintf("[%s] %s: flow=%s: %v",
		timestamp,
		e.Operation,
		e.FlowID,
		e.Cause)
}

// Message returns the short user-facing message for the failure kind
func (e *OperationalError) Message() string {
	if e == nil {
		return ""
	}
	if msg, ok := fallbackMessages[e.Kind]; ok {
		return msg
	}
	return e.Operation + " failed"
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err carries an OperationalError of the given kind
func IsKind(err error, kind Kind) bool {
	var opErr *OperationalError
	if errors.As(err, &opErr) {
		return opErr.Kind == kind
	}
	return false
}
