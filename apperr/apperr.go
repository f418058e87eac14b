// Package apperr classifies errors raised anywhere in the pipeline into
// the taxonomy the ETL Orchestrator and Job Store need to decide
// retry/rollback/partial-commit policy (spec §7).
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is one of the error classes from §7's taxonomy.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindNetwork    Kind = "NETWORK_ERROR"
	KindDatabase   Kind = "DATABASE_ERROR"
	KindExternal   Kind = "EXTERNAL_API_ERROR"
	KindTimeout    Kind = "TIMEOUT_ERROR"
	KindUnknown    Kind = "UNKNOWN"
)

// Severity is the notification/rollback weight attached to a Kind.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Error wraps a cause with its classification. It is the error shape
// every external boundary (queries, embeddings, LLM, storage) returns,
// per the teacher's own PanicError/Result[T] wrapping idiom.
type Error struct {
	Kind      Kind
	Severity  Severity
	Retryable bool
	Stage     string
	cause     error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: unknown error", e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// New classifies err by matching message substrings against the §7
// rules and wraps it. A nil err returns a nil *Error.
func New(err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	kind, severity, retryable := classify(err.Error())
	return &Error{
		Kind:      kind,
		Severity:  severity,
		Retryable: retryable,
		cause:     err,
	}
}

// WithStage records which orchestrator stage produced the error.
func (e *Error) WithStage(stage string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Stage = stage
	return &cp
}

func classify(msg string) (Kind, Severity, bool) {
	m := strings.ToLower(msg)

	switch {
	case containsAny(m, "column", "schema", "invalid type", "validation"):
		return KindValidation, SeverityInfo, false
	case containsAny(m, "deadlock", "connection pool", "database", "sql", "pgx", "relation"):
		return KindDatabase, SeverityCritical, true
	case containsAny(m, "rate limit", "quota", "429", "503", "service unavailable"):
		return KindExternal, SeverityWarning, true
	case containsAny(m, "timed out", "timeout", "deadline exceeded"):
		return KindTimeout, SeverityWarning, true
	case containsAny(m, "connection refused", "dns", "socket", "network", "econnreset"):
		return KindNetwork, SeverityWarning, true
	default:
		return KindUnknown, SeverityWarning, false
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
