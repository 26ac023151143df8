package mergestat

import (
	"errors"
	"fmt"

	"github.com/saeedalam/mergestat-mcp/pkg/types"
)

// Kind classifies why a query did not produce a result
type Kind string

const (
	KindInvalidInput      Kind = "InvalidInput"
	KindLaunchFailure     Kind = "LaunchFailure"
	KindNonZeroExit       Kind = "NonZeroExit"
	KindOutputTooLarge    Kind = "OutputTooLarge"
	KindJSONParseFailure  Kind = "JSONParseFailure"
	KindFileSystemFailure Kind = "FileSystemFailure"
)

// Error is returned by the executor for every failed query.
// Stderr and RawOutput hold whatever the subprocess printed, so the caller
// can show it instead of losing it.
type Error struct {
	Kind      Kind
	Message   string
	Stderr    string
	RawOutput string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Text renders the error the way it is shown to the calling agent
func (e *Error) Text() string {
	switch e.Kind {
	case KindJSONParseFailure:
		return fmt.Sprintf("Failed to parse JSON output. Raw output: %s\nError: %s", e.RawOutput, e.Message)
	case KindFileSystemFailure:
		return fmt.Sprintf("Failed to write query results: %s", e.Message)
	case KindInvalidInput:
		return fmt.Sprintf("Invalid request: %s", e.Message)
	default:
		return fmt.Sprintf("Error executing mergestat: %s\nOutput: %s", e.Message, e.Stderr)
	}
}

// KindOf returns the error's kind, types.OutcomeOK for nil, and "Unknown" for
// errors that did not come from this package.
func KindOf(err error) string {
	if err == nil {
		return types.OutcomeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "Unknown"
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
