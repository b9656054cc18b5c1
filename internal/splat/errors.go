package splat

import (
	"fmt"
	"strings"
)

// FormatError reports a malformed or unsupported input or container.
type FormatError struct {
	Reason string
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

// Formatf builds a FormatError with a formatted detail string.
func Formatf(reason, format string, args ...any) *FormatError {
	return &FormatError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ValidationError reports an attribute whose length or value does not fit
// the cloud it belongs to.
type ValidationError struct {
	Field string
	Got   int
	Want  int
	// Reason overrides the default length mismatch message when set.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: length %d, want %d", e.Field, e.Got, e.Want)
}

// CompressionError reports a failure of the gzip envelope.
type CompressionError struct {
	Op  string
	Err error
}

func (e *CompressionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(" failed")
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}
