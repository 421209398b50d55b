package llm

import "fmt"

// InvalidInputError is a precondition violation, always a caller bug.
// Never retried.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// ParseError means the model returned something that could not be turned
// into a valid analysis object. The pipeline decides retry vs skip; this
// client never silently substitutes a default analysis.
type ParseError struct {
	RawText string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse llm response: %v", e.Cause)
	}
	return "parse llm response: no JSON object found"
}

func (e *ParseError) Unwrap() error { return e.Cause }

// UpstreamError is a non-2xx response from the completion service,
// carrying status and body for diagnostics. Rate limiting shows up here.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm upstream returned %d: %s", e.StatusCode, truncate(e.Body, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
