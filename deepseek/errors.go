package deepseek

import "fmt"

// HTTPError represents a non-success HTTP response from the upstream
// API.
type HTTPError struct {
	StatusCode int    // HTTP status code (e.g., 429, 503, 500)
	Status     string // Full status text (e.g., "429 Too Many Requests")
	Message    string // Best-effort decoded message from the error body
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Status
}

// ParseError represents a data line from the upstream stream that could
// not be decoded. It is fatal to the stream.
type ParseError struct {
	Raw string // The offending data payload
	Err error  // The decode failure
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse stream payload: %v (content: %s)", e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
