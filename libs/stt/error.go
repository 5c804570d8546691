package stt

import "fmt"

// Error is a structured response indicating a non-2xx HTTP response.
type Error struct {
	Status    int    `json:"status"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("stt: status=%d %s: %s", e.Status, e.Reference, e.Message)
}

// Retryable reports whether the request may succeed if repeated. Rate limits
// and server-side failures are retryable, everything else is not.
func (e *Error) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// IsRetryable reports whether err is a transient service error. Transport
// errors (no structured response at all) are treated as retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable()
	}
	return err != nil
}
