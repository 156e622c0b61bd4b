package fetch

import (
	"context"
	"errors"
	"fmt"
)

// TransportError is returned when the request never produced an HTTP response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a non-2xx answer. Message and Detail come from the JSON
// body when the server provided them; FromServer is false when Message is the
// "HTTP Error <status>" fallback.
type ProtocolError struct {
	Status     int
	Message    string
	Detail     string
	FromServer bool
}

func (e *ProtocolError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Detail)
	}
	return e.Message
}

// Retryable reports whether repeating the same request could change the answer.
func (e *ProtocolError) Retryable() bool {
	switch {
	case e.Status == 408, e.Status == 429:
		return true
	case e.Status >= 400 && e.Status < 500:
		return false
	default:
		return true
	}
}

// MalformedResponseError is a body that could not be parsed as JSON.
type MalformedResponseError struct {
	Status int
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response (status %d): %v", e.Status, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// isRetryable retries transport failures, 5xx, 408 and 429. Other 4xx
// answers, including a 404 without a JSON body, end the call at once.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	return true
}
