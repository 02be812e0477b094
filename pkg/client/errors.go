package client

import "fmt"

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("helpdesk api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("helpdesk api: %s (%d): %s", e.Code, e.Status, e.Message)
}

// TransportError wraps failures that happen before a response is read.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("helpdesk api: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
