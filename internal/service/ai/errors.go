package ai

import "fmt"

// GenerationError reports any failure of the remote generation call: transport
// errors, non-2xx responses and payloads without usable text alike.
type GenerationError struct {
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("generation %s failed: %s", e.Operation, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
