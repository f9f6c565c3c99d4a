package inference

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why a predict call failed.
type Kind string

const (
	KindConnection Kind = "connection"
	KindStatus     Kind = "status"
	KindParse      Kind = "parse"
)

// Error is returned by Client implementations. Message is safe to show to
// the user; Err carries the underlying cause for logs.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func connectionError(err error) *Error {
	return &Error{Kind: KindConnection, Message: fmt.Sprintf("Failed to reach server: %v", err), Err: err}
}

func statusError(code int, serverErr, serverDetail string) *Error {
	msg := fmt.Sprintf("Server returned HTTP %d", code)
	if serverErr != "" {
		if serverDetail == "" {
			serverDetail = "N/A"
		}
		msg = fmt.Sprintf("%s\nDetail: %s", serverErr, serverDetail)
	}
	return &Error{Kind: KindStatus, StatusCode: code, Message: msg}
}

func parseError(code int, err error) *Error {
	return &Error{Kind: KindParse, StatusCode: code, Message: "Unexpected response from server (not JSON object).", Err: err}
}

// ErrResponseTooLarge is wrapped by parse errors for bodies over the size limit.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

func oversizeError(code int) *Error {
	return &Error{
		Kind:       KindParse,
		StatusCode: code,
		Message:    fmt.Sprintf("Response from server is too large (over %d MiB).", maxResponseBytes>>20),
		Err:        ErrResponseTooLarge,
	}
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
