package evidently

import (
	"errors"
	"fmt"
	"net/http"
)

// RequestError is returned for every failed client operation. Connectivity
// failures carry the wrapped transport error and a zero status code; server
// rejections carry the HTTP status and the response body verbatim. The
// service does not document a structured error taxonomy, so no further
// parsing of the body is attempted.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
	err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.err)
	}
	return fmt.Sprintf("%s: server returned status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.err
}

// IsNotFound reports whether err is a RequestError with a 404 status.
func IsNotFound(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound
}

func transportError(op string, err error) *RequestError {
	return &RequestError{Op: op, err: err}
}

func statusError(op string, status int, body string) *RequestError {
	return &RequestError{Op: op, StatusCode: status, Message: body}
}
