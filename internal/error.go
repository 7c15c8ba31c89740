package internal

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	Code int
	Err  error
}

func HTTPErrorFromError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{http.StatusInternalServerError, err}
}

func HTTPErrorf(code int, format string, a ...interface{}) *HTTPError {
	return &HTTPError{code, fmt.Errorf(format, a...)}
}

func (err *HTTPError) Error() string {
	s := fmt.Sprintf("%v %v", err.Code, http.StatusText(err.Code))
	if err.Err != nil {
		return fmt.Sprintf("%v: %v", s, err.Err)
	} else {
		return s
	}
}

func (err *HTTPError) Unwrap() error {
	return err.Err
}

// MalformedError is returned when a response body isn't a well-formed
// multistatus document.
type MalformedError struct {
	Err error
}

func (err *MalformedError) Error() string {
	return fmt.Sprintf("webdav: malformed response: %v", err.Err)
}

func (err *MalformedError) Unwrap() error {
	return err.Err
}

// StatusCode returns the HTTP status code carried by err, or zero.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsMalformed(err error) bool {
	var malformedErr *MalformedError
	return errors.As(err, &malformedErr)
}
