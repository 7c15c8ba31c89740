// Package webdav provides a WebDAV client used by the CardDAV
// synchronization client.
//
// WebDAV is defined in RFC 4918.
package webdav

import (
	"errors"
	"net/http"

	"github.com/davsync/go-webdav/internal"
)

// HTTPClient performs HTTP requests. It's implemented by *http.Client.
type HTTPClient = internal.HTTPClient

// HTTPError is returned when the server answers with a non-2xx status.
type HTTPError = internal.HTTPError

// MalformedError is returned when a response body isn't a well-formed
// multistatus document.
type MalformedError = internal.MalformedError

// Outcome classifies the result of a request.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeMethodNotAllowed
	OutcomePreconditionFailed
	OutcomeMalformed
	// OutcomeError covers every other failure, including transport errors
	// and cancellation.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeMethodNotAllowed:
		return "method-not-allowed"
	case OutcomePreconditionFailed:
		return "precondition-failed"
	case OutcomeMalformed:
		return "malformed"
	}
	return "error"
}

// OutcomeOf classifies err.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if internal.IsMalformed(err) {
		return OutcomeMalformed
	}
	switch internal.StatusCode(err) {
	case http.StatusNotFound:
		return OutcomeNotFound
	case http.StatusMethodNotAllowed:
		return OutcomeMethodNotAllowed
	case http.StatusPreconditionFailed:
		return OutcomePreconditionFailed
	}
	return OutcomeError
}

// Status returns the HTTP status code carried by err, or zero if err doesn't
// wrap an *HTTPError.
func Status(err error) int {
	return internal.StatusCode(err)
}

func IsNotFound(err error) bool {
	return OutcomeOf(err) == OutcomeNotFound
}

func IsPreconditionFailed(err error) bool {
	return OutcomeOf(err) == OutcomePreconditionFailed
}

func IsMethodNotAllowed(err error) bool {
	return OutcomeOf(err) == OutcomeMethodNotAllowed
}

func IsMalformed(err error) bool {
	var malformedErr *MalformedError
	return errors.As(err, &malformedErr)
}
