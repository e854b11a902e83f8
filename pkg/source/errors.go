package source

import (
	"fmt"
	"net/http"

	"github.com/localix/preloadd/pkg/fetch"
)

// TransportError is a failure to reach the backend or a non-success reply.
type TransportError struct {
	Op         string // e.g. "GET /api/productos/productos/", "query", "GetObject"
	StatusCode int    // HTTP status when known
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Kind implements fetch.KindedError.
func (e *TransportError) Kind() fetch.ErrorKind { return fetch.KindTransport }

// Code implements fetch.CodedError.
func (e *TransportError) Code() int { return e.StatusCode }

// ValidationError is a reply whose shape cannot be normalized.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response: %s: %v", e.Reason, e.Err)
	}
	return "invalid response: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Kind implements fetch.KindedError.
func (e *ValidationError) Kind() fetch.ErrorKind { return fetch.KindValidation }
