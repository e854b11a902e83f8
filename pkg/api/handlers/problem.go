// Package handlers provides HTTP handlers for the preloadd API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/localix/preloadd/pkg/preload"
)

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// Problem types. Clients match on these rather than on status codes, since
// 409 covers both a skipped batch and a cancel with nothing loading.
const (
	ProblemUnknownResource = "/problems/unknown-resource"
	ProblemPreloadSkipped  = "/problems/preload-skipped"
	ProblemNotLoading      = "/problems/not-loading"
	ProblemInvalidConfig   = "/problems/invalid-config"
	ProblemSchedulerClosed = "/problems/scheduler-closed"
	ProblemUnauthorized    = "/problems/unauthorized"
	ProblemForbidden       = "/problems/forbidden"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	// Type identifies the problem. "about:blank" when only the status matters.
	Type string `json:"type"`

	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	// Resource is an extension member naming the resource involved, if any.
	Resource string `json:"resource,omitempty"`
}

// Write sends p with the problem+json content type. Title defaults to the
// status text and Type to "about:blank".
func (p Problem) Write(w http.ResponseWriter) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}

	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteProblem writes an untyped problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	Problem{Title: title, Status: status, Detail: detail}.Write(w)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// ResourceNotFound writes a 404 for a key that was never registered.
func ResourceNotFound(w http.ResponseWriter, key string) {
	Problem{
		Type:     ProblemUnknownResource,
		Status:   http.StatusNotFound,
		Detail:   "Resource not found: " + key,
		Resource: key,
	}.Write(w)
}

// NotLoading writes a 409 for a cancel request with no fetch in flight.
func NotLoading(w http.ResponseWriter, key string) {
	Problem{
		Type:     ProblemNotLoading,
		Status:   http.StatusConflict,
		Detail:   "Resource is not loading: " + key,
		Resource: key,
	}.Write(w)
}

// InvalidConfig writes a 422 for a configuration patch that fails validation.
func InvalidConfig(w http.ResponseWriter, detail string) {
	Problem{Type: ProblemInvalidConfig, Status: http.StatusUnprocessableEntity, Detail: detail}.Write(w)
}

// Unauthorized writes a 401 problem response.
func Unauthorized(w http.ResponseWriter, detail string) {
	Problem{Type: ProblemUnauthorized, Status: http.StatusUnauthorized, Detail: detail}.Write(w)
}

// Forbidden writes a 403 problem response.
func Forbidden(w http.ResponseWriter, detail string) {
	Problem{Type: ProblemForbidden, Status: http.StatusForbidden, Detail: detail}.Write(w)
}

// writeSchedulerError maps scheduler errors to typed problem responses.
func writeSchedulerError(w http.ResponseWriter, err error) {
	p := Problem{Detail: err.Error()}
	switch {
	case errors.Is(err, preload.ErrUnknownResource):
		p.Type, p.Status = ProblemUnknownResource, http.StatusNotFound
	case errors.Is(err, preload.ErrPreloadSkipped):
		p.Type, p.Status = ProblemPreloadSkipped, http.StatusConflict
	case errors.Is(err, preload.ErrInvalidConfig):
		p.Type, p.Status = ProblemInvalidConfig, http.StatusUnprocessableEntity
	case errors.Is(err, preload.ErrSchedulerClosed):
		p.Type, p.Status = ProblemSchedulerClosed, http.StatusServiceUnavailable
	default:
		p.Status = http.StatusInternalServerError
	}
	p.Write(w)
}
