package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Problem types sent by the daemon.
const (
	ProblemUnknownResource = "/problems/unknown-resource"
	ProblemPreloadSkipped  = "/problems/preload-skipped"
	ProblemNotLoading      = "/problems/not-loading"
	ProblemInvalidConfig   = "/problems/invalid-config"
	ProblemSchedulerClosed = "/problems/scheduler-closed"
)

// APIError represents an error response from the API. Problem responses
// (RFC 7807) fill Type, Title and Detail; plain-text errors only Detail.
type APIError struct {
	StatusCode int    `json:"status"`
	Type       string `json:"type,omitempty"`
	Title      string `json:"title,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Resource   string `json:"resource,omitempty"`
}

// HasType reports whether the error carries the given problem type.
func (e *APIError) HasType(problemType string) bool {
	return e.Type == problemType
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Title != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	case e.Detail != "":
		return e.Detail
	case e.Title != "":
		return e.Title
	default:
		return http.StatusText(e.StatusCode)
	}
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsConflict returns true if this is a conflict error. The daemon answers
// 409 when a preload is skipped or there is no fetch to cancel.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

// IsValidationError returns true if this is a validation error.
func (e *APIError) IsValidationError() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
}

func parseError(status int, body []byte) error {
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && (apiErr.Title != "" || apiErr.Detail != "") {
		apiErr.StatusCode = status
		return &apiErr
	}
	return &APIError{
		StatusCode: status,
		Detail:     strings.TrimSpace(string(body)),
	}
}
