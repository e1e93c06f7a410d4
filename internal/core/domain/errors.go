package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrQueryTooShort indicates the parsed search text is under the minimum length
	ErrQueryTooShort = errors.New("search query too short")

	// ErrMissingToken indicates the retrieval bearer token is not configured
	ErrMissingToken = errors.New("missing retrieval token")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAccessDenied indicates the caller has no identifiable scope
	ErrAccessDenied = errors.New("access denied")

	// ErrPermissionCheck indicates scope resolution failed unexpectedly
	ErrPermissionCheck = errors.New("permission check failed")

	// ErrSearchFailed indicates the retrieval service call failed
	ErrSearchFailed = errors.New("search failed")

	// ErrTokenExpired indicates the identity token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the identity token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrRateLimited indicates the caller exceeded the request budget
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates a downstream service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// SearchError describes a failed call to the retrieval search endpoint.
// It always unwraps to ErrSearchFailed.
type SearchError struct {
	// StatusCode is the HTTP status returned, 0 for transport failures
	StatusCode int
	// Detail is a short human readable description
	Detail string
	// Err is the underlying transport error, if any
	Err error
}

func (e *SearchError) Error() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return "Authentication failed. Check your bearer token."
	case e.StatusCode == http.StatusForbidden:
		return "Access forbidden. Check your permissions."
	case e.StatusCode == http.StatusNotFound:
		return "R2R endpoint not found. Check the API URL."
	case e.StatusCode >= 400:
		if e.Detail != "" {
			return fmt.Sprintf("R2R API returned %d: %s", e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("R2R API returned %d", e.StatusCode)
	case e.Detail != "":
		return "R2R search failed: " + e.Detail
	case e.Err != nil:
		return "R2R search failed: " + e.Err.Error()
	default:
		return "R2R search failed"
	}
}

// Unwrap allows errors.Is(err, ErrSearchFailed) and access to the cause
func (e *SearchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSearchFailed, e.Err}
	}
	return []error{ErrSearchFailed}
}
