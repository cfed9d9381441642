// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// Errors returned by the aggregator and the source clients.
var (
	// ErrInvalidRequest indicates a search request failed validation.
	ErrInvalidRequest = errors.New("invalid search request")

	// ErrNotFound indicates a source has no record for an identifier.
	ErrNotFound = errors.New("paper not found")

	// ErrAuth indicates a missing or rejected API key.
	ErrAuth = errors.New("source authentication error")

	// ErrRateLimited indicates a source rejected the call with HTTP 429.
	ErrRateLimited = errors.New("source rate limit exceeded")

	// ErrInvalidResponse indicates a payload that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from source")
)

// APIError is a non-success HTTP response from a source.
type APIError struct {
	Source     types.SourceTag
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API returned HTTP %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s API returned HTTP %d: %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the matching sentinel so callers can use
// errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// IsNotFound reports whether err means the paper does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// newAPIError builds an APIError from resp, keeping a short body excerpt.
func newAPIError(src types.SourceTag, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{
		Source:     src,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
