package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAPI = errors.New("backend api error")

	// ErrUnauthorized covers both 401 and 403; the authed façade treats them
	// identically (clear token, propagate).
	ErrUnauthorized = errors.New("backend rejected credentials")
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	body := strings.TrimSpace(e.Body)
	if body != "" {
		return fmt.Sprintf("backend api error: %s %d: %s", e.Endpoint, e.StatusCode, body)
	}
	return fmt.Sprintf("backend api error: %s %d", e.Endpoint, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrAPI
	}
}
