package idp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tourdesk/tourdesk/internal/auth"
)

// ProviderError is a non-2xx identity provider response. It unwraps to the
// matching taxonomy sentinel so callers branch with errors.Is.
type ProviderError struct {
	StatusCode int
	Endpoint   string
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	if code != "" {
		return fmt.Sprintf("identity provider error: %s: %s", e.Endpoint, code)
	}
	return fmt.Sprintf("identity provider error: %s: status %d", e.Endpoint, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch e.Code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return auth.ErrInvalidCredentials
	case "EMAIL_EXISTS", "WEAK_PASSWORD", "INVALID_EMAIL":
		return auth.ErrCredentialPolicy
	case "INVALID_ID_TOKEN", "TOKEN_EXPIRED", "CREDENTIAL_TOO_OLD":
		return auth.ErrNotAuthenticated
	}
	return auth.ErrProviderUnavailable
}

func providerErrorFromResponse(endpoint string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var body struct {
		Error struct {
			Code    json.Number `json:"code"`
			Message string      `json:"message"`
		} `json:"error"`
	}
	perr := &ProviderError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	if err := json.Unmarshal(raw, &body); err == nil {
		message := strings.TrimSpace(body.Error.Message)
		// Provider codes may carry a detail suffix, e.g. "WEAK_PASSWORD :
		// Password should be at least 6 characters".
		code, rest, found := strings.Cut(message, ":")
		perr.Code = strings.TrimSpace(code)
		if found {
			perr.Message = strings.TrimSpace(rest)
		}
	}
	return perr
}
