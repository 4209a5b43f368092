package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/metrics"
	"github.com/tourdesk/tourdesk/internal/tokenstore"
)

// Authed attaches the stored bearer credential to every request. When the
// slot is empty the request goes out without one; rejecting it is the
// backend's job. A 401 or 403 clears the token store before the error is
// handed back; that is the only automatic recovery behavior in the client.
type Authed struct {
	rest
	store tokenstore.Store
}

func NewAuthed(baseURL string, timeout time.Duration, store tokenstore.Store, logger *slog.Logger) *Authed {
	return &Authed{rest: newRest(baseURL, timeout, logger), store: store}
}

func (a *Authed) Do(ctx context.Context, method, path string, query url.Values, in, out any, header http.Header) error {
	token, err := a.store.Get()
	if err != nil {
		return fmt.Errorf("read token store: %w", err)
	}

	err = a.do(ctx, method, path, query, in, out, header, token)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && errors.Is(apiErr, ErrUnauthorized) {
		if clearErr := a.store.Clear(); clearErr != nil {
			a.logger.Error("clearing token after auth failure", "endpoint", path, "error", clearErr)
		}
		metrics.AuthFailuresTotal.WithLabelValues(path).Inc()
		a.logger.Warn("backend rejected credentials; token cleared", "endpoint", path, "status", apiErr.StatusCode)
	}
	return err
}

func (a *Authed) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return a.Do(ctx, http.MethodGet, path, query, nil, out, nil)
}

func (a *Authed) PostJSON(ctx context.Context, path string, header http.Header, in, out any) error {
	return a.Do(ctx, http.MethodPost, path, nil, in, out, header)
}

func (a *Authed) PatchJSON(ctx context.Context, path string, in, out any) error {
	return a.Do(ctx, http.MethodPatch, path, nil, in, out, nil)
}

// UsersByEmail fetches backend user records filtered by email. Callers select
// the record whose email exactly matches; the backend filter may be loose.
func (a *Authed) UsersByEmail(ctx context.Context, email string) ([]UserRecord, error) {
	query := url.Values{"email": {auth.NormalizeEmail(email)}}
	var out []UserRecord
	if err := a.GetJSON(ctx, "/users", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}
