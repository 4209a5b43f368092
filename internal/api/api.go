// Package api holds the two request façades for the tour-booking backend:
// a public client for operations that work pre-authentication and an
// authenticated client that attaches the stored bearer credential.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tourdesk/tourdesk/internal/metrics"
)

const maxErrorBody = 4 << 10

type rest struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func newRest(baseURL string, timeout time.Duration, logger *slog.Logger) rest {
	if logger == nil {
		logger = slog.Default()
	}
	return rest{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// do issues one request and decodes a JSON response into out (when out is
// non-nil). The bearer token is attached when non-empty. Non-2xx responses
// come back as *APIError; transport failures are returned unmodified.
func (r rest) do(ctx context.Context, method, path string, query url.Values, in, out any, header http.Header, token string) error {
	reqURL := r.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("create request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		metrics.APIRequestDuration.WithLabelValues(path, "transport_error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.APIRequestDuration.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Endpoint: path, Body: string(raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// UserRecord is a backend user row as returned by GET /users.
type UserRecord struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
}
