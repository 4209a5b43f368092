package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/metrics"
)

// Public issues requests with no credential attached. It serves the
// operations that must work pre-authentication, token minting first of all.
type Public struct {
	rest
}

func NewPublic(baseURL string, timeout time.Duration, logger *slog.Logger) *Public {
	return &Public{rest: newRest(baseURL, timeout, logger)}
}

// MintToken exchanges a verified email claim for an opaque backend session
// token via POST /jwt.
func (p *Public) MintToken(ctx context.Context, email string) (string, error) {
	in := struct {
		Email string `json:"email"`
	}{Email: auth.NormalizeEmail(email)}

	var out struct {
		Token string `json:"token"`
	}
	if err := p.do(ctx, http.MethodPost, "/jwt", nil, in, &out, nil, ""); err != nil {
		metrics.TokenMintsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		metrics.TokenMintsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("mint token: empty token in response")
	}
	metrics.TokenMintsTotal.WithLabelValues("ok").Inc()
	return out.Token, nil
}
