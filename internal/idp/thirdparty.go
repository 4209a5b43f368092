package idp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/tourdesk/tourdesk/internal/auth"
)

const callbackShutdownGrace = 3 * time.Second

type callbackResult struct {
	code  string
	state string
}

// SignInWithThirdParty runs the provider-hosted interactive flow: it opens a
// localhost listener for the redirect, hands the authorization URL to the
// caller, and exchanges the returned code for an identity. Cancelling ctx
// (the user dismissed the flow) yields ErrUserCancelled.
func (a *Adapter) SignInWithThirdParty(ctx context.Context, provider string) (auth.Identity, error) {
	if a.redirectPort <= 0 {
		return auth.Identity{}, errors.New("third-party sign-in requires a configured redirect port")
	}

	state := uuid.NewString()
	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", a.redirectPort)
	authorizeURL := a.baseURL + "/v1/authorize?" + url.Values{
		"provider":     {provider},
		"state":        {state},
		"redirect_uri": {redirectURI},
	}.Encode()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	resultCh := make(chan callbackResult, 1)
	e.GET("/callback", func(c echo.Context) error {
		select {
		case resultCh <- callbackResult{code: c.QueryParam("code"), state: c.QueryParam("state")}:
		default:
		}
		return c.HTML(http.StatusOK, "<p>Signed in. You can close this window.</p>")
	})

	if a.launchURL != nil {
		if err := a.launchURL(authorizeURL); err != nil {
			return auth.Identity{}, fmt.Errorf("open provider sign-in: %w", err)
		}
	} else {
		a.logger.Info("open the provider sign-in page", "url", authorizeURL)
	}

	var result callbackResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := e.Start(fmt.Sprintf("127.0.0.1:%d", a.redirectPort))
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), callbackShutdownGrace)
			defer cancel()
			_ = e.Shutdown(shutdownCtx)
		}()

		select {
		case <-gctx.Done():
			return fmt.Errorf("%w: sign-in flow dismissed", auth.ErrUserCancelled)
		case result = <-resultCh:
			return nil
		}
	})
	if err := g.Wait(); err != nil {
		return auth.Identity{}, err
	}

	if result.state != state || result.code == "" {
		return auth.Identity{}, fmt.Errorf("%w: callback state mismatch", auth.ErrUserCancelled)
	}

	in := map[string]string{
		"provider":    provider,
		"code":        result.code,
		"redirectUri": redirectURI,
	}
	var out sessionResponse
	if err := a.post(ctx, "accounts:signInWithIdp", in, &out); err != nil {
		return auth.Identity{}, err
	}
	return a.installSession(out), nil
}
