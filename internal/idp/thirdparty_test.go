package idp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/tourdesk/tourdesk/internal/auth"
)

func TestSignInWithThirdParty_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts:signInWithIdp" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeSessionResponse(w, "u1", "a@x.com")
	}))
	t.Cleanup(srv.Close)

	launched := make(chan string, 1)
	a, err := New(Options{
		BaseURL:      srv.URL,
		RedirectPort: 18741,
		LaunchURL: func(u string) error {
			launched <- u
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Play the user: follow the redirect back to the local listener once the
	// authorization URL is handed out.
	go func() {
		authorize := <-launched
		parsed, err := url.Parse(authorize)
		if err != nil {
			t.Errorf("parse authorize URL: %v", err)
			return
		}
		state := parsed.Query().Get("state")
		redirect := parsed.Query().Get("redirect_uri")
		callback := redirect + "?" + url.Values{"code": {"c1"}, "state": {state}}.Encode()

		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			resp, err := http.Get(callback)
			if err == nil {
				resp.Body.Close()
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Errorf("callback listener never came up")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	identity, err := a.SignInWithThirdParty(ctx, "google")
	if err != nil {
		t.Fatalf("SignInWithThirdParty() error = %v", err)
	}
	if identity.Email != "a@x.com" {
		t.Fatalf("identity = %+v", identity)
	}
}

func TestSignInWithThirdParty_Cancelled(t *testing.T) {
	a, err := New(Options{
		BaseURL:      "http://127.0.0.1:1",
		RedirectPort: 18742,
		LaunchURL:    func(string) error { return nil },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = a.SignInWithThirdParty(ctx, "google")
	if !errors.Is(err, auth.ErrUserCancelled) {
		t.Fatalf("error = %v, want ErrUserCancelled", err)
	}
}
