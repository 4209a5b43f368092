package idp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/tourdesk/tourdesk/internal/auth"
)

func newTestAdapter(t *testing.T, handler http.Handler) (*Adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := New(Options{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		CachePath: filepath.Join(t.TempDir(), "identity.json"),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, srv
}

func writeSessionResponse(w http.ResponseWriter, uid, email string) {
	_ = json.NewEncoder(w).Encode(map[string]string{
		"uid":          uid,
		"email":        email,
		"displayName":  "Test User",
		"idToken":      "id-token",
		"refreshToken": "refresh-token",
	})
}

func writeProviderError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": code},
	})
}

func TestSignIn_Success(t *testing.T) {
	t.Parallel()

	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts:signInWithPassword" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key")
		}
		writeSessionResponse(w, "u1", "A@X.com")
	}))

	identity, err := a.SignIn(context.Background(), "a@x.com", "secret")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if identity.Subject != "u1" || identity.Email != "a@x.com" {
		t.Fatalf("identity = %+v", identity)
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	t.Parallel()

	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeProviderError(w, http.StatusBadRequest, "INVALID_LOGIN_CREDENTIALS")
	}))

	_, err := a.SignIn(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}

	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Code != "INVALID_LOGIN_CREDENTIALS" {
		t.Fatalf("error = %v, want ProviderError with code", err)
	}
}

func TestCreateAccount_EmailExists(t *testing.T) {
	t.Parallel()

	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeProviderError(w, http.StatusBadRequest, "EMAIL_EXISTS")
	}))

	_, err := a.CreateAccount(context.Background(), "a@x.com", "secret")
	if !errors.Is(err, auth.ErrCredentialPolicy) {
		t.Fatalf("error = %v, want ErrCredentialPolicy", err)
	}
}

func TestSignIn_ProviderUnreachable(t *testing.T) {
	t.Parallel()

	a, err := New(Options{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = a.SignIn(context.Background(), "a@x.com", "secret")
	if !errors.Is(err, auth.ErrProviderUnavailable) {
		t.Fatalf("error = %v, want ErrProviderUnavailable", err)
	}
}

func TestSubscribe_ImmediateAndOnChange(t *testing.T) {
	t.Parallel()

	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeSessionResponse(w, "u1", "a@x.com")
	}))

	var seen []*auth.Identity
	unsubscribe := a.Subscribe(func(id *auth.Identity) {
		seen = append(seen, id)
	})

	if len(seen) != 1 || seen[0] != nil {
		t.Fatalf("expected immediate nil notification, got %v", seen)
	}

	if _, err := a.SignIn(context.Background(), "a@x.com", "secret"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if len(seen) != 2 || seen[1] == nil || seen[1].Email != "a@x.com" {
		t.Fatalf("expected sign-in notification, got %v", seen)
	}

	if err := a.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if len(seen) != 3 || seen[2] != nil {
		t.Fatalf("expected nil notification on sign-out, got %v", seen)
	}

	unsubscribe()
	_, _ = a.SignIn(context.Background(), "a@x.com", "secret")
	if len(seen) != 3 {
		t.Fatalf("unsubscribed listener still notified")
	}
}

func TestSignOut_LocalEffectsSurviveRemoteFailure(t *testing.T) {
	t.Parallel()

	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/accounts:signOut" {
			writeProviderError(w, http.StatusInternalServerError, "INTERNAL")
			return
		}
		writeSessionResponse(w, "u1", "a@x.com")
	}))

	if _, err := a.SignIn(context.Background(), "a@x.com", "secret"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	err := a.SignOut(context.Background())
	if err == nil {
		t.Fatal("expected remote revocation error")
	}
	if got := a.CurrentIdentity(); got != nil {
		t.Fatalf("CurrentIdentity() = %v, want nil after SignOut", got)
	}
}

func TestUpdateProfile_NotAuthenticated(t *testing.T) {
	t.Parallel()

	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeSessionResponse(w, "u1", "a@x.com")
	}))

	err := a.UpdateProfile(context.Background(), "Name", "")
	if !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("error = %v, want ErrNotAuthenticated", err)
	}
}

func TestUpdateProfile_EmitsNotification(t *testing.T) {
	t.Parallel()

	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/accounts:update" {
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in["idToken"] != "id-token" {
				t.Errorf("idToken = %q, want %q", in["idToken"], "id-token")
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"uid": "u1", "email": "a@x.com",
				"displayName": in["displayName"], "photoUrl": in["photoUrl"],
			})
			return
		}
		writeSessionResponse(w, "u1", "a@x.com")
	}))

	if _, err := a.SignIn(context.Background(), "a@x.com", "secret"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	var last *auth.Identity
	a.Subscribe(func(id *auth.Identity) { last = id })

	if err := a.UpdateProfile(context.Background(), "New Name", "https://img.example/p.png"); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if last == nil || last.DisplayName != "New Name" {
		t.Fatalf("notification identity = %+v, want updated display name", last)
	}
}

func TestSessionCache_RestoredAcrossInstances(t *testing.T) {
	t.Parallel()

	cachePath := filepath.Join(t.TempDir(), "identity.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeSessionResponse(w, "u1", "a@x.com")
	}))
	t.Cleanup(srv.Close)

	first, err := New(Options{BaseURL: srv.URL, CachePath: cachePath})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := first.SignIn(context.Background(), "a@x.com", "secret"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	second, err := New(Options{BaseURL: srv.URL, CachePath: cachePath})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got := second.CurrentIdentity()
	if got == nil || got.Email != "a@x.com" {
		t.Fatalf("CurrentIdentity() = %v, want restored identity", got)
	}
}
