package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tourdesk/tourdesk/internal/tokenstore"
)

const testTimeout = 5 * time.Second

func TestPublic_MintToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/jwt" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("public façade sent Authorization header %q", got)
		}
		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Email != "a@x.com" {
			t.Errorf("email = %q, want %q", body.Email, "a@x.com")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "t1"})
	}))
	defer srv.Close()

	pub := NewPublic(srv.URL, testTimeout, nil)
	token, err := pub.MintToken(context.Background(), " A@X.com ")
	if err != nil {
		t.Fatalf("MintToken() error = %v", err)
	}
	if token != "t1" {
		t.Fatalf("MintToken() = %q, want %q", token, "t1")
	}
}

func TestPublic_MintTokenEmptyResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": ""})
	}))
	defer srv.Close()

	if _, err := NewPublic(srv.URL, testTimeout, nil).MintToken(context.Background(), "a@x.com"); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestAuthed_AttachesBearer(t *testing.T) {
	t.Parallel()

	store := tokenstore.NewMemStore()
	if err := store.Set("t1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer t1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer t1")
		}
		if got := r.URL.Query().Get("email"); got != "a@x.com" {
			t.Errorf("email query = %q, want %q", got, "a@x.com")
		}
		_ = json.NewEncoder(w).Encode([]UserRecord{{Email: "a@x.com", Role: "host"}})
	}))
	defer srv.Close()

	authed := NewAuthed(srv.URL, testTimeout, store, nil)
	records, err := authed.UsersByEmail(context.Background(), "A@X.com")
	if err != nil {
		t.Fatalf("UsersByEmail() error = %v", err)
	}
	if len(records) != 1 || records[0].Role != "host" {
		t.Fatalf("UsersByEmail() = %+v", records)
	}
}

func TestAuthed_NoHeaderWhenStoreEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("Authorization header sent with empty store")
		}
		_ = json.NewEncoder(w).Encode([]UserRecord{})
	}))
	defer srv.Close()

	authed := NewAuthed(srv.URL, testTimeout, tokenstore.NewMemStore(), nil)
	if _, err := authed.UsersByEmail(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("UsersByEmail() error = %v", err)
	}
}

func TestAuthed_ClearsTokenOnAuthFailure(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			store := tokenstore.NewMemStore()
			_ = store.Set("stale")

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			authed := NewAuthed(srv.URL, testTimeout, store, nil)
			_, err := authed.UsersByEmail(context.Background(), "a@x.com")
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("error = %v, want ErrUnauthorized", err)
			}

			token, _ := store.Get()
			if token != "" {
				t.Fatalf("token store = %q, want empty after %d", token, status)
			}
		})
	}
}

func TestAuthed_OtherErrorsKeepToken(t *testing.T) {
	t.Parallel()

	store := tokenstore.NewMemStore()
	_ = store.Set("t1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	authed := NewAuthed(srv.URL, testTimeout, store, nil)
	_, err := authed.UsersByEmail(context.Background(), "a@x.com")
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("error = %v, want ErrAPI", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("500 must not map to ErrUnauthorized")
	}

	token, _ := store.Get()
	if token != "t1" {
		t.Fatalf("token store = %q, want %q", token, "t1")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("error = %v, want *APIError with status 500", err)
	}
}
