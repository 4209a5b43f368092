package booking

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tourdesk/tourdesk/internal/api"
	"github.com/tourdesk/tourdesk/internal/tokenstore"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"pending", "confirmed", "cancelled", "completed"} {
		got, err := ParseStatus(s)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", s, err)
		}
		if string(got) != s {
			t.Fatalf("ParseStatus(%q) = %q", s, got)
		}
	}

	for _, s := range []string{"", "paid", "PENDING", "canceled"} {
		if _, err := ParseStatus(s); err == nil {
			t.Fatalf("ParseStatus(%q) accepted unknown status", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusConfirmed, StatusCompleted}: true,
	}

	all := []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	// Terminal statuses admit nothing, including self-transitions.
	for _, from := range []Status{StatusCancelled, StatusCompleted} {
		if !from.Terminal() {
			t.Errorf("%s should be terminal", from)
		}
	}
	if CanTransition(StatusPending, StatusCompleted) {
		t.Error("pending must not jump straight to completed")
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := tokenstore.NewMemStore()
	if err := store.Set("test-token"); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(api.NewAuthed(srv.URL, 5*time.Second, store, logger), logger)
}

func TestTours(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tours", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"tours": []map[string]any{
				{"id": "t1", "name": "Forest Hiker", "price": 397.0},
				{"id": "t2", "name": "Sea Explorer", "price": 497.0},
			},
		})
	})

	client := newTestClient(t, mux)
	tours, err := client.Tours(context.Background())
	if err != nil {
		t.Fatalf("Tours: %v", err)
	}
	if len(tours) != 2 || tours[0].Name != "Forest Hiker" {
		t.Fatalf("unexpected tours: %+v", tours)
	}
}

func TestCreateBookingSendsIdempotencyKey(t *testing.T) {
	t.Parallel()

	var keys []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bookings", func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		var nb NewBooking
		if err := json.NewDecoder(r.Body).Decode(&nb); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		json.NewEncoder(w).Encode(Booking{ID: "b1", TourID: nb.TourID, Status: StatusPending})
	})

	client := newTestClient(t, mux)
	for i := 0; i < 2; i++ {
		if _, err := client.CreateBooking(context.Background(), NewBooking{TourID: "t1", Email: "a@x.com", Price: 397}); err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
	}

	if len(keys) != 2 || keys[0] == "" || keys[0] == keys[1] {
		t.Fatalf("idempotency keys must be present and unique per submit, got %v", keys)
	}
}

func TestCreateBookingRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /bookings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "b1", "status": "paid"})
	})

	client := newTestClient(t, mux)
	if _, err := client.CreateBooking(context.Background(), NewBooking{TourID: "t1"}); err == nil {
		t.Fatal("expected error for unknown backend status")
	}
}

func TestCancelBooking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		current   Status
		wantErr   string
		wantPatch bool
	}{
		{name: "pending_cancels", current: StatusPending, wantPatch: true},
		{name: "confirmed_cancels", current: StatusConfirmed, wantPatch: true},
		{name: "completed_refuses", current: StatusCompleted, wantErr: "cannot be cancelled"},
		{name: "cancelled_refuses", current: StatusCancelled, wantErr: "cannot be cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var patched bool
			mux := http.NewServeMux()
			mux.HandleFunc("GET /bookings/b1", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(Booking{ID: "b1", Status: tt.current})
			})
			mux.HandleFunc("PATCH /bookings/b1", func(w http.ResponseWriter, r *http.Request) {
				patched = true
				json.NewEncoder(w).Encode(Booking{ID: "b1", Status: StatusCancelled})
			})

			client := newTestClient(t, mux)
			got, err := client.CancelBooking(context.Background(), "b1")

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				if patched {
					t.Fatal("refused cancellation must not hit the backend")
				}
				return
			}
			if err != nil {
				t.Fatalf("CancelBooking: %v", err)
			}
			if !patched || got.Status != StatusCancelled {
				t.Fatalf("patched=%v status=%s", patched, got.Status)
			}
		})
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments/checkout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Idempotency-Key") == "" {
			t.Error("missing idempotency key on checkout")
		}
		var in struct {
			BookingID string `json:"booking"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(CheckoutSession{ID: "cs1", BookingID: in.BookingID, RedirectURL: "https://pay.example/cs1"})
	})

	client := newTestClient(t, mux)
	sess, err := client.CreateCheckoutSession(context.Background(), "b1")
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if sess.RedirectURL != "https://pay.example/cs1" || sess.BookingID != "b1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestCreateCheckoutSessionRequiresRedirectURL(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments/checkout", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "cs1"})
	})

	client := newTestClient(t, mux)
	if _, err := client.CreateCheckoutSession(context.Background(), "b1"); err == nil {
		t.Fatal("expected error when gateway omits redirect url")
	}
}
