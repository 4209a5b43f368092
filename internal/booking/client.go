package booking

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/tourdesk/tourdesk/internal/api"
)

// Client exposes the booking pipeline over the authenticated facade.
type Client struct {
	authed *api.Authed
	logger *slog.Logger
}

func NewClient(authed *api.Authed, logger *slog.Logger) *Client {
	return &Client{authed: authed, logger: logger.With(slog.String("component", "booking"))}
}

// Tours lists the bookable catalogue.
func (c *Client) Tours(ctx context.Context) ([]Tour, error) {
	var out struct {
		Tours []Tour `json:"tours"`
	}
	if err := c.authed.GetJSON(ctx, "/tours", nil, &out); err != nil {
		return nil, fmt.Errorf("listing tours: %w", err)
	}
	return out.Tours, nil
}

// BookingsForEmail lists the caller's bookings.
func (c *Client) BookingsForEmail(ctx context.Context, email string) ([]Booking, error) {
	q := url.Values{"email": []string{email}}
	var out struct {
		Bookings []Booking `json:"bookings"`
	}
	if err := c.authed.GetJSON(ctx, "/bookings", q, &out); err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	return out.Bookings, nil
}

// CreateBooking submits a new booking. The idempotency key makes a retried
// submit after a dropped response safe on the server side.
func (c *Client) CreateBooking(ctx context.Context, nb NewBooking) (*Booking, error) {
	header := http.Header{}
	header.Set("Idempotency-Key", uuid.NewString())

	var out Booking
	if err := c.authed.PostJSON(ctx, "/bookings", header, nb, &out); err != nil {
		return nil, fmt.Errorf("creating booking: %w", err)
	}
	if _, err := ParseStatus(string(out.Status)); err != nil {
		return nil, fmt.Errorf("creating booking: %w", err)
	}
	c.logger.Info("booking created", slog.String("booking_id", out.ID), slog.String("tour_id", out.TourID))
	return &out, nil
}

// CancelBooking moves a booking to cancelled. The current status is checked
// client-side so a completed or already cancelled booking fails fast with a
// clear error instead of a backend 409.
func (c *Client) CancelBooking(ctx context.Context, id string) (*Booking, error) {
	var current Booking
	if err := c.authed.GetJSON(ctx, "/bookings/"+url.PathEscape(id), nil, &current); err != nil {
		return nil, fmt.Errorf("loading booking %s: %w", id, err)
	}
	if !CanTransition(current.Status, StatusCancelled) {
		return nil, fmt.Errorf("booking %s is %s and cannot be cancelled", id, current.Status)
	}

	patch := struct {
		Status Status `json:"status"`
	}{Status: StatusCancelled}

	var out Booking
	if err := c.authed.PatchJSON(ctx, "/bookings/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, fmt.Errorf("cancelling booking %s: %w", id, err)
	}
	c.logger.Info("booking cancelled", slog.String("booking_id", id))
	return &out, nil
}

// CreateCheckoutSession asks the payment gateway for a hosted checkout and
// returns the redirect URL the caller should open.
func (c *Client) CreateCheckoutSession(ctx context.Context, bookingID string) (*CheckoutSession, error) {
	header := http.Header{}
	header.Set("Idempotency-Key", uuid.NewString())

	in := struct {
		BookingID string `json:"booking"`
	}{BookingID: bookingID}

	var out CheckoutSession
	if err := c.authed.PostJSON(ctx, "/payments/checkout", header, in, &out); err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	if out.RedirectURL == "" {
		return nil, fmt.Errorf("creating checkout session: gateway returned no redirect url")
	}
	return &out, nil
}
