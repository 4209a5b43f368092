// Package booking is the client pipeline for tours, bookings and checkout.
// Every operation runs over the authenticated facade; callers are expected
// to hold an established session before mutating anything.
package booking

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a booking as reported by the backend.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a backend status string. Unknown values are an
// error rather than a silent zero value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// transitions is the allowed booking lifecycle. Completion requires a
// confirmed booking; cancellation is allowed up to completion.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Tour is one bookable listing.
type Tour struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	Price      float64     `json:"price"`
	Duration   int         `json:"duration"`
	MaxGroup   int         `json:"maxGroupSize"`
	Summary    string      `json:"summary"`
	RatingsAvg float64     `json:"ratingsAverage"`
	RatingsQty int         `json:"ratingsQuantity"`
	StartsAt   []time.Time `json:"startDates,omitempty"`
}

// Booking ties an identity to a tour.
type Booking struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tour"`
	UserEmail string    `json:"email"`
	Price     float64   `json:"price"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewBooking is the creation payload.
type NewBooking struct {
	TourID string  `json:"tour"`
	Email  string  `json:"email"`
	Price  float64 `json:"price"`
}

// CheckoutSession is the payment gateway hand-off for one booking.
type CheckoutSession struct {
	ID          string `json:"id"`
	BookingID   string `json:"booking"`
	RedirectURL string `json:"url"`
}
