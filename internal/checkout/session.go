// Package checkout orchestrates the multi-step checkout flow: cart and
// shipping, payment, completion. Session state is a durable snapshot so a
// crashed or closed browser resumes exactly where it left off.
package checkout

import (
	"context"
	"time"

	"github.com/tmarchant/vesper/internal/domain"
)

// Step is a checkout step. Steps only move forward through the service;
// backward moves are explicit and only allowed before payment settles.
type Step int

const (
	StepCart      Step = 0 // cart review and shipping address
	StepPayment   Step = 1 // order created, awaiting capture
	StepCompleted Step = 2 // payment reconciled
)

// String returns the step name used in logs and metrics.
func (s Step) String() string {
	switch s {
	case StepCart:
		return "cart"
	case StepPayment:
		return "payment"
	case StepCompleted:
		return "completed"
	}
	return "unknown"
}

// SessionTTL is how long a checkout session stays resumable.
const SessionTTL = 24 * time.Hour

// Session is the durable checkout snapshot. Everything needed to resume is
// here; the cart itself lives in its own store and is only cleared after
// capture succeeds.
type Session struct {
	ID     string
	UserID string
	Step   Step

	// OrderID is set once step 0 completes and an order exists.
	OrderID string

	Address domain.ShippingAddress
	Summary domain.PriceSummary
	Items   []domain.OrderItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExpiresAt returns the moment the session stops being resumable.
func (s Session) ExpiresAt() time.Time {
	return s.CreatedAt.Add(SessionTTL)
}

// Expired reports whether the session is past its TTL at the given time.
// The TTL runs from creation, not last touch; an abandoned checkout does
// not stay alive by being poked.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

// SessionStore persists checkout sessions.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
