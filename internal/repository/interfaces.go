package repository

import (
	"context"
	"time"

	"github.com/atpstore/storefront-gateway/internal/domain"
)

// MembershipRepository persists membership entitlement records.
type MembershipRepository interface {
	// GetByCustomerID returns the customer's most recent membership.
	// Wraps pgx.ErrNoRows when the customer has none.
	GetByCustomerID(ctx context.Context, customerID int64) (domain.Membership, error)
	// UpsertActivation inserts the membership, or re-activates the
	// existing row keyed by (customer_id, order_id) when the same order
	// event is delivered again.
	UpsertActivation(ctx context.Context, m domain.Membership) (domain.Membership, error)
	// UpdateStatus transitions the membership's status and optionally its
	// expiration date. Records are never deleted.
	UpdateStatus(ctx context.Context, customerID int64, status domain.MembershipStatus, expiresAt *time.Time) error
}

// EventDedupe suppresses duplicate webhook deliveries. Best-effort: the
// repository's conditional upsert remains the authoritative guard.
type EventDedupe interface {
	// FirstDelivery reports whether this event key has not been seen
	// within the ttl window, claiming it atomically when so.
	FirstDelivery(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
