package domain

import "time"

// MembershipStatus is the closed set of membership lifecycle states.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipInactive  MembershipStatus = "inactive"
	MembershipCancelled MembershipStatus = "cancelled"
)

// Valid reports whether the status belongs to the closed set.
func (s MembershipStatus) Valid() bool {
	switch s {
	case MembershipActive, MembershipInactive, MembershipCancelled:
		return true
	}
	return false
}

// Benefits describes what an active membership entitles the customer to.
type Benefits struct {
	ServiceDiscount  float64  `json:"serviceDiscount"`
	FreeDelivery     bool     `json:"freeDelivery"`
	EligibleServices []string `json:"eligibleServices"`
}

// Membership is the entitlement record synced from purchase events.
// Records are never hard-deleted, only status-transitioned.
type Membership struct {
	ID             int64            `json:"id"`
	CustomerID     int64            `json:"customerId"`
	OrderID        int64            `json:"orderId,omitempty"`
	SubscriptionID string           `json:"subscriptionId,omitempty"`
	Status         MembershipStatus `json:"status"`
	StartDate      time.Time        `json:"startDate"`
	ExpirationDate time.Time        `json:"expirationDate"`
	Benefits       Benefits         `json:"benefits"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// ActiveAt reports whether the membership is valid for discount purposes
// at instant t. The expiration instant itself is still active; anything
// past it is not. Validity is derived, never stored.
func (m Membership) ActiveAt(t time.Time) bool {
	if m.Status != MembershipActive {
		return false
	}
	return !t.Before(m.StartDate) && !t.After(m.ExpirationDate)
}
