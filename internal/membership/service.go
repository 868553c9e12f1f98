// Package membership owns the entitlement records synced from purchase
// events and answers validity questions about them.
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atpstore/storefront-gateway/internal/domain"
	"github.com/atpstore/storefront-gateway/internal/repository"
)

// TierATP is the single membership tier the storefront sells today.
const TierATP = "atp"

const (
	membershipTerm         = 365 * 24 * time.Hour
	defaultServiceDiscount = 0.10
	dedupeWindow           = 48 * time.Hour
)

var defaultEligibleServices = []string{"bike-service", "priority-delivery"}

// Status is the derived membership view returned to the storefront.
type Status struct {
	IsMember     bool
	Tier         string
	DiscountRate float64
	Membership   *domain.Membership
}

// Service coordinates membership reads and writes. It is injected as a
// constructed dependency, never a package-level singleton, so handlers
// and tests can swap it out.
type Service interface {
	// ActivateFromOrder creates or re-activates a membership for a paid
	// order. Safe against at-least-once webhook delivery: replaying the
	// same order never creates a duplicate record.
	ActivateFromOrder(ctx context.Context, customerID, orderID int64, subscriptionID string) (*domain.Membership, error)
	// StatusForCustomer resolves the customer's current entitlement.
	// Non-membership is a normal result, not an error.
	StatusForCustomer(ctx context.Context, customerID int64) (*Status, error)
	// SyncFromShopify applies membership-namespaced metafield changes
	// from a customers/update event to the stored record.
	SyncFromShopify(ctx context.Context, customerID int64, fields map[string]string) error
}

type service struct {
	repo   repository.MembershipRepository
	dedupe repository.EventDedupe
	node   *snowflake.Node
	logger *zap.Logger
}

// NewService wires the membership service implementation.
func NewService(repo repository.MembershipRepository, dedupe repository.EventDedupe, node *snowflake.Node, logger *zap.Logger) Service {
	return &service{repo: repo, dedupe: dedupe, node: node, logger: logger}
}

func (s *service) ActivateFromOrder(ctx context.Context, customerID, orderID int64, subscriptionID string) (*domain.Membership, error) {
	if customerID == 0 {
		return nil, fmt.Errorf("activate membership: customer id required")
	}

	// Fast-path duplicate suppression. Best-effort only: when the dedupe
	// store is unreachable the conditional upsert below still guarantees
	// idempotency.
	if orderID != 0 && s.dedupe != nil {
		key := fmt.Sprintf("orders/paid:%d", orderID)
		first, err := s.dedupe.FirstDelivery(ctx, key, dedupeWindow)
		if err != nil {
			s.log().Warn("event dedupe unavailable", zap.Error(err))
		} else if !first {
			s.log().Info("duplicate order event ignored",
				zap.Int64("order_id", orderID), zap.Int64("customer_id", customerID))
			existing, err := s.repo.GetByCustomerID(ctx, customerID)
			if err != nil {
				return nil, fmt.Errorf("load membership after duplicate event: %w", err)
			}
			return &existing, nil
		}
	}

	now := time.Now().UTC()
	stored, err := s.repo.UpsertActivation(ctx, domain.Membership{
		ID:             s.node.Generate().Int64(),
		CustomerID:     customerID,
		OrderID:        orderID,
		SubscriptionID: subscriptionID,
		Status:         domain.MembershipActive,
		StartDate:      now,
		ExpirationDate: now.Add(membershipTerm),
		Benefits: domain.Benefits{
			ServiceDiscount:  defaultServiceDiscount,
			FreeDelivery:     true,
			EligibleServices: defaultEligibleServices,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("activate membership: %w", err)
	}

	s.log().Info("membership activated",
		zap.Int64("membership_id", stored.ID),
		zap.Int64("customer_id", customerID),
		zap.Int64("order_id", orderID))
	return &stored, nil
}

func (s *service) StatusForCustomer(ctx context.Context, customerID int64) (*Status, error) {
	m, err := s.repo.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Status{}, nil
		}
		return nil, fmt.Errorf("membership status: %w", err)
	}

	if !m.ActiveAt(time.Now()) {
		return &Status{Membership: &m}, nil
	}
	return &Status{
		IsMember:     true,
		Tier:         TierATP,
		DiscountRate: m.Benefits.ServiceDiscount,
		Membership:   &m,
	}, nil
}

func (s *service) SyncFromShopify(ctx context.Context, customerID int64, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	var expiresAt *time.Time
	if raw, ok := fields["expires_at"]; ok {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("sync membership: bad expires_at %q: %w", raw, err)
		}
		expiresAt = &parsed
	}

	status := domain.MembershipStatus(strings.ToLower(strings.TrimSpace(fields["status"])))
	if status == "" && expiresAt == nil {
		return nil
	}
	if status == "" {
		// Expiry-only update keeps the stored status.
		current, err := s.repo.GetByCustomerID(ctx, customerID)
		if err != nil {
			return fmt.Errorf("sync membership: %w", err)
		}
		status = current.Status
	}
	if !status.Valid() {
		return fmt.Errorf("sync membership: unknown status %q", status)
	}

	if err := s.repo.UpdateStatus(ctx, customerID, status, expiresAt); err != nil {
		return fmt.Errorf("sync membership: %w", err)
	}
	s.log().Info("membership synced from customer update",
		zap.Int64("customer_id", customerID), zap.String("status", string(status)))
	return nil
}

func (s *service) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
