package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atpstore/storefront-gateway/internal/domain"
)

// Compile-time interface assertion.
var _ MembershipRepository = (*PostgresMembershipRepo)(nil)

// PostgresMembershipRepo implements MembershipRepository on pgx.
type PostgresMembershipRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresMembershipRepo constructs the repository.
func NewPostgresMembershipRepo(pool *pgxpool.Pool) *PostgresMembershipRepo {
	return &PostgresMembershipRepo{pool: pool}
}

const membershipColumns = `id, customer_id, order_id, subscription_id, status,
	start_date, expiration_date, service_discount, free_delivery,
	eligible_services, created_at, updated_at`

func (r *PostgresMembershipRepo) GetByCustomerID(ctx context.Context, customerID int64) (domain.Membership, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE customer_id = $1
		ORDER BY expiration_date DESC
		LIMIT 1`, customerID)

	m, err := scanMembership(row)
	if err != nil {
		return domain.Membership{}, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (r *PostgresMembershipRepo) UpsertActivation(ctx context.Context, m domain.Membership) (domain.Membership, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (customer_id, order_id) DO UPDATE SET
			status = EXCLUDED.status,
			expiration_date = EXCLUDED.expiration_date,
			subscription_id = EXCLUDED.subscription_id,
			updated_at = now()
		RETURNING `+membershipColumns,
		m.ID, m.CustomerID, m.OrderID, m.SubscriptionID, m.Status,
		m.StartDate, m.ExpirationDate, m.Benefits.ServiceDiscount,
		m.Benefits.FreeDelivery, m.Benefits.EligibleServices)

	stored, err := scanMembership(row)
	if err != nil {
		return domain.Membership{}, fmt.Errorf("upsert membership: %w", err)
	}
	return stored, nil
}

func (r *PostgresMembershipRepo) UpdateStatus(ctx context.Context, customerID int64, status domain.MembershipStatus, expiresAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE memberships SET
			status = $2,
			expiration_date = COALESCE($3, expiration_date),
			updated_at = now()
		WHERE customer_id = $1`,
		customerID, status, expiresAt)
	if err != nil {
		return fmt.Errorf("update membership status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update membership status: %w", pgx.ErrNoRows)
	}
	return nil
}

func scanMembership(row pgx.Row) (domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(
		&m.ID, &m.CustomerID, &m.OrderID, &m.SubscriptionID, &m.Status,
		&m.StartDate, &m.ExpirationDate, &m.Benefits.ServiceDiscount,
		&m.Benefits.FreeDelivery, &m.Benefits.EligibleServices,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Membership{}, err
	}
	return m, nil
}
