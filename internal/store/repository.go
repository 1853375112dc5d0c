/**
 * @description
 * This file provides the PostgreSQL data access layer for users and
 * subscriptions. All webhook-driven subscription writes go through the
 * full-overwrite upsert here; concurrent deliveries resolve last-write-wins
 * because every field written is the provider's current snapshot.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrReferralNotFound     = errors.New("referral not found")
	ErrPayoutMethodNotFound = errors.New("payout method not found")
)

// Repository is the PostgreSQL implementation of the billing data access layer.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindUserByStripeCustomerID resolves a local user from a Stripe customer id.
func (r *Repository) FindUserByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	var user domain.User
	query := `
        SELECT id, email, name, mode, stripe_customer_id, referred_by
        FROM users
        WHERE stripe_customer_id = $1
    `
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Mode,
		&user.StripeCustomerID,
		&user.ReferredBy,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUserMode writes the derived access tier for a user.
func (r *Repository) UpdateUserMode(ctx context.Context, userID string, mode domain.UserMode) error {
	query := `UPDATE users SET mode = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, mode, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetSubscriptionByUserID retrieves a subscription for a given user id.
func (r *Repository) GetSubscriptionByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
        SELECT id, user_id, stripe_subscription_id, stripe_customer_id, status, plan,
               current_period_start, current_period_end, trial_start, trial_end,
               cancel_at_period_end, canceled_at, grace_period_ends_at
        FROM subscriptions
        WHERE user_id = $1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.StripeSubscriptionID,
		&sub.StripeCustomerID,
		&sub.Status,
		&sub.Plan,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.TrialStart,
		&sub.TrialEnd,
		&sub.CancelAtPeriodEnd,
		&sub.CanceledAt,
		&sub.GracePeriodEndsAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscription writes the provider's current snapshot of a user's
// subscription, creating the row if it does not exist. Every delivery
// fully overwrites the snapshot fields; there is no merge. The grace
// window is not part of the provider snapshot and is left untouched on
// update: only the payment-failed and payment-succeeded handlers move it.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	var saved domain.Subscription
	query := `
        INSERT INTO subscriptions (user_id, stripe_subscription_id, stripe_customer_id, status, plan,
                                   current_period_start, current_period_end, trial_start, trial_end,
                                   cancel_at_period_end, canceled_at, grace_period_ends_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (user_id) DO UPDATE SET
            stripe_subscription_id = EXCLUDED.stripe_subscription_id,
            stripe_customer_id = EXCLUDED.stripe_customer_id,
            status = EXCLUDED.status,
            plan = EXCLUDED.plan,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            trial_start = EXCLUDED.trial_start,
            trial_end = EXCLUDED.trial_end,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            canceled_at = EXCLUDED.canceled_at,
            updated_at = NOW()
        RETURNING id, user_id, stripe_subscription_id, stripe_customer_id, status, plan,
                  current_period_start, current_period_end, trial_start, trial_end,
                  cancel_at_period_end, canceled_at, grace_period_ends_at
    `
	err := r.db.QueryRow(ctx, query,
		sub.UserID,
		sub.StripeSubscriptionID,
		sub.StripeCustomerID,
		sub.Status,
		sub.Plan,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.TrialStart,
		sub.TrialEnd,
		sub.CancelAtPeriodEnd,
		sub.CanceledAt,
		sub.GracePeriodEndsAt,
	).Scan(
		&saved.ID,
		&saved.UserID,
		&saved.StripeSubscriptionID,
		&saved.StripeCustomerID,
		&saved.Status,
		&saved.Plan,
		&saved.CurrentPeriodStart,
		&saved.CurrentPeriodEnd,
		&saved.TrialStart,
		&saved.TrialEnd,
		&saved.CancelAtPeriodEnd,
		&saved.CanceledAt,
		&saved.GracePeriodEndsAt,
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// ActivateSubscription forces a subscription to active and clears any
// grace period. A successful charge is stronger evidence than a stale
// past_due record.
func (r *Repository) ActivateSubscription(ctx context.Context, userID string) error {
	query := `
        UPDATE subscriptions
        SET status = 'active', grace_period_ends_at = NULL, updated_at = NOW()
        WHERE user_id = $1
    `
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// MarkSubscriptionPastDue records a failed charge and opens the grace window.
func (r *Repository) MarkSubscriptionPastDue(ctx context.Context, userID string, graceUntil time.Time) error {
	query := `
        UPDATE subscriptions
        SET status = 'past_due', grace_period_ends_at = $2, updated_at = NOW()
        WHERE user_id = $1
    `
	tag, err := r.db.Exec(ctx, query, userID, graceUntil)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// MarkSubscriptionCanceled records a terminal provider-side deletion.
func (r *Repository) MarkSubscriptionCanceled(ctx context.Context, userID string, canceledAt time.Time) error {
	query := `
        UPDATE subscriptions
        SET status = 'canceled', canceled_at = $2, grace_period_ends_at = NULL, updated_at = NOW()
        WHERE user_id = $1
    `
	tag, err := r.db.Exec(ctx, query, userID, canceledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// DowngradeLapsedUsers restricts every user whose grace period has
// elapsed with no further webhook activity. Returns the affected user ids.
func (r *Repository) DowngradeLapsedUsers(ctx context.Context, now time.Time) ([]string, error) {
	query := `
        UPDATE users u
        SET mode = 'restricted', updated_at = NOW()
        FROM subscriptions s
        WHERE s.user_id = u.id
          AND u.mode = 'full'
          AND s.status = 'past_due'
          AND s.grace_period_ends_at IS NOT NULL
          AND s.grace_period_ends_at <= $1
        RETURNING u.id
    `
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
