/**
 * @description
 * Payout method selection and the append-only payout audit trail.
 */
package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

// GetActivePayoutMethod picks the payout method to use for a referrer:
// active methods only, default first, newest as the tie-break.
func (r *Repository) GetActivePayoutMethod(ctx context.Context, userID string) (*domain.PayoutMethod, error) {
	var method domain.PayoutMethod
	query := `
        SELECT id, user_id, type, details, is_active, is_default, created_at
        FROM payout_methods
        WHERE user_id = $1 AND is_active = TRUE
        ORDER BY is_default DESC, created_at DESC
        LIMIT 1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&method.ID,
		&method.UserID,
		&method.Type,
		&method.Details,
		&method.IsActive,
		&method.IsDefault,
		&method.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayoutMethodNotFound
		}
		return nil, err
	}
	return &method, nil
}

// CreatePayout appends one disbursement attempt to the audit trail.
// Payout rows are never updated; a retry creates a new row.
func (r *Repository) CreatePayout(ctx context.Context, payout *domain.Payout) (*domain.Payout, error) {
	var saved domain.Payout
	query := `
        INSERT INTO payouts (user_id, amount, currency, status, referral_id, payout_method_id,
                             provider_payout_id, failure_reason)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, user_id, amount, currency, status, referral_id, payout_method_id,
                  provider_payout_id, failure_reason, created_at
    `
	err := r.db.QueryRow(ctx, query,
		payout.UserID,
		payout.Amount,
		payout.Currency,
		payout.Status,
		payout.ReferralID,
		payout.PayoutMethodID,
		payout.ProviderPayoutID,
		payout.FailureReason,
	).Scan(
		&saved.ID,
		&saved.UserID,
		&saved.Amount,
		&saved.Currency,
		&saved.Status,
		&saved.ReferralID,
		&saved.PayoutMethodID,
		&saved.ProviderPayoutID,
		&saved.FailureReason,
		&saved.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetPayoutStats aggregates the payout audit trail for the admin surface.
func (r *Repository) GetPayoutStats(ctx context.Context) (*domain.PayoutStats, error) {
	var stats domain.PayoutStats
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'completed'),
               COUNT(*) FILTER (WHERE status = 'failed'),
               COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0)
        FROM payouts
    `
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.Total,
		&stats.Completed,
		&stats.Failed,
		&stats.CompletedAmount,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListPayoutsForExport returns every payout row joined with the
// recipient and referee user records, oldest first, for CSV export.
func (r *Repository) ListPayoutsForExport(ctx context.Context) ([]domain.PayoutExportRow, error) {
	query := `
        SELECT p.id, u.email, u.name, p.amount, p.currency, p.status,
               COALESCE(ru.email, ''), COALESCE(p.provider_payout_id, ''), p.created_at
        FROM payouts p
        JOIN users u ON u.id = p.user_id
        LEFT JOIN referrals ref ON ref.id = p.referral_id
        LEFT JOIN users ru ON ru.id = ref.referee_id
        ORDER BY p.created_at ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PayoutExportRow
	for rows.Next() {
		var row domain.PayoutExportRow
		if err := rows.Scan(
			&row.ID,
			&row.UserEmail,
			&row.UserName,
			&row.Amount,
			&row.Currency,
			&row.Status,
			&row.RefereeEmail,
			&row.ProviderPayoutID,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
