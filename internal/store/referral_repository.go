/**
 * @description
 * Referral persistence. Status transitions that must not race
 * (pending -> qualified, qualified -> paid, cancellation) are
 * compare-and-swap updates conditioned on the current status, so an
 * overlapping run that loses the race finds zero rows affected.
 */
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

const referralColumns = `id, referrer_id, referee_id, status, qualified_at, scheduled_payout_at, payout_attempts, created_at`

func scanReferral(row pgx.Row) (*domain.Referral, error) {
	var ref domain.Referral
	err := row.Scan(
		&ref.ID,
		&ref.ReferrerID,
		&ref.RefereeID,
		&ref.Status,
		&ref.QualifiedAt,
		&ref.ScheduledPayoutAt,
		&ref.PayoutAttempts,
		&ref.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return &ref, nil
}

// GetReferralByID retrieves a referral by its id.
func (r *Repository) GetReferralByID(ctx context.Context, referralID string) (*domain.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE id = $1`
	return scanReferral(r.db.QueryRow(ctx, query, referralID))
}

// GetReferralByRefereeID retrieves the referral for a referred user.
func (r *Repository) GetReferralByRefereeID(ctx context.Context, refereeID string) (*domain.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE referee_id = $1`
	return scanReferral(r.db.QueryRow(ctx, query, refereeID))
}

// CreateReferralIfAbsent inserts a pending referral for a referee,
// returning the existing row when one is already present. The unique
// constraint on referee_id makes creation idempotent under webhook
// redelivery.
func (r *Repository) CreateReferralIfAbsent(ctx context.Context, referrerID, refereeID string) (*domain.Referral, error) {
	insert := `
        INSERT INTO referrals (referrer_id, referee_id, status)
        VALUES ($1, $2, 'pending')
        ON CONFLICT (referee_id) DO NOTHING
        RETURNING ` + referralColumns
	ref, err := scanReferral(r.db.QueryRow(ctx, insert, referrerID, refereeID))
	if err == nil {
		return ref, nil
	}
	if err != ErrReferralNotFound {
		return nil, err
	}
	// Conflict: the referral already exists, fetch it.
	return r.GetReferralByRefereeID(ctx, refereeID)
}

// QualifyReferral transitions a referral from pending to qualified,
// stamping the qualification time and payout schedule. Returns false
// when the referral was no longer pending.
func (r *Repository) QualifyReferral(ctx context.Context, referralID string, qualifiedAt, scheduledPayoutAt time.Time) (bool, error) {
	query := `
        UPDATE referrals
        SET status = 'qualified', qualified_at = $2, scheduled_payout_at = $3, updated_at = NOW()
        WHERE id = $1 AND status = 'pending'
    `
	tag, err := r.db.Exec(ctx, query, referralID, qualifiedAt, scheduledPayoutAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkReferralPaid transitions a referral from qualified to paid.
// Returns false when another scheduler run already won the race.
func (r *Repository) MarkReferralPaid(ctx context.Context, referralID string) (bool, error) {
	query := `
        UPDATE referrals
        SET status = 'paid', updated_at = NOW()
        WHERE id = $1 AND status = 'qualified'
    `
	tag, err := r.db.Exec(ctx, query, referralID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CancelReferral applies the terminal admin cancellation. Returns false
// when the referral is already paid (or already canceled).
func (r *Repository) CancelReferral(ctx context.Context, referralID string) (bool, error) {
	query := `
        UPDATE referrals
        SET status = 'canceled', updated_at = NOW()
        WHERE id = $1 AND status IN ('pending', 'qualified')
    `
	tag, err := r.db.Exec(ctx, query, referralID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetReferralDueNow pulls a referral's payout schedule forward for the
// admin force-schedule operation.
func (r *Repository) SetReferralDueNow(ctx context.Context, referralID string, now time.Time) error {
	query := `
        UPDATE referrals
        SET scheduled_payout_at = $2, updated_at = NOW()
        WHERE id = $1 AND status = 'qualified'
    `
	tag, err := r.db.Exec(ctx, query, referralID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReferralNotFound
	}
	return nil
}

// IncrementReferralAttempts bumps the failed-payout counter.
func (r *Repository) IncrementReferralAttempts(ctx context.Context, referralID string) error {
	query := `UPDATE referrals SET payout_attempts = payout_attempts + 1, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, referralID)
	return err
}

// ListDueReferrals returns every qualified referral whose payout
// schedule has arrived and which has not exhausted its attempt budget.
func (r *Repository) ListDueReferrals(ctx context.Context, now time.Time, maxAttempts int) ([]domain.Referral, error) {
	query := `
        SELECT ` + referralColumns + `
        FROM referrals
        WHERE status = 'qualified'
          AND scheduled_payout_at IS NOT NULL
          AND scheduled_payout_at <= $1
          AND payout_attempts < $2
        ORDER BY scheduled_payout_at ASC
    `
	rows, err := r.db.Query(ctx, query, now, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referrals []domain.Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, *ref)
	}
	return referrals, rows.Err()
}

// ListQualifiedReferrals returns every qualified-but-unpaid referral for
// the admin surface.
func (r *Repository) ListQualifiedReferrals(ctx context.Context) ([]domain.Referral, error) {
	query := `
        SELECT ` + referralColumns + `
        FROM referrals
        WHERE status = 'qualified'
        ORDER BY scheduled_payout_at ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referrals []domain.Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, *ref)
	}
	return referrals, rows.Err()
}
