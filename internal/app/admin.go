/**
 * @description
 * Admin operations layered on top of the payout pipeline: qualified
 * referral listing, payout statistics, CSV export of the audit trail,
 * force-scheduling a referral, and terminal cancellation.
 */
package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

// ErrReferralAlreadyPaid is returned when an admin tries to cancel a
// referral that has already been paid out.
var ErrReferralAlreadyPaid = errors.New("referral already paid")

// AdminRepository defines the database operations the admin service needs.
type AdminRepository interface {
	ListQualifiedReferrals(ctx context.Context) ([]domain.Referral, error)
	GetReferralByID(ctx context.Context, referralID string) (*domain.Referral, error)
	SetReferralDueNow(ctx context.Context, referralID string, now time.Time) error
	CancelReferral(ctx context.Context, referralID string) (bool, error)
	GetPayoutStats(ctx context.Context) (*domain.PayoutStats, error)
	ListPayoutsForExport(ctx context.Context) ([]domain.PayoutExportRow, error)
}

// AdminService provides the manual override surface.
type AdminService struct {
	repo   AdminRepository
	runner *PayoutRunner
	logger *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(repo AdminRepository, runner *PayoutRunner, logger *slog.Logger) *AdminService {
	return &AdminService{repo: repo, runner: runner, logger: logger}
}

// ListQualifiedReferrals returns every qualified-but-unpaid referral.
func (s *AdminService) ListQualifiedReferrals(ctx context.Context) ([]domain.Referral, error) {
	return s.repo.ListQualifiedReferrals(ctx)
}

// PayoutStats aggregates the payout audit trail.
func (s *AdminService) PayoutStats(ctx context.Context) (*domain.PayoutStats, error) {
	return s.repo.GetPayoutStats(ctx)
}

// csvHeader is the documented column order of the payout export.
var csvHeader = []string{"id", "user_email", "user_name", "amount", "currency", "status", "referee_email", "provider_transaction_id", "created_at"}

// ExportPayoutsCSV streams the full payout audit trail as CSV.
func (s *AdminService) ExportPayoutsCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.repo.ListPayoutsForExport(ctx)
	if err != nil {
		return fmt.Errorf("failed to load payouts for export: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ID,
			row.UserEmail,
			row.UserName,
			strconv.FormatInt(row.Amount, 10),
			row.Currency,
			string(row.Status),
			row.RefereeEmail,
			row.ProviderPayoutID,
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ForceSchedulePayout pulls a referral's payout forward to now and runs
// the payout batch immediately.
func (s *AdminService) ForceSchedulePayout(ctx context.Context, referralID string) (*RunResult, error) {
	if _, err := s.repo.GetReferralByID(ctx, referralID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.SetReferralDueNow(ctx, referralID, now); err != nil {
		return nil, err
	}

	s.logger.Info("referral force-scheduled", "referral_id", referralID)
	return s.runner.Run(ctx)
}

// CancelReferral applies the terminal admin cancellation. Paid
// referrals are immutable and cannot be canceled.
func (s *AdminService) CancelReferral(ctx context.Context, referralID string) error {
	referral, err := s.repo.GetReferralByID(ctx, referralID)
	if err != nil {
		return err
	}
	if referral.Status == domain.ReferralPaid {
		return ErrReferralAlreadyPaid
	}

	canceled, err := s.repo.CancelReferral(ctx, referralID)
	if err != nil {
		return err
	}
	if !canceled {
		// Lost a race with the payout batch or another admin action.
		return ErrReferralAlreadyPaid
	}

	s.logger.Info("referral canceled", "referral_id", referralID)
	return nil
}

// RunPayouts triggers the payout batch on demand.
func (s *AdminService) RunPayouts(ctx context.Context) (*RunResult, error) {
	return s.runner.Run(ctx)
}
