/**
 * @description
 * Referral payout batch. Finds due, qualified referrals, selects an
 * active payout method per referrer, dispatches to the matching
 * adapter, and records every attempt in the append-only payout trail.
 * The batch is safe to invoke repeatedly: a failed attempt leaves the
 * referral qualified and retryable, and the qualified -> paid
 * transition is a compare-and-swap so overlapping runs cannot pay twice.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
	"github.com/Gabrielzhin/App-sub001/internal/payouts"
	"github.com/Gabrielzhin/App-sub001/internal/store"
)

// PayoutRepository defines the database operations the runner needs.
type PayoutRepository interface {
	ListDueReferrals(ctx context.Context, now time.Time, maxAttempts int) ([]domain.Referral, error)
	GetActivePayoutMethod(ctx context.Context, userID string) (*domain.PayoutMethod, error)
	CreatePayout(ctx context.Context, payout *domain.Payout) (*domain.Payout, error)
	MarkReferralPaid(ctx context.Context, referralID string) (bool, error)
	IncrementReferralAttempts(ctx context.Context, referralID string) error
}

// RunResult holds the aggregate counters of one payout batch.
type RunResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// PayoutRunner executes the referral payout batch.
type PayoutRunner struct {
	repo        PayoutRepository
	adapters    payouts.Registry
	publisher   EventPublisher
	logger      *slog.Logger
	amount      int64
	currency    string
	maxAttempts int
}

// NewPayoutRunner creates a new payout runner. Amount is in minor
// currency units and applies to every referral payout.
func NewPayoutRunner(repo PayoutRepository, adapters payouts.Registry, publisher EventPublisher, logger *slog.Logger, amount int64, currency string, maxAttempts int) *PayoutRunner {
	return &PayoutRunner{
		repo:        repo,
		adapters:    adapters,
		publisher:   publisher,
		logger:      logger,
		amount:      amount,
		currency:    currency,
		maxAttempts: maxAttempts,
	}
}

// Run processes every due referral sequentially. Only a failure to even
// list the due referrals is fatal; any error while processing one
// referral is counted and logged without aborting the rest of the batch.
func (r *PayoutRunner) Run(ctx context.Context) (*RunResult, error) {
	now := time.Now().UTC()
	due, err := r.repo.ListDueReferrals(ctx, now, r.maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to list due referrals: %w", err)
	}

	result := &RunResult{}
	if len(due) == 0 {
		r.logger.Info("no due referrals to pay out")
		return result, nil
	}

	r.logger.Info("processing due referrals", "count", len(due))

	for _, referral := range due {
		if err := r.processReferral(ctx, referral); err != nil {
			if errors.Is(err, errNoPayoutMethod) {
				// Not counted: the referral stays qualified until the
				// referrer registers a method.
				r.logger.Info("referrer has no active payout method",
					"referral_id", referral.ID, "referrer_id", referral.ReferrerID)
				continue
			}
			result.Failed++
			r.logger.Error("failed to process referral payout", "referral_id", referral.ID, "error", err)
			continue
		}
		result.Processed++
	}

	r.logger.Info("payout batch finished", "processed", result.Processed, "failed", result.Failed)
	return result, nil
}

var errNoPayoutMethod = errors.New("no active payout method")

func (r *PayoutRunner) processReferral(ctx context.Context, referral domain.Referral) error {
	method, err := r.repo.GetActivePayoutMethod(ctx, referral.ReferrerID)
	if err != nil {
		if errors.Is(err, store.ErrPayoutMethodNotFound) {
			return errNoPayoutMethod
		}
		return fmt.Errorf("failed to select payout method: %w", err)
	}

	adapter, err := r.adapters.For(method.Type)
	if err != nil {
		return r.recordFailure(ctx, referral, method, err)
	}

	res, err := adapter.Process(ctx, method.Details, r.amount, r.currency)
	if err != nil {
		return r.recordFailure(ctx, referral, method, err)
	}

	payout := &domain.Payout{
		UserID:           referral.ReferrerID,
		Amount:           r.amount,
		Currency:         r.currency,
		Status:           domain.PayoutCompleted,
		ReferralID:       &referral.ID,
		PayoutMethodID:   &method.ID,
		ProviderPayoutID: &res.TransactionID,
	}
	if _, err := r.repo.CreatePayout(ctx, payout); err != nil {
		return fmt.Errorf("failed to record completed payout: %w", err)
	}

	paid, err := r.repo.MarkReferralPaid(ctx, referral.ID)
	if err != nil {
		return fmt.Errorf("failed to mark referral paid: %w", err)
	}
	if !paid {
		// An overlapping run won the compare-and-swap after we disbursed;
		// the audit row above still records this attempt.
		r.logger.Warn("referral already transitioned by a concurrent run", "referral_id", referral.ID)
		return nil
	}

	r.logger.Info("referral paid out",
		"referral_id", referral.ID,
		"referrer_id", referral.ReferrerID,
		"method_type", method.Type,
		"provider_payout_id", res.TransactionID)

	r.publishResult(ctx, referral, domain.PayoutCompleted, nil)
	return nil
}

// recordFailure appends a failed payout row and bumps the attempt
// counter; the referral stays qualified so a later run retries it.
func (r *PayoutRunner) recordFailure(ctx context.Context, referral domain.Referral, method *domain.PayoutMethod, cause error) error {
	reason := cause.Error()
	payout := &domain.Payout{
		UserID:         referral.ReferrerID,
		Amount:         r.amount,
		Currency:       r.currency,
		Status:         domain.PayoutFailed,
		ReferralID:     &referral.ID,
		PayoutMethodID: &method.ID,
		FailureReason:  &reason,
	}
	if _, err := r.repo.CreatePayout(ctx, payout); err != nil {
		r.logger.Error("failed to record failed payout", "referral_id", referral.ID, "error", err)
	}
	if err := r.repo.IncrementReferralAttempts(ctx, referral.ID); err != nil {
		r.logger.Error("failed to increment payout attempts", "referral_id", referral.ID, "error", err)
	}
	if referral.PayoutAttempts+1 >= r.maxAttempts {
		r.logger.Warn("referral reached payout attempt ceiling, needs manual review",
			"referral_id", referral.ID, "attempts", referral.PayoutAttempts+1)
	}

	r.publishResult(ctx, referral, domain.PayoutFailed, &reason)
	return fmt.Errorf("payout attempt failed: %w", cause)
}

func (r *PayoutRunner) publishResult(ctx context.Context, referral domain.Referral, status domain.PayoutStatus, failureReason *string) {
	if r.publisher == nil {
		return
	}
	event := domain.PayoutResultEvent{
		ReferralID:    referral.ID,
		UserID:        referral.ReferrerID,
		Amount:        r.amount,
		Currency:      r.currency,
		Status:        status,
		FailureReason: failureReason,
		Timestamp:     time.Now().UTC(),
	}
	routingKey := "billing.payout_completed"
	if status == domain.PayoutFailed {
		routingKey = "billing.payout_failed"
	}
	if err := r.publisher.Publish(ctx, "billing_events", routingKey, event); err != nil {
		r.logger.Warn("failed to publish payout event", "referral_id", referral.ID, "error", err)
	}
}
