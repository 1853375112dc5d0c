/**
 * @description
 * Referral qualification. A referral is created the first time a
 * referred user's payment succeeds and qualifies for payout once that
 * user's subscription is active; qualification starts a fixed
 * fraud/chargeback cool-down before the payout is due.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

// payoutCooldown is the fixed window between qualification and payout
// eligibility, covering the provider's chargeback exposure.
const payoutCooldown = 7 * 24 * time.Hour

// ReferralRepository defines the database operations the engine needs.
type ReferralRepository interface {
	CreateReferralIfAbsent(ctx context.Context, referrerID, refereeID string) (*domain.Referral, error)
	QualifyReferral(ctx context.Context, referralID string, qualifiedAt, scheduledPayoutAt time.Time) (bool, error)
}

// EventPublisher defines the interface for publishing billing events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// ReferralEngine creates and qualifies referrals on successful payments.
type ReferralEngine struct {
	repo      ReferralRepository
	publisher EventPublisher
	logger    *slog.Logger
}

// NewReferralEngine creates a new referral engine.
func NewReferralEngine(repo ReferralRepository, publisher EventPublisher, logger *slog.Logger) *ReferralEngine {
	return &ReferralEngine{repo: repo, publisher: publisher, logger: logger}
}

// RecordQualifyingPayment processes a successful payment for a user.
// No-op unless the user was referred. The referral is created at most
// once per referee, and only a pending referral with an active
// subscription transitions to qualified, so webhook redelivery cannot
// qualify twice.
func (e *ReferralEngine) RecordQualifyingPayment(ctx context.Context, user *domain.User, subStatus domain.SubscriptionStatus, now time.Time) error {
	if user.ReferredBy == nil {
		return nil
	}

	referral, err := e.repo.CreateReferralIfAbsent(ctx, *user.ReferredBy, user.ID)
	if err != nil {
		return err
	}

	if referral.Status != domain.ReferralPending {
		e.logger.Info("referral already processed", "referral_id", referral.ID, "status", referral.Status)
		return nil
	}

	if subStatus != domain.SubscriptionActive {
		e.logger.Info("referral stays pending, subscription not active",
			"referral_id", referral.ID, "subscription_status", subStatus)
		return nil
	}

	scheduledPayoutAt := now.Add(payoutCooldown)
	qualified, err := e.repo.QualifyReferral(ctx, referral.ID, now, scheduledPayoutAt)
	if err != nil {
		return err
	}
	if !qualified {
		// A concurrent delivery qualified it first.
		return nil
	}

	e.logger.Info("referral qualified",
		"referral_id", referral.ID,
		"referrer_id", referral.ReferrerID,
		"referee_id", referral.RefereeID,
		"scheduled_payout_at", scheduledPayoutAt)

	e.publish(ctx, "billing.referral_qualified", domain.ReferralQualifiedEvent{
		ReferralID:        referral.ID,
		ReferrerID:        referral.ReferrerID,
		RefereeID:         referral.RefereeID,
		ScheduledPayoutAt: scheduledPayoutAt,
		Timestamp:         now,
	})
	return nil
}

func (e *ReferralEngine) publish(ctx context.Context, routingKey string, body interface{}) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, "billing_events", routingKey, body); err != nil {
		e.logger.Warn("failed to publish billing event", "routing_key", routingKey, "error", err)
	}
}
