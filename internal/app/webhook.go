/**
 * @description
 * Webhook event processing. Verifies the Stripe signature over the raw
 * request body, then dispatches by event type to the subscription
 * lifecycle handlers. Delivery is at-least-once and deliveries for the
 * same subscription may race: every write here is either a
 * full-overwrite snapshot keyed by a stable id or a guarded status
 * transition, so redelivery converges on the same final state.
 *
 * @dependencies
 * - github.com/stripe/stripe-go/v79: Event envelope, payload types, and
 *   signature verification.
 */
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
	"github.com/Gabrielzhin/App-sub001/internal/store"
)

// gracePeriod is the window after a failed charge during which the user
// keeps full access pending retried billing.
const gracePeriod = 7 * 24 * time.Hour

// ErrInvalidSignature is returned when a webhook payload fails
// signature verification. No state is mutated in that case.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// WebhookRepository defines the database operations the processor needs.
type WebhookRepository interface {
	FindUserByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	UpdateUserMode(ctx context.Context, userID string, mode domain.UserMode) error
	GetSubscriptionByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	ActivateSubscription(ctx context.Context, userID string) error
	MarkSubscriptionPastDue(ctx context.Context, userID string, graceUntil time.Time) error
	MarkSubscriptionCanceled(ctx context.Context, userID string, canceledAt time.Time) error
}

// WebhookProcessor verifies and dispatches inbound provider events.
type WebhookProcessor struct {
	repo      WebhookRepository
	provider  SubscriptionFetcher
	referrals *ReferralEngine
	publisher EventPublisher
	logger    *slog.Logger
	secret    string
}

// NewWebhookProcessor creates a new webhook processor.
func NewWebhookProcessor(repo WebhookRepository, provider SubscriptionFetcher, referrals *ReferralEngine, publisher EventPublisher, logger *slog.Logger, secret string) *WebhookProcessor {
	return &WebhookProcessor{
		repo:      repo,
		provider:  provider,
		referrals: referrals,
		publisher: publisher,
		logger:    logger,
		secret:    secret,
	}
}

// HandleWebhook verifies the signature over the raw body and dispatches
// the event. Verification failure is fail-closed: nothing is mutated.
func (p *WebhookProcessor) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		p.logger.Warn("webhook signature verification failed", "error", err)
		return ErrInvalidSignature
	}
	return p.Dispatch(ctx, event)
}

// Dispatch routes an already-verified event to its handler. Unknown
// event types are accepted and ignored so the provider can add new
// types without breaking delivery.
func (p *WebhookProcessor) Dispatch(ctx context.Context, event stripe.Event) error {
	now := time.Now().UTC()
	p.logger.Info("processing webhook event", "event_id", event.ID, "event_type", event.Type)

	switch string(event.Type) {
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to decode subscription payload: %w", err)
		}
		return p.handleSubscriptionUpserted(ctx, &sub, now)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to decode subscription payload: %w", err)
		}
		return p.handleSubscriptionDeleted(ctx, &sub, now)

	case "invoice.paid", "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("failed to decode invoice payload: %w", err)
		}
		return p.handlePaymentSucceeded(ctx, &inv, now)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("failed to decode invoice payload: %w", err)
		}
		return p.handlePaymentFailed(ctx, &inv, now)

	default:
		p.logger.Info("ignoring unhandled webhook event type", "event_type", event.Type)
		return nil
	}
}

// handleSubscriptionUpserted persists the provider's current snapshot
// and re-derives the user's access tier.
func (p *WebhookProcessor) handleSubscriptionUpserted(ctx context.Context, sub *stripe.Subscription, now time.Time) error {
	user, ok, err := p.resolveUser(ctx, customerIDOf(sub.Customer), sub.ID)
	if err != nil || !ok {
		return err
	}

	saved, err := p.repo.UpsertSubscription(ctx, BuildSubscription(user.ID, sub))
	if err != nil {
		return fmt.Errorf("failed to upsert subscription %s: %w", sub.ID, err)
	}

	return p.applyMode(ctx, user, saved.Status, saved.GracePeriodEndsAt, now)
}

// handleSubscriptionDeleted marks the subscription canceled and
// restricts the user. Deletion is terminal; no grace period applies.
func (p *WebhookProcessor) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription, now time.Time) error {
	user, ok, err := p.resolveUser(ctx, customerIDOf(sub.Customer), sub.ID)
	if err != nil || !ok {
		return err
	}

	if err := p.repo.MarkSubscriptionCanceled(ctx, user.ID, now); err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			p.logger.Info("no local subscription for deletion event", "user_id", user.ID, "subscription_id", sub.ID)
			return nil
		}
		return fmt.Errorf("failed to mark subscription canceled for user %s: %w", user.ID, err)
	}

	return p.applyMode(ctx, user, domain.SubscriptionCanceled, nil, now)
}

// handlePaymentSucceeded records the strongest positive evidence the
// provider can give: clear any grace window, force the subscription
// active, restore full access, and feed the referral engine. When the
// local subscription row is missing but the invoice references one, the
// subscription is fetched from the provider to self-heal a missed
// subscription.created delivery.
func (p *WebhookProcessor) handlePaymentSucceeded(ctx context.Context, inv *stripe.Invoice, now time.Time) error {
	user, ok, err := p.resolveUser(ctx, customerIDOf(inv.Customer), inv.ID)
	if err != nil || !ok {
		return err
	}

	status := domain.SubscriptionCanceled
	haveSubscription := false

	_, err = p.repo.GetSubscriptionByUserID(ctx, user.ID)
	switch {
	case err == nil:
		if err := p.repo.ActivateSubscription(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to activate subscription for user %s: %w", user.ID, err)
		}
		status = domain.SubscriptionActive
		haveSubscription = true

	case errors.Is(err, store.ErrSubscriptionNotFound):
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			p.logger.Info("payment succeeded with no local subscription and no reference", "user_id", user.ID)
			break
		}
		providerSub, err := p.provider.FetchSubscription(ctx, inv.Subscription.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch subscription %s from provider: %w", inv.Subscription.ID, err)
		}
		saved, err := p.repo.UpsertSubscription(ctx, BuildSubscription(user.ID, providerSub))
		if err != nil {
			return fmt.Errorf("failed to upsert fetched subscription %s: %w", providerSub.ID, err)
		}
		p.logger.Info("self-healed missing subscription", "user_id", user.ID, "subscription_id", providerSub.ID)
		status = saved.Status
		haveSubscription = true

	default:
		return fmt.Errorf("failed to load subscription for user %s: %w", user.ID, err)
	}

	if haveSubscription {
		if err := p.applyMode(ctx, user, status, nil, now); err != nil {
			return err
		}
	}

	return p.referrals.RecordQualifyingPayment(ctx, user, status, now)
}

// handlePaymentFailed opens the grace window. The user is not
// downgraded here: the mode policy keeps them at full access until the
// window elapses.
func (p *WebhookProcessor) handlePaymentFailed(ctx context.Context, inv *stripe.Invoice, now time.Time) error {
	user, ok, err := p.resolveUser(ctx, customerIDOf(inv.Customer), inv.ID)
	if err != nil || !ok {
		return err
	}

	graceUntil := now.Add(gracePeriod)
	if err := p.repo.MarkSubscriptionPastDue(ctx, user.ID, graceUntil); err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			p.logger.Info("no local subscription for failed payment", "user_id", user.ID)
			return nil
		}
		return fmt.Errorf("failed to mark subscription past due for user %s: %w", user.ID, err)
	}

	return p.applyMode(ctx, user, domain.SubscriptionPastDue, &graceUntil, now)
}

// resolveUser looks up the local user for a provider customer id. A
// missing user is a benign no-op: the account may have been deleted
// locally while the provider still delivers events for it.
func (p *WebhookProcessor) resolveUser(ctx context.Context, customerID, resourceID string) (*domain.User, bool, error) {
	if customerID == "" {
		p.logger.Info("event carries no customer id", "resource_id", resourceID)
		return nil, false, nil
	}
	user, err := p.repo.FindUserByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			p.logger.Info("no local user for provider customer", "customer_id", customerID, "resource_id", resourceID)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to resolve user for customer %s: %w", customerID, err)
	}
	return user, true, nil
}

// applyMode re-derives the user's access tier and persists it when it
// changed. Correctness does not depend on skipping redundant writes;
// it just avoids churn.
func (p *WebhookProcessor) applyMode(ctx context.Context, user *domain.User, status domain.SubscriptionStatus, gracePeriodEndsAt *time.Time, now time.Time) error {
	mode := DeriveMode(status, gracePeriodEndsAt, now)
	if mode == user.Mode {
		return nil
	}

	if err := p.repo.UpdateUserMode(ctx, user.ID, mode); err != nil {
		return fmt.Errorf("failed to update mode for user %s: %w", user.ID, err)
	}
	user.Mode = mode
	p.logger.Info("user mode changed", "user_id", user.ID, "mode", mode, "subscription_status", status)

	p.publishModeChanged(ctx, user.ID, mode, now)
	return nil
}

func (p *WebhookProcessor) publishModeChanged(ctx context.Context, userID string, mode domain.UserMode, now time.Time) {
	if p.publisher == nil {
		return
	}
	event := domain.ModeChangedEvent{UserID: userID, Mode: mode, Timestamp: now}
	if err := p.publisher.Publish(ctx, "billing_events", "billing.mode_changed", event); err != nil {
		p.logger.Warn("failed to publish mode change event", "user_id", userID, "error", err)
	}
}

func customerIDOf(customer *stripe.Customer) string {
	if customer == nil {
		return ""
	}
	return customer.ID
}
