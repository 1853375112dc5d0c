/**
 * @description
 * Subscription state machine: the fixed mapping from Stripe-native
 * status strings to the internal enum, and the construction of the
 * full-overwrite subscription snapshot persisted on every delivery.
 */
package app

import (
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

// statusMap is the fixed lookup from Stripe's native status to the
// internal enum. Anything absent from the table resolves to canceled;
// an unrecognized status must never be an error.
var statusMap = map[stripe.SubscriptionStatus]domain.SubscriptionStatus{
	stripe.SubscriptionStatusIncomplete:        domain.SubscriptionIncomplete,
	stripe.SubscriptionStatusIncompleteExpired: domain.SubscriptionIncompleteExpired,
	stripe.SubscriptionStatusTrialing:          domain.SubscriptionTrialing,
	stripe.SubscriptionStatusActive:            domain.SubscriptionActive,
	stripe.SubscriptionStatusPastDue:           domain.SubscriptionPastDue,
	stripe.SubscriptionStatusCanceled:          domain.SubscriptionCanceled,
	stripe.SubscriptionStatusUnpaid:            domain.SubscriptionUnpaid,
	stripe.SubscriptionStatusPaused:            domain.SubscriptionPaused,
}

// MapSubscriptionStatus translates a provider status to the internal
// enum, defaulting to canceled for anything unrecognized.
func MapSubscriptionStatus(status stripe.SubscriptionStatus) domain.SubscriptionStatus {
	if mapped, ok := statusMap[status]; ok {
		return mapped
	}
	return domain.SubscriptionCanceled
}

// planFromSubscription extracts the plan identifier: the first
// line-item price id, or the literal "unknown" when absent.
func planFromSubscription(sub *stripe.Subscription) string {
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		return sub.Items.Data[0].Price.ID
	}
	return "unknown"
}

func unixOrNil(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

// BuildSubscription converts a provider subscription object into the
// local snapshot for the given user. The result is written with an
// unconditional upsert: the provider's current truth overwrites
// whatever is stored.
func BuildSubscription(userID string, sub *stripe.Subscription) *domain.Subscription {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	return &domain.Subscription{
		UserID:               userID,
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     customerID,
		Status:               MapSubscriptionStatus(sub.Status),
		Plan:                 planFromSubscription(sub),
		CurrentPeriodStart:   time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:     time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		TrialStart:           unixOrNil(sub.TrialStart),
		TrialEnd:             unixOrNil(sub.TrialEnd),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		CanceledAt:           unixOrNil(sub.CanceledAt),
	}
}
