/**
 * @description
 * Access-tier derivation. A user's mode is a pure function of their
 * subscription status and grace window; it is recomputed after every
 * subscription write and only persisted when it changes.
 */
package app

import (
	"time"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

// DeriveMode maps a subscription state to the user's access tier.
// Active and trialing subscribers get full access. A past_due
// subscriber keeps full access while the grace window is strictly in
// the future; everything else is restricted.
func DeriveMode(status domain.SubscriptionStatus, gracePeriodEndsAt *time.Time, now time.Time) domain.UserMode {
	switch status {
	case domain.SubscriptionActive, domain.SubscriptionTrialing:
		return domain.ModeFull
	case domain.SubscriptionPastDue:
		if gracePeriodEndsAt != nil && gracePeriodEndsAt.After(now) {
			return domain.ModeFull
		}
	}
	return domain.ModeRestricted
}
