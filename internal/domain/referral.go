/**
 * @description
 * This file defines the referral domain model. A referral is created
 * lazily the first time a referred user's payment succeeds and is only
 * ever status-transitioned, never deleted.
 */
package domain

import "time"

// ReferralStatus tracks a referral through its payout lifecycle.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralQualified ReferralStatus = "qualified"
	ReferralPaid      ReferralStatus = "paid"
	ReferralCanceled  ReferralStatus = "canceled"
)

// Referral links a referred user (referee) to the user who referred them.
// There is at most one referral per referee.
type Referral struct {
	ID                string         `json:"id"`
	ReferrerID        string         `json:"referrer_id"`
	RefereeID         string         `json:"referee_id"`
	Status            ReferralStatus `json:"status"`
	QualifiedAt       *time.Time     `json:"qualified_at,omitempty"`
	ScheduledPayoutAt *time.Time     `json:"scheduled_payout_at,omitempty"`
	PayoutAttempts    int            `json:"payout_attempts"`
	CreatedAt         time.Time      `json:"created_at"`
}
