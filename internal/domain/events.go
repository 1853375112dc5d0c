/**
 * @description
 * Internal event payloads published to the billing_events exchange for
 * consumption by the notification service.
 */
package domain

import "time"

// ModeChangedEvent is published when a user's access tier changes.
type ModeChangedEvent struct {
	UserID    string    `json:"user_id"`
	Mode      UserMode  `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

// ReferralQualifiedEvent is published when a referral enters the payout cool-down.
type ReferralQualifiedEvent struct {
	ReferralID        string    `json:"referral_id"`
	ReferrerID        string    `json:"referrer_id"`
	RefereeID         string    `json:"referee_id"`
	ScheduledPayoutAt time.Time `json:"scheduled_payout_at"`
	Timestamp         time.Time `json:"timestamp"`
}

// PayoutResultEvent is published after every disbursement attempt.
type PayoutResultEvent struct {
	ReferralID    string       `json:"referral_id"`
	UserID        string       `json:"user_id"`
	Amount        int64        `json:"amount"`
	Currency      string       `json:"currency"`
	Status        PayoutStatus `json:"status"`
	FailureReason *string      `json:"failure_reason,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}
