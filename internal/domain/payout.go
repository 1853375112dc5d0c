/**
 * @description
 * This file defines the payout method and payout audit models.
 * Payout rows are append-only: a retried disbursement creates a new row.
 */
package domain

import (
	"encoding/json"
	"time"
)

// PayoutMethodType identifies which disbursement adapter handles a method.
type PayoutMethodType string

const (
	MethodGiftCard     PayoutMethodType = "gift_card"
	MethodWallet       PayoutMethodType = "wallet"
	MethodBankTransfer PayoutMethodType = "bank_transfer"
)

// PayoutMethod is a referrer's registered way of receiving payouts.
// Details is an opaque blob interpreted only by the matching adapter.
type PayoutMethod struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      PayoutMethodType `json:"type"`
	Details   json.RawMessage  `json:"details"`
	IsActive  bool             `json:"is_active"`
	IsDefault bool             `json:"is_default"`
	CreatedAt time.Time        `json:"created_at"`
}

// PayoutStatus records the outcome of a single disbursement attempt.
type PayoutStatus string

const (
	PayoutCompleted PayoutStatus = "completed"
	PayoutFailed    PayoutStatus = "failed"
)

// Payout is an immutable audit record of one disbursement attempt.
type Payout struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	Amount           int64        `json:"amount"`
	Currency         string       `json:"currency"`
	Status           PayoutStatus `json:"status"`
	ReferralID       *string      `json:"referral_id,omitempty"`
	PayoutMethodID   *string      `json:"payout_method_id,omitempty"`
	ProviderPayoutID *string      `json:"provider_payout_id,omitempty"`
	FailureReason    *string      `json:"failure_reason,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// PayoutStats summarizes payout history for the admin surface.
type PayoutStats struct {
	Total           int64 `json:"total"`
	Completed       int64 `json:"completed"`
	Failed          int64 `json:"failed"`
	CompletedAmount int64 `json:"completed_amount"`
}

// PayoutExportRow is one line of the admin CSV export, joined with the
// recipient's user record and the referred user's email.
type PayoutExportRow struct {
	ID               string
	UserEmail        string
	UserName         string
	Amount           int64
	Currency         string
	Status           PayoutStatus
	RefereeEmail     string
	ProviderPayoutID string
	CreatedAt        time.Time
}
