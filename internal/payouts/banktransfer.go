/**
 * @description
 * Bank-transfer disbursement adapter. Moves funds from the platform
 * balance to the referrer's Stripe connected account; Stripe then pays
 * out to the linked bank account on its own schedule.
 */
package payouts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/transfer"
)

type bankTransferDetails struct {
	ConnectedAccountID string `json:"connected_account_id"`
}

// BankTransferAdapter disburses via a Stripe Connect transfer.
type BankTransferAdapter struct{}

// NewBankTransferAdapter creates a bank-transfer adapter. The global
// Stripe API key is configured at process start.
func NewBankTransferAdapter() *BankTransferAdapter {
	return &BankTransferAdapter{}
}

// Process transfers the payout amount to the connected account held in
// the method details.
func (a *BankTransferAdapter) Process(ctx context.Context, details json.RawMessage, amount int64, currency string) (*Result, error) {
	var d bankTransferDetails
	if err := json.Unmarshal(details, &d); err != nil {
		return nil, fmt.Errorf("invalid bank transfer details: %w", err)
	}
	if d.ConnectedAccountID == "" {
		return nil, fmt.Errorf("bank transfer details missing connected_account_id")
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Destination: stripe.String(d.ConnectedAccountID),
	}
	params.Context = ctx

	t, err := transfer.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			return nil, fmt.Errorf("stripe transfer failed: %s", stripeErr.Code)
		}
		return nil, fmt.Errorf("stripe transfer failed: %w", err)
	}
	return &Result{TransactionID: t.ID}, nil
}
