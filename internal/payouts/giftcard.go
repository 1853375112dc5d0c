/**
 * @description
 * Gift-card disbursement adapter. Issues a gift card to the email
 * address stored in the payout method details.
 */
package payouts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gabrielzhin/App-sub001/pkg/giftcardclient"
)

type giftCardDetails struct {
	RecipientEmail string `json:"recipient_email"`
}

// GiftCardAdapter disburses via the gift-card provider.
type GiftCardAdapter struct {
	client *giftcardclient.Client
}

// NewGiftCardAdapter creates a gift-card adapter backed by the given client.
func NewGiftCardAdapter(client *giftcardclient.Client) *GiftCardAdapter {
	return &GiftCardAdapter{client: client}
}

// Process issues a gift card for the payout amount.
func (a *GiftCardAdapter) Process(ctx context.Context, details json.RawMessage, amount int64, currency string) (*Result, error) {
	var d giftCardDetails
	if err := json.Unmarshal(details, &d); err != nil {
		return nil, fmt.Errorf("invalid gift card details: %w", err)
	}
	if d.RecipientEmail == "" {
		return nil, fmt.Errorf("gift card details missing recipient_email")
	}

	order, err := a.client.CreateOrder(ctx, d.RecipientEmail, amount, currency)
	if err != nil {
		return nil, err
	}
	return &Result{TransactionID: order.ID}, nil
}
