/**
 * @description
 * P2P wallet disbursement adapter. Sends funds to the wallet handle
 * stored in the payout method details.
 */
package payouts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gabrielzhin/App-sub001/pkg/walletclient"
)

type walletDetails struct {
	Handle string `json:"handle"`
}

// WalletAdapter disburses via the P2P wallet provider.
type WalletAdapter struct {
	client *walletclient.Client
}

// NewWalletAdapter creates a wallet adapter backed by the given client.
func NewWalletAdapter(client *walletclient.Client) *WalletAdapter {
	return &WalletAdapter{client: client}
}

// Process sends the payout amount to the method's wallet handle.
func (a *WalletAdapter) Process(ctx context.Context, details json.RawMessage, amount int64, currency string) (*Result, error) {
	var d walletDetails
	if err := json.Unmarshal(details, &d); err != nil {
		return nil, fmt.Errorf("invalid wallet details: %w", err)
	}
	if d.Handle == "" {
		return nil, fmt.Errorf("wallet details missing handle")
	}

	transfer, err := a.client.SendTransfer(ctx, d.Handle, amount, currency)
	if err != nil {
		return nil, err
	}
	return &Result{TransactionID: transfer.ID}, nil
}
