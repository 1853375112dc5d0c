/**
 * @description
 * This package defines the payout adapter contract and the registry
 * that maps a payout method type to its adapter. Each adapter turns an
 * opaque method-details blob plus an amount into a provider transaction
 * id. Adapters normalize every provider failure into a returned error;
 * nothing past this boundary should have to care which provider failed
 * or how.
 */
package payouts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

// Result carries the provider transaction id of a successful disbursement.
type Result struct {
	TransactionID string
}

// Adapter is implemented by every disbursement integration.
type Adapter interface {
	Process(ctx context.Context, details json.RawMessage, amount int64, currency string) (*Result, error)
}

// Registry maps a payout method type to the adapter handling it.
type Registry map[domain.PayoutMethodType]Adapter

// For returns the adapter registered for a method type.
func (r Registry) For(methodType domain.PayoutMethodType) (Adapter, error) {
	adapter, ok := r[methodType]
	if !ok {
		return nil, fmt.Errorf("no payout adapter registered for method type %q", methodType)
	}
	return adapter, nil
}
