/**
 * @description
 * Outbound provider access. The webhook processor only needs to fetch a
 * subscription by id (to self-heal a missed subscription.created
 * delivery), so that is the whole interface; tests substitute a stub.
 */
package app

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/subscription"
)

// SubscriptionFetcher retrieves a subscription from the payment provider.
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// StripeProvider is the live SubscriptionFetcher backed by the Stripe
// API. The global API key is configured at process start.
type StripeProvider struct{}

// FetchSubscription retrieves a subscription by id from Stripe.
func (StripeProvider) FetchSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return subscription.Get(subscriptionID, params)
}
