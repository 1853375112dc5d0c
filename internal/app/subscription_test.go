package app

import (
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

func TestMapSubscriptionStatus(t *testing.T) {
	tests := []struct {
		native stripe.SubscriptionStatus
		want   domain.SubscriptionStatus
	}{
		{stripe.SubscriptionStatusActive, domain.SubscriptionActive},
		{stripe.SubscriptionStatusTrialing, domain.SubscriptionTrialing},
		{stripe.SubscriptionStatusPastDue, domain.SubscriptionPastDue},
		{stripe.SubscriptionStatusCanceled, domain.SubscriptionCanceled},
		{stripe.SubscriptionStatusUnpaid, domain.SubscriptionUnpaid},
		{stripe.SubscriptionStatusIncomplete, domain.SubscriptionIncomplete},
		{stripe.SubscriptionStatusIncompleteExpired, domain.SubscriptionIncompleteExpired},
		{stripe.SubscriptionStatusPaused, domain.SubscriptionPaused},
		// Anything the table does not know resolves to canceled.
		{stripe.SubscriptionStatus("some_future_status"), domain.SubscriptionCanceled},
		{stripe.SubscriptionStatus(""), domain.SubscriptionCanceled},
	}

	for _, tc := range tests {
		if got := MapSubscriptionStatus(tc.native); got != tc.want {
			t.Errorf("MapSubscriptionStatus(%q) = %s, want %s", tc.native, got, tc.want)
		}
	}
}

func TestBuildSubscription(t *testing.T) {
	periodStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 0, 30)

	sub := &stripe.Subscription{
		ID:                 "sub_123",
		Customer:           &stripe.Customer{ID: "cus_123"},
		Status:             stripe.SubscriptionStatusActive,
		CurrentPeriodStart: periodStart.Unix(),
		CurrentPeriodEnd:   periodEnd.Unix(),
		CancelAtPeriodEnd:  true,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: "price_monthly"}},
				{Price: &stripe.Price{ID: "price_addon"}},
			},
		},
	}

	got := BuildSubscription("user-1", sub)

	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", got.UserID)
	}
	if got.StripeSubscriptionID != "sub_123" || got.StripeCustomerID != "cus_123" {
		t.Errorf("provider ids = (%q, %q)", got.StripeSubscriptionID, got.StripeCustomerID)
	}
	if got.Status != domain.SubscriptionActive {
		t.Errorf("Status = %s, want active", got.Status)
	}
	if got.Plan != "price_monthly" {
		t.Errorf("Plan = %q, want first line-item price id", got.Plan)
	}
	if !got.CurrentPeriodStart.Equal(periodStart) || !got.CurrentPeriodEnd.Equal(periodEnd) {
		t.Errorf("period = (%v, %v), want (%v, %v)", got.CurrentPeriodStart, got.CurrentPeriodEnd, periodStart, periodEnd)
	}
	if !got.CancelAtPeriodEnd {
		t.Error("CancelAtPeriodEnd not carried over")
	}
	if got.TrialStart != nil || got.TrialEnd != nil || got.CanceledAt != nil {
		t.Error("zero provider timestamps must map to nil")
	}
}

func TestBuildSubscriptionPlanFallback(t *testing.T) {
	sub := &stripe.Subscription{
		ID:       "sub_456",
		Customer: &stripe.Customer{ID: "cus_456"},
		Status:   stripe.SubscriptionStatusTrialing,
	}

	got := BuildSubscription("user-2", sub)
	if got.Plan != "unknown" {
		t.Errorf("Plan = %q, want unknown when no line items", got.Plan)
	}
}
