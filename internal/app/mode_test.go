package app

import (
	"testing"
	"time"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

func TestDeriveMode(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name   string
		status domain.SubscriptionStatus
		grace  *time.Time
		want   domain.UserMode
	}{
		{"active", domain.SubscriptionActive, nil, domain.ModeFull},
		{"active ignores stale grace", domain.SubscriptionActive, &past, domain.ModeFull},
		{"trialing", domain.SubscriptionTrialing, nil, domain.ModeFull},
		{"trialing ignores grace", domain.SubscriptionTrialing, &future, domain.ModeFull},
		{"past_due within grace", domain.SubscriptionPastDue, &future, domain.ModeFull},
		{"past_due grace elapsed", domain.SubscriptionPastDue, &past, domain.ModeRestricted},
		{"past_due grace exactly now", domain.SubscriptionPastDue, &now, domain.ModeRestricted},
		{"past_due without grace", domain.SubscriptionPastDue, nil, domain.ModeRestricted},
		{"canceled", domain.SubscriptionCanceled, nil, domain.ModeRestricted},
		{"canceled with future grace", domain.SubscriptionCanceled, &future, domain.ModeRestricted},
		{"unpaid", domain.SubscriptionUnpaid, nil, domain.ModeRestricted},
		{"incomplete", domain.SubscriptionIncomplete, nil, domain.ModeRestricted},
		{"incomplete_expired", domain.SubscriptionIncompleteExpired, nil, domain.ModeRestricted},
		{"paused", domain.SubscriptionPaused, nil, domain.ModeRestricted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveMode(tc.status, tc.grace, now)
			if got != tc.want {
				t.Fatalf("DeriveMode(%s) = %s, want %s", tc.status, got, tc.want)
			}
		})
	}
}
