package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

type referralRepoStub struct {
	referral    *domain.Referral
	createCalls int
	qualifyOK   bool
	qualifiedAt time.Time
	scheduledAt time.Time
}

func (s *referralRepoStub) CreateReferralIfAbsent(ctx context.Context, referrerID, refereeID string) (*domain.Referral, error) {
	s.createCalls++
	if s.referral == nil {
		s.referral = &domain.Referral{
			ID:         "ref-1",
			ReferrerID: referrerID,
			RefereeID:  refereeID,
			Status:     domain.ReferralPending,
		}
	}
	return s.referral, nil
}

func (s *referralRepoStub) QualifyReferral(ctx context.Context, referralID string, qualifiedAt, scheduledPayoutAt time.Time) (bool, error) {
	s.qualifiedAt = qualifiedAt
	s.scheduledAt = scheduledPayoutAt
	if s.referral != nil && s.referral.Status == domain.ReferralPending {
		s.referral.Status = domain.ReferralQualified
		s.qualifyOK = true
		return true, nil
	}
	return false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func TestRecordQualifyingPayment_NotReferred(t *testing.T) {
	repo := &referralRepoStub{}
	engine := NewReferralEngine(repo, nil, testLogger())

	user := &domain.User{ID: "user-1"}
	if err := engine.RecordQualifyingPayment(context.Background(), user, domain.SubscriptionActive, time.Now()); err != nil {
		t.Fatal(err)
	}
	if repo.createCalls != 0 {
		t.Fatal("no referral should be created for a user without a referrer")
	}
}

func TestRecordQualifyingPayment_QualifiesWithCooldown(t *testing.T) {
	repo := &referralRepoStub{}
	engine := NewReferralEngine(repo, nil, testLogger())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	user := &domain.User{ID: "user-1", ReferredBy: strPtr("user-9")}
	if err := engine.RecordQualifyingPayment(context.Background(), user, domain.SubscriptionActive, now); err != nil {
		t.Fatal(err)
	}

	if !repo.qualifyOK {
		t.Fatal("expected referral to be qualified")
	}
	if repo.referral.ReferrerID != "user-9" || repo.referral.RefereeID != "user-1" {
		t.Fatalf("referral links wrong users: %+v", repo.referral)
	}
	if !repo.qualifiedAt.Equal(now) {
		t.Errorf("qualifiedAt = %v, want %v", repo.qualifiedAt, now)
	}
	if want := now.Add(7 * 24 * time.Hour); !repo.scheduledAt.Equal(want) {
		t.Errorf("scheduledPayoutAt = %v, want exactly 7 days after qualification (%v)", repo.scheduledAt, want)
	}
}

func TestRecordQualifyingPayment_StaysPendingWhenNotActive(t *testing.T) {
	repo := &referralRepoStub{}
	engine := NewReferralEngine(repo, nil, testLogger())

	user := &domain.User{ID: "user-1", ReferredBy: strPtr("user-9")}
	if err := engine.RecordQualifyingPayment(context.Background(), user, domain.SubscriptionPastDue, time.Now()); err != nil {
		t.Fatal(err)
	}

	if repo.referral == nil {
		t.Fatal("referral should still be created")
	}
	if repo.referral.Status != domain.ReferralPending {
		t.Fatalf("referral status = %s, want pending", repo.referral.Status)
	}
}

func TestRecordQualifyingPayment_IdempotentUnderRedelivery(t *testing.T) {
	repo := &referralRepoStub{}
	engine := NewReferralEngine(repo, nil, testLogger())
	now := time.Now().UTC()

	user := &domain.User{ID: "user-1", ReferredBy: strPtr("user-9")}
	for i := 0; i < 3; i++ {
		if err := engine.RecordQualifyingPayment(context.Background(), user, domain.SubscriptionActive, now); err != nil {
			t.Fatal(err)
		}
	}

	if repo.createCalls != 3 {
		t.Fatalf("createCalls = %d", repo.createCalls)
	}
	// The single referral row qualified exactly once and stayed there.
	if repo.referral.Status != domain.ReferralQualified {
		t.Fatalf("referral status = %s, want qualified", repo.referral.Status)
	}
}

func TestRecordQualifyingPayment_PaidReferralUntouched(t *testing.T) {
	repo := &referralRepoStub{
		referral: &domain.Referral{ID: "ref-1", ReferrerID: "user-9", RefereeID: "user-1", Status: domain.ReferralPaid},
	}
	engine := NewReferralEngine(repo, nil, testLogger())

	user := &domain.User{ID: "user-1", ReferredBy: strPtr("user-9")}
	if err := engine.RecordQualifyingPayment(context.Background(), user, domain.SubscriptionActive, time.Now()); err != nil {
		t.Fatal(err)
	}
	if repo.referral.Status != domain.ReferralPaid {
		t.Fatal("paid referral must be immutable")
	}
}
