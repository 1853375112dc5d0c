package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
	"github.com/Gabrielzhin/App-sub001/internal/payouts"
	"github.com/Gabrielzhin/App-sub001/internal/store"
)

type adminRepoStub struct {
	referrals    map[string]*domain.Referral
	exportRows   []domain.PayoutExportRow
	stats        *domain.PayoutStats
	dueNowCalls  []string
	cancelResult bool
}

func newAdminRepoStub() *adminRepoStub {
	return &adminRepoStub{
		referrals:    make(map[string]*domain.Referral),
		cancelResult: true,
	}
}

func (s *adminRepoStub) ListQualifiedReferrals(ctx context.Context) ([]domain.Referral, error) {
	var out []domain.Referral
	for _, referral := range s.referrals {
		if referral.Status == domain.ReferralQualified {
			out = append(out, *referral)
		}
	}
	return out, nil
}

func (s *adminRepoStub) GetReferralByID(ctx context.Context, referralID string) (*domain.Referral, error) {
	referral, ok := s.referrals[referralID]
	if !ok {
		return nil, store.ErrReferralNotFound
	}
	copied := *referral
	return &copied, nil
}

func (s *adminRepoStub) SetReferralDueNow(ctx context.Context, referralID string, now time.Time) error {
	s.dueNowCalls = append(s.dueNowCalls, referralID)
	if referral, ok := s.referrals[referralID]; ok {
		scheduled := now
		referral.ScheduledPayoutAt = &scheduled
	}
	return nil
}

func (s *adminRepoStub) CancelReferral(ctx context.Context, referralID string) (bool, error) {
	if !s.cancelResult {
		return false, nil
	}
	if referral, ok := s.referrals[referralID]; ok {
		referral.Status = domain.ReferralCanceled
	}
	return true, nil
}

func (s *adminRepoStub) GetPayoutStats(ctx context.Context) (*domain.PayoutStats, error) {
	return s.stats, nil
}

func (s *adminRepoStub) ListPayoutsForExport(ctx context.Context) ([]domain.PayoutExportRow, error) {
	return s.exportRows, nil
}

func newTestAdmin(repo *adminRepoStub, payoutRepo *payoutRepoStub) *AdminService {
	runner := NewPayoutRunner(payoutRepo, payouts.Registry{}, nil, testLogger(), 1000, "usd", 10)
	return NewAdminService(repo, runner, testLogger())
}

func TestExportPayoutsCSV(t *testing.T) {
	repo := newAdminRepoStub()
	repo.exportRows = []domain.PayoutExportRow{
		{
			ID:               "pay-1",
			UserEmail:        "referrer@example.com",
			UserName:         "Ada Referrer",
			Amount:           1000,
			Currency:         "usd",
			Status:           domain.PayoutCompleted,
			RefereeEmail:     "friend@example.com",
			ProviderPayoutID: "gc_123",
			CreatedAt:        time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:        "pay-2",
			UserEmail: "other@example.com",
			UserName:  "Ben Other",
			Amount:    1000,
			Currency:  "usd",
			Status:    domain.PayoutFailed,
			CreatedAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		},
	}
	admin := newTestAdmin(repo, newPayoutRepoStub())

	var buf bytes.Buffer
	if err := admin.ExportPayoutsCSV(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}

	want := "id,user_email,user_name,amount,currency,status,referee_email,provider_transaction_id,created_at\n" +
		"pay-1,referrer@example.com,Ada Referrer,1000,usd,completed,friend@example.com,gc_123,2026-03-14T09:30:00Z\n" +
		"pay-2,other@example.com,Ben Other,1000,usd,failed,,,2026-03-15T12:00:00Z\n"
	if buf.String() != want {
		t.Errorf("export mismatch:\n got: %q\nwant: %q", buf.String(), want)
	}
}

func TestCancelReferral(t *testing.T) {
	repo := newAdminRepoStub()
	repo.referrals["ref-1"] = &domain.Referral{ID: "ref-1", Status: domain.ReferralQualified}
	admin := newTestAdmin(repo, newPayoutRepoStub())

	if err := admin.CancelReferral(context.Background(), "ref-1"); err != nil {
		t.Fatal(err)
	}
	if repo.referrals["ref-1"].Status != domain.ReferralCanceled {
		t.Errorf("status = %s, want canceled", repo.referrals["ref-1"].Status)
	}
}

func TestCancelPaidReferralRejected(t *testing.T) {
	repo := newAdminRepoStub()
	repo.referrals["ref-1"] = &domain.Referral{ID: "ref-1", Status: domain.ReferralPaid}
	admin := newTestAdmin(repo, newPayoutRepoStub())

	err := admin.CancelReferral(context.Background(), "ref-1")
	if !errors.Is(err, ErrReferralAlreadyPaid) {
		t.Fatalf("err = %v, want ErrReferralAlreadyPaid", err)
	}
	if repo.referrals["ref-1"].Status != domain.ReferralPaid {
		t.Error("a paid referral must stay paid")
	}
}

func TestCancelLostRaceRejected(t *testing.T) {
	repo := newAdminRepoStub()
	repo.referrals["ref-1"] = &domain.Referral{ID: "ref-1", Status: domain.ReferralQualified}
	repo.cancelResult = false
	admin := newTestAdmin(repo, newPayoutRepoStub())

	if err := admin.CancelReferral(context.Background(), "ref-1"); !errors.Is(err, ErrReferralAlreadyPaid) {
		t.Fatalf("err = %v, want ErrReferralAlreadyPaid when the swap finds zero rows", err)
	}
}

func TestCancelUnknownReferral(t *testing.T) {
	admin := newTestAdmin(newAdminRepoStub(), newPayoutRepoStub())

	if err := admin.CancelReferral(context.Background(), "missing"); !errors.Is(err, store.ErrReferralNotFound) {
		t.Fatalf("err = %v, want ErrReferralNotFound", err)
	}
}

func TestForceSchedulePayout(t *testing.T) {
	repo := newAdminRepoStub()
	repo.referrals["ref-1"] = &domain.Referral{ID: "ref-1", Status: domain.ReferralQualified}
	admin := newTestAdmin(repo, newPayoutRepoStub())

	result, err := admin.ForceSchedulePayout(context.Background(), "ref-1")
	if err != nil {
		t.Fatal(err)
	}
	if result == nil {
		t.Fatal("force-scheduling must trigger a batch run")
	}
	if len(repo.dueNowCalls) != 1 || repo.dueNowCalls[0] != "ref-1" {
		t.Errorf("dueNowCalls = %v, want the target referral pulled forward", repo.dueNowCalls)
	}
}

func TestForceScheduleUnknownReferral(t *testing.T) {
	repo := newAdminRepoStub()
	admin := newTestAdmin(repo, newPayoutRepoStub())

	if _, err := admin.ForceSchedulePayout(context.Background(), "missing"); !errors.Is(err, store.ErrReferralNotFound) {
		t.Fatalf("err = %v, want ErrReferralNotFound", err)
	}
	if len(repo.dueNowCalls) != 0 {
		t.Error("an unknown referral must not be rescheduled")
	}
}
