/**
 * @description
 * Grace-period expiry sweep. A user whose grace window elapses with no
 * further webhook activity would otherwise keep full access until the
 * provider happens to send another event; this periodic sweep closes
 * that gap by downgrading every lapsed user in one pass.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gabrielzhin/App-sub001/internal/domain"
)

// SweepRepository defines the database operations the sweep needs.
type SweepRepository interface {
	DowngradeLapsedUsers(ctx context.Context, now time.Time) ([]string, error)
}

// GraceSweeper downgrades users whose grace period has silently elapsed.
type GraceSweeper struct {
	repo      SweepRepository
	publisher EventPublisher
	logger    *slog.Logger
}

// NewGraceSweeper creates a new grace-period sweeper.
func NewGraceSweeper(repo SweepRepository, publisher EventPublisher, logger *slog.Logger) *GraceSweeper {
	return &GraceSweeper{repo: repo, publisher: publisher, logger: logger}
}

// Sweep restricts every past_due user whose grace window has closed and
// returns how many were downgraded.
func (s *GraceSweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	userIDs, err := s.repo.DowngradeLapsedUsers(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to downgrade lapsed users: %w", err)
	}

	for _, userID := range userIDs {
		s.logger.Info("grace period elapsed, user restricted", "user_id", userID)
		if s.publisher == nil {
			continue
		}
		event := domain.ModeChangedEvent{UserID: userID, Mode: domain.ModeRestricted, Timestamp: now}
		if err := s.publisher.Publish(ctx, "billing_events", "billing.mode_changed", event); err != nil {
			s.logger.Warn("failed to publish mode change event", "user_id", userID, "error", err)
		}
	}

	return len(userIDs), nil
}
