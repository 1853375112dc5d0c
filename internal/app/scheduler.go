/**
 * @description
 * Cron scheduler setup for the payout batch and the grace-period sweep.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/Gabrielzhin/App-sub001/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	runner  *PayoutRunner
	sweeper *GraceSweeper
	logger  *slog.Logger
	config  config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(runner *PayoutRunner, sweeper *GraceSweeper, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:    c,
		runner:  runner,
		sweeper: sweeper,
		logger:  logger,
		config:  cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.PayoutJobSchedule, s.runPayoutJob); err != nil {
		s.logger.Error("failed to schedule payout job", "error", err)
	} else {
		s.logger.Info("scheduled payout job", "schedule", s.config.PayoutJobSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.GraceSweepSchedule, s.runGraceSweep); err != nil {
		s.logger.Error("failed to schedule grace sweep job", "error", err)
	} else {
		s.logger.Info("scheduled grace sweep job", "schedule", s.config.GraceSweepSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runPayoutJob() {
	s.logger.Info("starting scheduled payout job")
	result, err := s.runner.Run(context.Background())
	if err != nil {
		s.logger.Error("payout job failed", "error", err)
		return
	}
	s.logger.Info("payout job finished", "processed", result.Processed, "failed", result.Failed)
}

func (s *Scheduler) runGraceSweep() {
	s.logger.Info("starting grace sweep job")
	downgraded, err := s.sweeper.Sweep(context.Background())
	if err != nil {
		s.logger.Error("grace sweep job failed", "error", err)
		return
	}
	s.logger.Info("grace sweep job finished", "downgraded", downgraded)
}
