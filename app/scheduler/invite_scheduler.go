// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	businessflow "github.com/glowdesk/invite-engine/business_flow"
	"github.com/glowdesk/invite-engine/config"
	"github.com/glowdesk/invite-engine/repository"
	"github.com/glowdesk/invite-engine/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InviteScheduler periodically checks for scheduled campaigns whose time has
// arrived and hands them to the campaign flow for dispatch.
type InviteScheduler struct {
	campaignRepo repository.InviteCampaignRepository
	campaignFlow businessflow.InviteCampaignFlow
	logger       *log.Logger
	interval     time.Duration
	batchSize    int
}

func NewInviteScheduler(
	campaignRepo repository.InviteCampaignRepository,
	campaignFlow businessflow.InviteCampaignFlow,
	schedCfg config.SchedulerConfig,
	logCfg config.LoggingConfig,
) *InviteScheduler {
	interval := schedCfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	batchSize := schedCfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	return &InviteScheduler{
		campaignRepo: campaignRepo,
		campaignFlow: campaignFlow,
		logger:       newSchedulerLogger(logCfg),
		interval:     interval,
		batchSize:    batchSize,
	}
}

// newSchedulerLogger configures a logger that writes to stdout and, when file
// output is enabled, to a rotated log file alongside the application log.
func newSchedulerLogger(cfg config.LoggingConfig) *log.Logger {
	var w io.Writer = os.Stdout
	if cfg.Output == "file" || cfg.Output == "both" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Output == "file" {
			w = rotated
		} else {
			w = io.MultiWriter(os.Stdout, rotated)
		}
	}
	// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
	return log.New(w, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *InviteScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *InviteScheduler) runOnce(ctx context.Context) {
	due, err := s.campaignRepo.ListDueScheduled(ctx, utils.UTCNow(), s.batchSize)
	if err != nil {
		s.logger.Printf("scheduler: list due campaigns failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Printf("scheduler: found %d due campaigns", len(due))

	for _, campaign := range due {
		if ctx.Err() != nil {
			return
		}
		if err := s.campaignFlow.LaunchDue(ctx, campaign); err != nil {
			// LaunchDue uses a status transition as its claim; a lost race
			// with another instance surfaces here and is safe to skip.
			s.logger.Printf("scheduler: launch campaign %s failed: %v", campaign.UUID, err)
			continue
		}
		s.logger.Printf("scheduler: launched campaign %s (%q)", campaign.UUID, campaign.Title)
	}
}
