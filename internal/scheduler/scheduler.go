package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/config"
	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/service/notify"
)

// ReportGenerator produces the daily sales summary.
type ReportGenerator interface {
	GenerateDailyReport(ctx context.Context, day time.Time) (models.DailySalesReport, string, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	reporting ReportGenerator
	notifier  notify.Notifier
	cfg       config.ReportingConfig
	location  *time.Location
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance. notifier may be nil, in which case
// reports are only stored and logged.
func NewScheduler(cfg config.ReportingConfig, location *time.Location, reporting ReportGenerator, notifier notify.Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}

	// Standard 5-field cron expressions evaluated in the shop timezone.
	c := cron.New(cron.WithLocation(location))

	return &Scheduler{
		cron:      c,
		reporting: reporting,
		notifier:  notifier,
		cfg:       cfg,
		location:  location,
		logger:    logger,
	}
}

// Start registers the daily report job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sendDailyReport); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendDailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s.RunDailyReport(ctx, time.Now().In(s.location))
}

// RunDailyReport generates the report for day and sends it to the configured recipient.
func (s *Scheduler) RunDailyReport(ctx context.Context, day time.Time) {
	s.logger.Info("generating daily report")

	_, message, err := s.reporting.GenerateDailyReport(ctx, day)
	if err != nil {
		s.logger.Error("failed to generate daily report", zap.Error(err))
		return
	}

	if s.notifier == nil || s.cfg.Recipient == "" {
		s.logger.Info("daily report ready", zap.String("report", message))
		return
	}

	if err := s.notifier.SendText(ctx, s.cfg.Recipient, message); err != nil {
		s.logger.Error("failed to send daily report", zap.Error(err))
	} else {
		s.logger.Info("daily report sent successfully")
	}
}
