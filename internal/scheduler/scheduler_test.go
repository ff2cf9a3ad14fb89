package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/medpos/internal/config"
	"github.com/mamadbah2/medpos/internal/domain/models"
)

type stubReporting struct {
	message string
	err     error
	days    []time.Time
}

func (s *stubReporting) GenerateDailyReport(_ context.Context, day time.Time) (models.DailySalesReport, string, error) {
	s.days = append(s.days, day)
	return models.DailySalesReport{}, s.message, s.err
}

type stubNotifier struct {
	to, body string
	calls    int
}

func (s *stubNotifier) SendReceipt(context.Context, models.Invoice) error { return nil }

func (s *stubNotifier) SendText(_ context.Context, to, body string) error {
	s.to, s.body = to, body
	s.calls++
	return nil
}

func TestRunDailyReportSendsToRecipient(t *testing.T) {
	rep := &stubReporting{message: "Sales (2025-06-10): 2 invoices"}
	n := &stubNotifier{}
	s := NewScheduler(config.ReportingConfig{CronSchedule: "0 21 * * *", Recipient: "8918233696"}, time.UTC, rep, n, nil)

	s.RunDailyReport(context.Background(), time.Date(2025, time.June, 10, 21, 0, 0, 0, time.UTC))

	if n.calls != 1 || n.to != "8918233696" || n.body != rep.message {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestRunDailyReportSkipsSendOnFailure(t *testing.T) {
	rep := &stubReporting{err: errors.New("store down")}
	n := &stubNotifier{}
	s := NewScheduler(config.ReportingConfig{CronSchedule: "0 21 * * *", Recipient: "8918233696"}, time.UTC, rep, n, nil)

	s.RunDailyReport(context.Background(), time.Now())

	if n.calls != 0 {
		t.Fatalf("no message expected when the report fails")
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(config.ReportingConfig{CronSchedule: "not a schedule"}, time.UTC, &stubReporting{}, nil, nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatalf("expected invalid cron expression to be rejected")
	}
}
