// Package scheduler drives the Jalali-calendar notification jobs.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"donor-bot/internal/jalali"
	"donor-bot/internal/messages"
	"donor-bot/internal/metrics"
	"donor-bot/internal/repo"
	"donor-bot/internal/report"
)

// Job names, also the keys of the job_runs table.
const (
	JobDonation = "donation_due"
	JobReminder = "payment_reminder"
	JobReport   = "monthly_report"
)

// Gateway sends outbound messages on behalf of the jobs.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, data io.Reader) error
}

// Calendar provides Jalali wall-clock time. Satisfied by *jalali.Clock.
type Calendar interface {
	Today() jalali.Date
	Now() time.Time
	Location() *time.Location
}

// Config carries the trigger days and hours, all in the bot timezone.
type Config struct {
	DonationDay int
	ReminderDay int
	ReportDay   int
	NotifyHour  int
	ReportHour  int
	AdminChatID int64
}

// Scheduler runs the monthly notification jobs.
type Scheduler struct {
	store    repo.Store
	gateway  Gateway
	calendar Calendar
	renderer *report.Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
}

// New builds a scheduler.
func New(store repo.Store, gateway Gateway, calendar Calendar, renderer *report.Renderer, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		store:    store,
		gateway:  gateway,
		calendar: calendar,
		renderer: renderer,
		metrics:  m,
		logger:   logger.With("component", "scheduler"),
		cfg:      cfg,
	}
}

// Start launches the daily wake-up loops. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, s.cfg.NotifyHour, func(ctx context.Context) {
		s.record(JobDonation, s.RunDonationDue)(ctx)
		s.record(JobReminder, s.RunReminder)(ctx)
	})
	go s.loop(ctx, s.cfg.ReportHour, s.record(JobReport, s.RunReport))
}

func (s *Scheduler) loop(ctx context.Context, hour int, run func(context.Context)) {
	for {
		timer := time.NewTimer(time.Until(s.nextWake(hour)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			run(ctx)
		}
	}
}

// nextWake returns the next occurrence of hour o'clock in the bot timezone.
func (s *Scheduler) nextWake(hour int) time.Time {
	now := s.calendar.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, s.calendar.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) record(job string, run func(context.Context, bool) (int, error)) func(context.Context) {
	return func(ctx context.Context) {
		sent, err := run(ctx, false)
		if err != nil {
			s.metrics.SchedulerRuns.WithLabelValues(job, "error").Inc()
			s.metrics.Errors.WithLabelValues("scheduler").Inc()
			s.logger.Error("job failed", "job", job, "error", err)
			return
		}
		s.metrics.SchedulerRuns.WithLabelValues(job, "ok").Inc()
		s.metrics.SchedulerSent.WithLabelValues(job).Add(float64(sent))
	}
}

// shouldRun applies the day-of-month and already-ran-today guards.
func (s *Scheduler) shouldRun(ctx context.Context, job string, day int, force bool) (jalali.Date, bool, error) {
	today := s.calendar.Today()
	if force {
		return today, true, nil
	}
	if today.Day != day {
		return today, false, nil
	}
	last, err := s.store.GetJobRun(ctx, job)
	if err != nil {
		return today, false, err
	}
	if last != nil && *last == today {
		s.logger.Debug("job already ran today", "job", job, "date", today.Format())
		return today, false, nil
	}
	return today, true, nil
}

// RunDonationDue sends every bound donor the monthly due notice. It returns
// the number of notices delivered.
func (s *Scheduler) RunDonationDue(ctx context.Context, force bool) (int, error) {
	today, ok, err := s.shouldRun(ctx, JobDonation, s.cfg.DonationDay, force)
	if err != nil || !ok {
		return 0, err
	}

	donors, err := s.store.ListBoundDonors(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, donor := range donors {
		text := messages.DonationReminder(donor.FullName, donor.DonationAmount, donor.DonationLink)
		if err := s.gateway.SendText(ctx, *donor.ChatID, text); err != nil {
			s.logger.Error("donation notice delivery", "donor_id", donor.ID, "error", err)
			continue
		}
		sent++
	}

	if err := s.store.RecordJobRun(ctx, JobDonation, today); err != nil {
		return sent, err
	}
	s.logger.Info("donation notices sent", "count", sent, "date", today.Format())
	return sent, nil
}

// RunReminder nudges donors with a pending or failed payment this month.
// Each donor is reminded at most once per run.
func (s *Scheduler) RunReminder(ctx context.Context, force bool) (int, error) {
	today, ok, err := s.shouldRun(ctx, JobReminder, s.cfg.ReminderDay, force)
	if err != nil || !ok {
		return 0, err
	}

	unsettled, err := s.store.ListUnsettledPayments(ctx, today.Month, today.Year)
	if err != nil {
		return 0, err
	}

	sent := 0
	reminded := make(map[int64]bool)
	for _, payment := range unsettled {
		if reminded[payment.DonorID] {
			continue
		}
		reminded[payment.DonorID] = true

		donor, err := s.store.GetDonorByID(ctx, payment.DonorID)
		if err != nil {
			s.logger.Error("resolve payment donor", "donor_id", payment.DonorID, "error", err)
			continue
		}
		if !donor.Bound() {
			continue
		}
		text := messages.PastDueReminder(donor.FullName, donor.DonationAmount, donor.DonationLink)
		if err := s.gateway.SendText(ctx, *donor.ChatID, text); err != nil {
			s.logger.Error("reminder delivery", "donor_id", donor.ID, "error", err)
			continue
		}
		sent++
	}

	if err := s.store.RecordJobRun(ctx, JobReminder, today); err != nil {
		return sent, err
	}
	s.logger.Info("reminders sent", "count", sent, "date", today.Format())
	return sent, nil
}

// RunReport delivers the month's summary to the admin chat as text plus
// Excel and PDF attachments. The sent count is 1 when the report went out.
func (s *Scheduler) RunReport(ctx context.Context, force bool) (int, error) {
	today, ok, err := s.shouldRun(ctx, JobReport, s.cfg.ReportDay, force)
	if err != nil || !ok {
		return 0, err
	}
	if s.cfg.AdminChatID == 0 {
		s.logger.Warn("monthly report skipped, no admin configured")
		return 0, nil
	}

	rows, err := s.store.MonthlySummary(ctx, today.Month, today.Year)
	if err != nil {
		return 0, err
	}

	var sb strings.Builder
	sb.WriteString(messages.ReportHeader(today.Month, today.Year))
	for _, row := range rows {
		sb.WriteString(messages.ReportLine(row.FullName, row.DonationAmount, row.PaymentStatus))
		sb.WriteString("\n")
	}
	if err := s.gateway.SendText(ctx, s.cfg.AdminChatID, sb.String()); err != nil {
		return 0, fmt.Errorf("send report summary: %w", err)
	}

	start := time.Now()
	xlsx, err := s.renderer.Excel(today.Month, today.Year, rows)
	if err != nil {
		return 0, err
	}
	s.metrics.ReportLatency.WithLabelValues("xlsx").Observe(time.Since(start).Seconds())
	if err := s.gateway.SendDocument(ctx, s.cfg.AdminChatID, report.ExcelFilename(today.Month, today.Year), xlsx); err != nil {
		return 0, fmt.Errorf("send xlsx report: %w", err)
	}

	start = time.Now()
	pdf, err := s.renderer.PDF(today.Month, today.Year, rows)
	if err != nil {
		return 0, err
	}
	s.metrics.ReportLatency.WithLabelValues("pdf").Observe(time.Since(start).Seconds())
	if err := s.gateway.SendDocument(ctx, s.cfg.AdminChatID, report.PDFFilename(today.Month, today.Year), pdf); err != nil {
		return 0, fmt.Errorf("send pdf report: %w", err)
	}

	if err := s.store.RecordJobRun(ctx, JobReport, today); err != nil {
		return 1, err
	}
	s.logger.Info("monthly report sent", "rows", len(rows), "date", today.Format())
	return 1, nil
}
