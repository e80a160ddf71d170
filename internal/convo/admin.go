package convo

import (
	"context"
	"strings"

	"donor-bot/internal/messages"
	"donor-bot/internal/report"
)

func (e *Engine) isAdmin(chatID int64) bool {
	return e.cfg.AdminChatID != 0 && chatID == e.cfg.AdminChatID
}

// cmdReport sends the current month's summary. The admin gets the in-chat
// listing plus the workbook; verified donors get the workbook only.
func (e *Engine) cmdReport(ctx context.Context, ev Event) error {
	if !e.isAdmin(ev.ChatID) {
		if donor := e.requireVerified(ctx, ev.ChatID); donor == nil {
			return nil
		}
	}

	today := e.calendar.Today()
	rows, err := e.store.MonthlySummary(ctx, today.Month, today.Year)
	if err != nil {
		return err
	}

	if e.isAdmin(ev.ChatID) {
		var sb strings.Builder
		sb.WriteString(messages.ReportHeader(today.Month, today.Year))
		for _, row := range rows {
			sb.WriteString(messages.ReportLine(row.FullName, row.DonationAmount, row.PaymentStatus))
			sb.WriteString("\n")
		}
		if err := e.send(ctx, ev.ChatID, sb.String()); err != nil {
			return err
		}
	}

	buf, err := e.renderer.Excel(today.Month, today.Year, rows)
	if err != nil {
		e.metrics.Errors.WithLabelValues("report").Inc()
		return err
	}
	return e.gateway.SendDocument(ctx, ev.ChatID, report.ExcelFilename(today.Month, today.Year), buf)
}

// cmdBroadcast relays the admin's message to every bound donor.
func (e *Engine) cmdBroadcast(ctx context.Context, ev Event) error {
	if !e.isAdmin(ev.ChatID) {
		return e.send(ctx, ev.ChatID, messages.AdminOnly())
	}

	text := strings.TrimSpace(strings.Join(ev.Args, " "))
	if text == "" {
		return e.send(ctx, ev.ChatID, messages.BroadcastUsage())
	}

	donors, err := e.store.ListBoundDonors(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for _, donor := range donors {
		if err := e.send(ctx, *donor.ChatID, text); err != nil {
			e.logger.Error("broadcast delivery", "donor_id", donor.ID, "error", err)
			continue
		}
		sent++
	}
	e.logger.Info("broadcast sent", "recipients", sent, "of", len(donors))
	return e.send(ctx, ev.ChatID, messages.BroadcastSent(sent))
}

// cmdManualTrigger runs one of the scheduled jobs immediately, bypassing
// the day-of-month and already-ran-today guards.
func (e *Engine) cmdManualTrigger(ctx context.Context, ev Event) error {
	if !e.isAdmin(ev.ChatID) {
		return e.send(ctx, ev.ChatID, messages.AdminOnly())
	}
	if e.jobs == nil {
		e.logger.Error("manual trigger without scheduler wired")
		return e.send(ctx, ev.ChatID, messages.ManualTriggerUsage())
	}
	if len(ev.Args) == 0 {
		return e.send(ctx, ev.ChatID, messages.ManualTriggerUsage())
	}

	job := strings.ToLower(ev.Args[0])
	var err error
	switch job {
	case "donation":
		_, err = e.jobs.RunDonationDue(ctx, true)
	case "reminder":
		_, err = e.jobs.RunReminder(ctx, true)
	case "report":
		_, err = e.jobs.RunReport(ctx, true)
	default:
		return e.send(ctx, ev.ChatID, messages.ManualTriggerUsage())
	}
	if err != nil {
		e.metrics.Errors.WithLabelValues("scheduler").Inc()
		return err
	}
	return e.send(ctx, ev.ChatID, messages.ManualTriggerDone(job))
}
