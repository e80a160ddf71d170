package convo

import (
	"context"
	"errors"
	"fmt"

	"donor-bot/internal/messages"
	"donor-bot/internal/repo"
	"donor-bot/internal/session"
)

// handlePhoto archives a proof image, records the pending payment for the
// current Jalali month and forwards the image to the admin for a decision.
func (e *Engine) handlePhoto(ctx context.Context, ev Event) error {
	donor := e.requireVerified(ctx, ev.ChatID)
	if donor == nil {
		return nil
	}

	file, err := e.gateway.FetchFile(ctx, ev.PhotoRef)
	if err != nil {
		e.metrics.Errors.WithLabelValues("convo").Inc()
		return fmt.Errorf("fetch proof photo: %w", err)
	}
	defer file.Close()

	ref, err := e.blobs.Save(file, "jpg")
	if err != nil {
		e.metrics.Errors.WithLabelValues("convo").Inc()
		return fmt.Errorf("archive proof photo: %w", err)
	}

	today := e.calendar.Today()
	payment, err := e.store.CreatePayment(ctx, repo.Payment{
		DonorID:     donor.ID,
		JalaliMonth: today.Month,
		JalaliYear:  today.Year,
		Status:      repo.PaymentPending,
		ImageRef:    &ref,
	})
	if err != nil {
		return err
	}
	if _, err := e.store.CreatePendingApproval(ctx, donor.ID); err != nil {
		return err
	}

	if err := e.sessions.Put(ctx, &session.Session{
		ChatID: ev.ChatID,
		State:  session.StateAuthenticated,
	}); err != nil {
		return err
	}

	e.logger.Info("proof submitted",
		"donor_id", donor.ID,
		"payment_id", payment.ID,
		"period", fmt.Sprintf("%d/%02d", today.Year, today.Month))

	if e.cfg.AdminChatID == 0 {
		e.logger.Warn("no admin configured, proof awaits manual review", "payment_id", payment.ID)
		return e.send(ctx, ev.ChatID, messages.ProofReceivedNoAdmin())
	}

	caption := messages.AdminApprovalRequest(donor.FullName, donor.DonationAmount, payment.ID)
	if err := e.gateway.SendApprovalPrompt(ctx, e.cfg.AdminChatID, ev.PhotoRef, caption, payment.ID); err != nil {
		e.metrics.Errors.WithLabelValues("convo").Inc()
		e.logger.Error("notify admin", "payment_id", payment.ID, "error", err)
	}
	return e.send(ctx, ev.ChatID, messages.ProofReceived())
}

// handleAction applies an admin approve/deny decision from an inline button.
func (e *Engine) handleAction(ctx context.Context, ev Event) error {
	if e.cfg.AdminChatID == 0 || ev.ChatID != e.cfg.AdminChatID {
		e.logger.Warn("decision from non-admin chat ignored", "chat_id", ev.ChatID)
		return nil
	}

	var approved bool
	switch ev.Action {
	case ActionApprove:
		approved = true
	case ActionDeny:
		approved = false
	default:
		e.logger.Warn("unknown action", "action", ev.Action)
		return nil
	}
	return e.Decide(ctx, ev.PaymentID, approved)
}

// Decide records a payment verdict and notifies the donor when possible.
// Deciding an already settled payment simply overwrites the verdict.
func (e *Engine) Decide(ctx context.Context, paymentID int64, approved bool) error {
	payment, err := e.store.GetPaymentByID(ctx, paymentID)
	if errors.Is(err, repo.ErrNotFound) {
		e.logger.Warn("decision for unknown payment", "payment_id", paymentID)
		return nil
	}
	if err != nil {
		return err
	}

	donor, err := e.store.GetDonorByID(ctx, payment.DonorID)
	if errors.Is(err, repo.ErrNotFound) {
		e.logger.Warn("decision for payment with no donor", "payment_id", paymentID)
		return nil
	}
	if err != nil {
		return err
	}

	status := repo.PaymentFailed
	verdict := "deny"
	if approved {
		status = repo.PaymentApproved
		verdict = "approve"
	}
	if err := e.store.SetPaymentStatus(ctx, payment.ID, status); err != nil {
		return err
	}
	e.metrics.PaymentDecisions.WithLabelValues(verdict).Inc()
	e.logger.Info("payment decided", "payment_id", payment.ID, "verdict", verdict)

	if e.cfg.AdminChatID != 0 {
		if err := e.send(ctx, e.cfg.AdminChatID, messages.DecisionRecorded(approved)); err != nil {
			e.logger.Error("ack admin decision", "payment_id", payment.ID, "error", err)
		}
	}

	if !donor.Bound() {
		// Donor logged out since submitting, nothing to notify.
		return nil
	}

	text := messages.PaymentDenied()
	if approved {
		text = messages.PaymentApproved()
	}
	return e.send(ctx, *donor.ChatID, text)
}
