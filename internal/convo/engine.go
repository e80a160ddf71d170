package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"donor-bot/internal/jalali"
	"donor-bot/internal/messages"
	"donor-bot/internal/metrics"
	"donor-bot/internal/pin"
	"donor-bot/internal/repo"
	"donor-bot/internal/report"
	"donor-bot/internal/session"
)

// Calendar provides the current Jalali date. Satisfied by *jalali.Clock.
type Calendar interface {
	Today() jalali.Date
}

// Config carries engine settings.
type Config struct {
	// AdminChatID receives approval prompts; zero means no admin is
	// configured and proof submissions degrade gracefully.
	AdminChatID int64
}

// Engine routes incoming events through the conversation state machine.
type Engine struct {
	store    repo.Store
	sessions session.Store
	gateway  Gateway
	blobs    BlobStore
	calendar Calendar
	renderer *report.Renderer
	jobs     Jobs
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New builds a conversation engine.
func New(store repo.Store, sessions session.Store, gateway Gateway, blobs BlobStore, calendar Calendar, renderer *report.Renderer, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Engine {
	return &Engine{
		store:    store,
		sessions: sessions,
		gateway:  gateway,
		blobs:    blobs,
		calendar: calendar,
		renderer: renderer,
		metrics:  m,
		logger:   logger.With("component", "convo"),
		cfg:      cfg,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// SetJobs wires the scheduler after construction; the scheduler itself
// depends on the gateway, so the cycle is broken here.
func (e *Engine) SetJobs(jobs Jobs) {
	e.jobs = jobs
}

// Process handles one event. Events for the same chat are serialized.
func (e *Engine) Process(ctx context.Context, ev Event) error {
	lock := e.chatLock(ev.ChatID)
	lock.Lock()
	defer lock.Unlock()

	e.metrics.TGIncomingUpdates.WithLabelValues(ev.Kind).Inc()

	switch ev.Kind {
	case KindText:
		return e.handleText(ctx, ev)
	case KindPhoto:
		return e.handlePhoto(ctx, ev)
	case KindCommand:
		return e.handleCommand(ctx, ev)
	case KindAction:
		return e.handleAction(ctx, ev)
	default:
		e.logger.Warn("unknown event kind", "kind", ev.Kind, "chat_id", ev.ChatID)
		return nil
	}
}

func (e *Engine) chatLock(chatID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[chatID] = lock
	}
	return lock
}

func (e *Engine) send(ctx context.Context, chatID int64, text string) error {
	if err := e.gateway.SendText(ctx, chatID, text); err != nil {
		e.metrics.Errors.WithLabelValues("convo").Inc()
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// boundDonor resolves the donor bound to a chat, nil when the chat is
// unknown.
func (e *Engine) boundDonor(ctx context.Context, chatID int64) (*repo.Donor, error) {
	donor, err := e.store.GetDonorByChatID(ctx, chatID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return donor, nil
}

func (e *Engine) handleText(ctx context.Context, ev Event) error {
	donor, err := e.boundDonor(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	if donor != nil {
		return e.handleBoundText(ctx, ev, donor)
	}

	sess, err := e.sessions.Get(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	switch {
	case sess == nil || sess.State == session.StateAwaitingPin:
		return e.handlePinEntry(ctx, ev)
	case sess.State == session.StateAwaitingConfirm:
		return e.handleConfirm(ctx, ev, sess)
	default:
		// Stale session with no binding behind it, start over.
		if err := e.sessions.Delete(ctx, ev.ChatID); err != nil {
			return err
		}
		return e.send(ctx, ev.ChatID, messages.PinRequest())
	}
}

func (e *Engine) handleBoundText(ctx context.Context, ev Event, donor *repo.Donor) error {
	if donor.Status == repo.DonorPendingAdmin {
		return e.send(ctx, ev.ChatID, messages.PendingAdminWait())
	}

	sess, err := e.sessions.Get(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	if sess != nil && sess.AwaitingProof {
		return e.send(ctx, ev.ChatID, messages.UploadPrompt())
	}
	return e.send(ctx, ev.ChatID, messages.MainMenu())
}

func (e *Engine) handlePinEntry(ctx context.Context, ev Event) error {
	code := pin.Normalize(ev.Text)
	if code == "" {
		e.metrics.Verifications.WithLabelValues("invalid").Inc()
		return e.send(ctx, ev.ChatID, messages.InvalidPin())
	}

	donor, err := e.store.GetDonorByPIN(ctx, code)
	if errors.Is(err, repo.ErrNotFound) && pin.IsDigits(code) {
		// Leading zeroes are a frequent typo, retry the code numerically.
		if value, perr := strconv.ParseInt(code, 10, 64); perr == nil {
			donor, err = e.store.GetDonorByNumericPIN(ctx, value)
		}
	}
	if errors.Is(err, repo.ErrNotFound) {
		e.metrics.Verifications.WithLabelValues("miss").Inc()
		return e.send(ctx, ev.ChatID, messages.InvalidPin())
	}
	if err != nil {
		return err
	}

	if donor.Bound() {
		e.metrics.Verifications.WithLabelValues("in_use").Inc()
		return e.send(ctx, ev.ChatID, messages.PinInUse())
	}

	if err := e.sessions.Put(ctx, &session.Session{
		ChatID:           ev.ChatID,
		State:            session.StateAwaitingConfirm,
		CandidateDonorID: donor.ID,
	}); err != nil {
		return err
	}
	return e.send(ctx, ev.ChatID, messages.VerificationRequest(donor.FullName))
}

var (
	confirmYes = map[string]bool{"بله": true, "بلی": true, "آره": true, "اره": true, "yes": true, "y": true}
	confirmNo  = map[string]bool{"خیر": true, "نه": true, "no": true, "n": true}
)

func (e *Engine) handleConfirm(ctx context.Context, ev Event, sess *session.Session) error {
	answer := strings.ToLower(strings.TrimSpace(ev.Text))
	switch {
	case confirmYes[answer]:
		return e.completeVerification(ctx, ev.ChatID, sess.CandidateDonorID)
	case confirmNo[answer]:
		if err := e.sessions.Put(ctx, &session.Session{ChatID: ev.ChatID, State: session.StateAwaitingPin}); err != nil {
			return err
		}
		return e.send(ctx, ev.ChatID, messages.PinRequest())
	default:
		donor, err := e.store.GetDonorByID(ctx, sess.CandidateDonorID)
		if err != nil {
			return e.send(ctx, ev.ChatID, messages.PinRequest())
		}
		return e.send(ctx, ev.ChatID, messages.VerificationRequest(donor.FullName))
	}
}

func (e *Engine) completeVerification(ctx context.Context, chatID, donorID int64) error {
	donor, err := e.store.GetDonorByID(ctx, donorID)
	if errors.Is(err, repo.ErrNotFound) {
		if err := e.sessions.Put(ctx, &session.Session{ChatID: chatID, State: session.StateAwaitingPin}); err != nil {
			return err
		}
		return e.send(ctx, chatID, messages.InvalidPin())
	}
	if err != nil {
		return err
	}

	// The code may have been claimed while the confirmation sat unanswered.
	if donor.Bound() {
		e.metrics.Verifications.WithLabelValues("in_use").Inc()
		if err := e.sessions.Put(ctx, &session.Session{ChatID: chatID, State: session.StateAwaitingPin}); err != nil {
			return err
		}
		return e.send(ctx, chatID, messages.PinInUse())
	}
	if other, err := e.boundDonor(ctx, chatID); err != nil {
		return err
	} else if other != nil {
		return e.send(ctx, chatID, messages.AlreadyBound())
	}

	if err := e.store.BindChatIdentity(ctx, donor.ID, chatID); err != nil {
		return err
	}
	if err := e.store.SetDonorStatus(ctx, donor.ID, repo.DonorVerified); err != nil {
		return err
	}
	if err := e.sessions.Put(ctx, &session.Session{ChatID: chatID, State: session.StateAuthenticated}); err != nil {
		return err
	}

	e.metrics.Verifications.WithLabelValues("success").Inc()
	e.logger.Info("donor verified", "donor_id", donor.ID, "chat_id", chatID)
	return e.send(ctx, chatID, messages.VerificationSuccess(donor.DonationLink, donor.DonationAmount))
}

func (e *Engine) handleCommand(ctx context.Context, ev Event) error {
	switch ev.Command {
	case "start":
		return e.cmdStart(ctx, ev)
	case "cancel":
		return e.cmdCancel(ctx, ev)
	case "logout":
		return e.cmdLogout(ctx, ev)
	case "card":
		if donor := e.requireVerified(ctx, ev.ChatID); donor == nil {
			return nil
		}
		return e.send(ctx, ev.ChatID, messages.CardInfo())
	case "link":
		donor := e.requireVerified(ctx, ev.ChatID)
		if donor == nil {
			return nil
		}
		return e.send(ctx, ev.ChatID, messages.DonationLink(donor.DonationLink))
	case "amount":
		donor := e.requireVerified(ctx, ev.ChatID)
		if donor == nil {
			return nil
		}
		return e.send(ctx, ev.ChatID, messages.DonationAmount(donor.DonationAmount))
	case "upload":
		return e.cmdUpload(ctx, ev)
	case "history":
		return e.cmdHistory(ctx, ev)
	case "report":
		return e.cmdReport(ctx, ev)
	case "broadcast":
		return e.cmdBroadcast(ctx, ev)
	case "manual_trigger":
		return e.cmdManualTrigger(ctx, ev)
	default:
		e.logger.Warn("unknown command", "command", ev.Command, "chat_id", ev.ChatID)
		return e.send(ctx, ev.ChatID, messages.MainMenu())
	}
}

func (e *Engine) cmdStart(ctx context.Context, ev Event) error {
	donor, err := e.boundDonor(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	if donor != nil {
		if donor.Status == repo.DonorPendingAdmin {
			return e.send(ctx, ev.ChatID, messages.PendingAdminWait())
		}
		return e.send(ctx, ev.ChatID, messages.MainMenu())
	}

	if err := e.sessions.Put(ctx, &session.Session{ChatID: ev.ChatID, State: session.StateAwaitingPin}); err != nil {
		return err
	}
	return e.send(ctx, ev.ChatID, messages.PinRequest())
}

func (e *Engine) cmdCancel(ctx context.Context, ev Event) error {
	if err := e.sessions.Delete(ctx, ev.ChatID); err != nil {
		return err
	}
	return e.send(ctx, ev.ChatID, messages.Cancelled())
}

func (e *Engine) cmdLogout(ctx context.Context, ev Event) error {
	donor, err := e.boundDonor(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	if donor == nil {
		return e.send(ctx, ev.ChatID, messages.NotLoggedIn())
	}

	if err := e.store.UnbindChatIdentity(ctx, ev.ChatID); err != nil {
		return err
	}
	if err := e.sessions.Delete(ctx, ev.ChatID); err != nil {
		return err
	}
	e.logger.Info("donor logged out", "donor_id", donor.ID, "chat_id", ev.ChatID)
	return e.send(ctx, ev.ChatID, messages.LoggedOut())
}

func (e *Engine) cmdUpload(ctx context.Context, ev Event) error {
	donor := e.requireVerified(ctx, ev.ChatID)
	if donor == nil {
		return nil
	}
	if err := e.sessions.Put(ctx, &session.Session{
		ChatID:        ev.ChatID,
		State:         session.StateAuthenticated,
		AwaitingProof: true,
	}); err != nil {
		return err
	}
	return e.send(ctx, ev.ChatID, messages.UploadPrompt())
}

func (e *Engine) cmdHistory(ctx context.Context, ev Event) error {
	donor := e.requireVerified(ctx, ev.ChatID)
	if donor == nil {
		return nil
	}

	payments, err := e.store.ListPaymentsByDonor(ctx, donor.ID)
	if err != nil {
		return err
	}
	if len(payments) == 0 {
		return e.send(ctx, ev.ChatID, messages.NoHistory())
	}

	var sb strings.Builder
	sb.WriteString(messages.HistoryHeader())
	for _, p := range payments {
		sb.WriteString(messages.HistoryLine(p.JalaliYear, p.JalaliMonth, p.Status))
	}
	return e.send(ctx, ev.ChatID, sb.String())
}

// requireVerified resolves the chat's donor for a protected command and
// sends the appropriate refusal itself when the chat does not qualify.
func (e *Engine) requireVerified(ctx context.Context, chatID int64) *repo.Donor {
	donor, err := e.boundDonor(ctx, chatID)
	if err != nil {
		e.logger.Error("resolve donor", "chat_id", chatID, "error", err)
		e.metrics.Errors.WithLabelValues("convo").Inc()
		return nil
	}
	if donor == nil {
		_ = e.send(ctx, chatID, messages.PinRequest())
		return nil
	}
	if donor.Status == repo.DonorPendingAdmin {
		_ = e.send(ctx, chatID, messages.PendingAdminWait())
		return nil
	}
	return donor
}
