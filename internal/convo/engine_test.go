package convo

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"donor-bot/internal/blob"
	"donor-bot/internal/jalali"
	"donor-bot/internal/messages"
	"donor-bot/internal/metrics"
	"donor-bot/internal/repo"
	"donor-bot/internal/report"
	"donor-bot/internal/session"
	"donor-bot/migrations"
)

const (
	adminChat = int64(9000)
	donorChat = int64(100)
)

type fixedCalendar struct{ today jalali.Date }

func (c fixedCalendar) Today() jalali.Date { return c.today }

type sentText struct {
	chatID int64
	text   string
}

type sentApproval struct {
	chatID    int64
	fileRef   string
	caption   string
	paymentID int64
}

type sentDoc struct {
	chatID   int64
	filename string
	size     int
}

type fakeGateway struct {
	texts     []sentText
	approvals []sentApproval
	docs      []sentDoc
	files     map[string]string
}

func (g *fakeGateway) SendText(_ context.Context, chatID int64, text string) error {
	g.texts = append(g.texts, sentText{chatID, text})
	return nil
}

func (g *fakeGateway) SendDocument(_ context.Context, chatID int64, filename string, data io.Reader) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	g.docs = append(g.docs, sentDoc{chatID, filename, buf.Len()})
	return nil
}

func (g *fakeGateway) SendApprovalPrompt(_ context.Context, chatID int64, fileRef, caption string, paymentID int64) error {
	g.approvals = append(g.approvals, sentApproval{chatID, fileRef, caption, paymentID})
	return nil
}

func (g *fakeGateway) FetchFile(_ context.Context, fileRef string) (io.ReadCloser, error) {
	content, ok := g.files[fileRef]
	if !ok {
		content = "image-bytes"
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

// lastText returns the most recent text sent to a chat.
func (g *fakeGateway) lastText(t *testing.T, chatID int64) string {
	t.Helper()
	for i := len(g.texts) - 1; i >= 0; i-- {
		if g.texts[i].chatID == chatID {
			return g.texts[i].text
		}
	}
	t.Fatalf("no text sent to chat %d", chatID)
	return ""
}

func newTestEngine(t *testing.T) (*Engine, *repo.SQLiteStore, *fakeGateway) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := repo.NewSQLite(ctx, filepath.Join(t.TempDir(), "convo.db"), logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.RunMigrations(ctx, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	err = store.SeedDonors(ctx, []repo.DonorSeed{
		{PinCode: "0042", FullName: "علی رضایی", DonationAmount: "500000", DonationLink: "https://pay.example/a"},
		{PinCode: "777", FullName: "مریم احمدی", DonationAmount: "250000", DonationLink: "https://pay.example/b"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	blobs, err := blob.NewDir(filepath.Join(t.TempDir(), "proofs"))
	if err != nil {
		t.Fatalf("blob dir: %v", err)
	}

	gw := &fakeGateway{files: map[string]string{}}
	engine := New(store, session.NewMemory(0), gw, blobs,
		fixedCalendar{jalali.Date{Year: 1404, Month: 5, Day: 15}},
		&report.Renderer{}, metrics.Registry("test"), logger,
		Config{AdminChatID: adminChat})
	return engine, store, gw
}

func process(t *testing.T, e *Engine, ev Event) {
	t.Helper()
	if err := e.Process(context.Background(), ev); err != nil {
		t.Fatalf("process %+v: %v", ev, err)
	}
}

// verify walks a chat through the full PIN verification flow.
func verify(t *testing.T, e *Engine, chatID int64, code string) {
	t.Helper()
	process(t, e, Event{Kind: KindCommand, Command: "start", ChatID: chatID})
	process(t, e, Event{Kind: KindText, ChatID: chatID, Text: code})
	process(t, e, Event{Kind: KindText, ChatID: chatID, Text: "بله"})
}

func TestVerificationFlow(t *testing.T) {
	engine, store, gw := newTestEngine(t)

	process(t, engine, Event{Kind: KindCommand, Command: "start", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.PinRequest() {
		t.Fatalf("start reply = %q", got)
	}

	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "0042"})
	if got := gw.lastText(t, donorChat); got != messages.VerificationRequest("علی رضایی") {
		t.Fatalf("pin reply = %q", got)
	}

	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "بله"})
	if got := gw.lastText(t, donorChat); !strings.Contains(got, "اطلاعات شما با موفقیت ثبت شد") {
		t.Fatalf("confirm reply = %q", got)
	}

	donor, err := store.GetDonorByChatID(context.Background(), donorChat)
	if err != nil {
		t.Fatalf("donor not bound: %v", err)
	}
	if donor.Status != repo.DonorVerified {
		t.Fatalf("status = %q", donor.Status)
	}
}

func TestVerificationPersianDigitsAndNumericFallback(t *testing.T) {
	engine, store, gw := newTestEngine(t)

	// Persian digits normalize to ASCII; "۴۲" then matches "0042" numerically.
	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "۴۲"})
	if got := gw.lastText(t, donorChat); got != messages.VerificationRequest("علی رضایی") {
		t.Fatalf("reply = %q", got)
	}
	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "بله"})

	donor, err := store.GetDonorByChatID(context.Background(), donorChat)
	if err != nil || donor.PinCode != "0042" {
		t.Fatalf("bound donor = %+v, err = %v", donor, err)
	}
}

func TestVerificationInvalidPin(t *testing.T) {
	engine, _, gw := newTestEngine(t)

	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "9999"})
	if got := gw.lastText(t, donorChat); got != messages.InvalidPin() {
		t.Fatalf("reply = %q", got)
	}
	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "   "})
	if got := gw.lastText(t, donorChat); got != messages.InvalidPin() {
		t.Fatalf("blank pin reply = %q", got)
	}
}

func TestVerificationDeclineRestartsPinEntry(t *testing.T) {
	engine, store, gw := newTestEngine(t)

	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "0042"})
	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "خیر"})
	if got := gw.lastText(t, donorChat); got != messages.PinRequest() {
		t.Fatalf("decline reply = %q", got)
	}

	// The other code still works afterwards.
	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "777"})
	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "بله"})
	donor, err := store.GetDonorByChatID(context.Background(), donorChat)
	if err != nil || donor.PinCode != "777" {
		t.Fatalf("bound donor = %+v, err = %v", donor, err)
	}
}

func TestVerificationUnrecognizedAnswerRepeatsQuestion(t *testing.T) {
	engine, _, gw := newTestEngine(t)

	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "0042"})
	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "شاید"})
	if got := gw.lastText(t, donorChat); got != messages.VerificationRequest("علی رضایی") {
		t.Fatalf("reply = %q", got)
	}
}

func TestVerificationPinInUse(t *testing.T) {
	engine, _, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")

	otherChat := int64(200)
	process(t, engine, Event{Kind: KindText, ChatID: otherChat, Text: "0042"})
	if got := gw.lastText(t, otherChat); got != messages.PinInUse() {
		t.Fatalf("reply = %q", got)
	}
}

func TestVerificationRaceOnConfirm(t *testing.T) {
	engine, _, gw := newTestEngine(t)
	chatA, chatB := int64(201), int64(202)

	// Both chats reach the confirmation step for the same code.
	process(t, engine, Event{Kind: KindText, ChatID: chatA, Text: "0042"})
	process(t, engine, Event{Kind: KindText, ChatID: chatB, Text: "0042"})

	process(t, engine, Event{Kind: KindText, ChatID: chatA, Text: "بله"})
	process(t, engine, Event{Kind: KindText, ChatID: chatB, Text: "بله"})

	if got := gw.lastText(t, chatB); got != messages.PinInUse() {
		t.Fatalf("late confirm reply = %q", got)
	}
}

func TestBoundChatTextShowsMenu(t *testing.T) {
	engine, _, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")

	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "سلام"})
	if got := gw.lastText(t, donorChat); got != messages.MainMenu() {
		t.Fatalf("reply = %q", got)
	}

	process(t, engine, Event{Kind: KindCommand, Command: "start", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.MainMenu() {
		t.Fatalf("start reply = %q", got)
	}
}

func TestMenuCommands(t *testing.T) {
	engine, _, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")

	process(t, engine, Event{Kind: KindCommand, Command: "card", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.CardInfo() {
		t.Fatalf("card reply = %q", got)
	}
	process(t, engine, Event{Kind: KindCommand, Command: "link", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.DonationLink("https://pay.example/a") {
		t.Fatalf("link reply = %q", got)
	}
	process(t, engine, Event{Kind: KindCommand, Command: "amount", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.DonationAmount("500000") {
		t.Fatalf("amount reply = %q", got)
	}
	process(t, engine, Event{Kind: KindCommand, Command: "history", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.NoHistory() {
		t.Fatalf("history reply = %q", got)
	}
}

func TestProtectedCommandWithoutBinding(t *testing.T) {
	engine, _, gw := newTestEngine(t)

	process(t, engine, Event{Kind: KindCommand, Command: "card", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.PinRequest() {
		t.Fatalf("reply = %q", got)
	}
}

func TestLogout(t *testing.T) {
	engine, store, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")

	process(t, engine, Event{Kind: KindCommand, Command: "logout", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.LoggedOut() {
		t.Fatalf("reply = %q", got)
	}

	// The profile survives but the binding is gone; the code is reusable.
	donor, err := store.GetDonorByPIN(context.Background(), "0042")
	if err != nil {
		t.Fatalf("donor gone after logout: %v", err)
	}
	if donor.Bound() {
		t.Fatal("chat still bound after logout")
	}

	process(t, engine, Event{Kind: KindCommand, Command: "logout", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.NotLoggedIn() {
		t.Fatalf("second logout reply = %q", got)
	}
}

func TestCancelClearsUploadPrompt(t *testing.T) {
	engine, _, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")

	process(t, engine, Event{Kind: KindCommand, Command: "upload", ChatID: donorChat})
	process(t, engine, Event{Kind: KindCommand, Command: "cancel", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.Cancelled() {
		t.Fatalf("cancel reply = %q", got)
	}

	// Text after cancel goes back to the menu instead of re-prompting
	// for the image.
	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "سلام"})
	if got := gw.lastText(t, donorChat); got != messages.MainMenu() {
		t.Fatalf("text reply = %q", got)
	}
}

func TestDirectProofSubmissionWithoutUploadCommand(t *testing.T) {
	engine, store, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")

	// A verified donor's photo is a proof even with no /upload first.
	process(t, engine, Event{Kind: KindPhoto, ChatID: donorChat, PhotoRef: "file-1"})
	if got := gw.lastText(t, donorChat); got != messages.ProofReceived() {
		t.Fatalf("photo reply = %q", got)
	}

	donor, _ := store.GetDonorByChatID(context.Background(), donorChat)
	payments, err := store.ListPaymentsByDonor(context.Background(), donor.ID)
	if err != nil || len(payments) != 1 {
		t.Fatalf("payments = %+v, err = %v", payments, err)
	}
	if payments[0].Status != repo.PaymentPending {
		t.Fatalf("status = %q", payments[0].Status)
	}
	if len(gw.approvals) != 1 || gw.approvals[0].paymentID != payments[0].ID {
		t.Fatalf("approvals = %+v", gw.approvals)
	}
}

func TestPhotoFromUnboundChatIgnored(t *testing.T) {
	engine, store, gw := newTestEngine(t)

	process(t, engine, Event{Kind: KindPhoto, ChatID: donorChat, PhotoRef: "file-1"})
	if got := gw.lastText(t, donorChat); got != messages.PinRequest() {
		t.Fatalf("reply = %q", got)
	}
	payments, _ := store.ListPaymentsByDonor(context.Background(), 1)
	if len(payments) != 0 {
		t.Fatalf("payment recorded for unbound chat: %+v", payments)
	}
}

func TestProofSubmission(t *testing.T) {
	engine, store, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")

	process(t, engine, Event{Kind: KindCommand, Command: "upload", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); got != messages.UploadPrompt() {
		t.Fatalf("upload reply = %q", got)
	}

	// Text during the upload flow re-prompts for the image.
	process(t, engine, Event{Kind: KindText, ChatID: donorChat, Text: "الان میفرستم"})
	if got := gw.lastText(t, donorChat); got != messages.UploadPrompt() {
		t.Fatalf("text during upload reply = %q", got)
	}

	process(t, engine, Event{Kind: KindPhoto, ChatID: donorChat, PhotoRef: "file-1"})
	if got := gw.lastText(t, donorChat); got != messages.ProofReceived() {
		t.Fatalf("photo reply = %q", got)
	}

	donor, _ := store.GetDonorByChatID(context.Background(), donorChat)
	payments, err := store.ListPaymentsByDonor(context.Background(), donor.ID)
	if err != nil || len(payments) != 1 {
		t.Fatalf("payments = %+v, err = %v", payments, err)
	}
	p := payments[0]
	if p.Status != repo.PaymentPending || p.JalaliYear != 1404 || p.JalaliMonth != 5 {
		t.Fatalf("payment = %+v", p)
	}
	if p.ImageRef == nil {
		t.Fatal("image ref missing")
	}

	// The archived blob holds the fetched bytes.
	rc, err := engine.blobs.Open(*p.ImageRef)
	if err != nil {
		t.Fatalf("open blob: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "image-bytes" {
		t.Fatalf("blob content = %q", data)
	}

	if len(gw.approvals) != 1 {
		t.Fatalf("approvals = %+v", gw.approvals)
	}
	ap := gw.approvals[0]
	if ap.chatID != adminChat || ap.fileRef != "file-1" || ap.paymentID != p.ID {
		t.Fatalf("approval = %+v", ap)
	}
	if !strings.Contains(ap.caption, "علی رضایی") {
		t.Fatalf("caption = %q", ap.caption)
	}
}

func TestProofSubmissionWithoutAdmin(t *testing.T) {
	engine, _, gw := newTestEngine(t)
	engine.cfg.AdminChatID = 0
	verify(t, engine, donorChat, "0042")

	process(t, engine, Event{Kind: KindCommand, Command: "upload", ChatID: donorChat})
	process(t, engine, Event{Kind: KindPhoto, ChatID: donorChat, PhotoRef: "file-1"})
	if got := gw.lastText(t, donorChat); got != messages.ProofReceivedNoAdmin() {
		t.Fatalf("reply = %q", got)
	}
	if len(gw.approvals) != 0 {
		t.Fatalf("approval sent with no admin: %+v", gw.approvals)
	}
}

func TestDecisionApprove(t *testing.T) {
	engine, store, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")
	process(t, engine, Event{Kind: KindCommand, Command: "upload", ChatID: donorChat})
	process(t, engine, Event{Kind: KindPhoto, ChatID: donorChat, PhotoRef: "file-1"})
	paymentID := gw.approvals[0].paymentID

	process(t, engine, Event{Kind: KindAction, ChatID: adminChat, Action: ActionApprove, PaymentID: paymentID})

	p, err := store.GetPaymentByID(context.Background(), paymentID)
	if err != nil || p.Status != repo.PaymentApproved {
		t.Fatalf("payment = %+v, err = %v", p, err)
	}
	if got := gw.lastText(t, donorChat); got != messages.PaymentApproved() {
		t.Fatalf("donor notice = %q", got)
	}
	if got := gw.lastText(t, adminChat); got != messages.DecisionRecorded(true) {
		t.Fatalf("admin ack = %q", got)
	}

	// History now shows the settled month.
	process(t, engine, Event{Kind: KindCommand, Command: "history", ChatID: donorChat})
	if got := gw.lastText(t, donorChat); !strings.Contains(got, "مرداد 1404") {
		t.Fatalf("history = %q", got)
	}
}

func TestDecisionDeny(t *testing.T) {
	engine, store, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")
	process(t, engine, Event{Kind: KindCommand, Command: "upload", ChatID: donorChat})
	process(t, engine, Event{Kind: KindPhoto, ChatID: donorChat, PhotoRef: "file-1"})
	paymentID := gw.approvals[0].paymentID

	process(t, engine, Event{Kind: KindAction, ChatID: adminChat, Action: ActionDeny, PaymentID: paymentID})

	p, _ := store.GetPaymentByID(context.Background(), paymentID)
	if p.Status != repo.PaymentFailed {
		t.Fatalf("status = %q", p.Status)
	}
	if got := gw.lastText(t, donorChat); got != messages.PaymentDenied() {
		t.Fatalf("donor notice = %q", got)
	}
}

func TestDecisionEdgeCases(t *testing.T) {
	engine, _, gw := newTestEngine(t)

	// Unknown payment ids and non-admin chats are ignored.
	process(t, engine, Event{Kind: KindAction, ChatID: adminChat, Action: ActionApprove, PaymentID: 12345})
	process(t, engine, Event{Kind: KindAction, ChatID: donorChat, Action: ActionApprove, PaymentID: 1})
	if len(gw.texts) != 0 {
		t.Fatalf("unexpected sends: %+v", gw.texts)
	}
}

func TestDecisionForLoggedOutDonor(t *testing.T) {
	engine, store, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")
	process(t, engine, Event{Kind: KindCommand, Command: "upload", ChatID: donorChat})
	process(t, engine, Event{Kind: KindPhoto, ChatID: donorChat, PhotoRef: "file-1"})
	paymentID := gw.approvals[0].paymentID

	process(t, engine, Event{Kind: KindCommand, Command: "logout", ChatID: donorChat})
	donorSends := len(gw.texts)

	process(t, engine, Event{Kind: KindAction, ChatID: adminChat, Action: ActionApprove, PaymentID: paymentID})

	p, _ := store.GetPaymentByID(context.Background(), paymentID)
	if p.Status != repo.PaymentApproved {
		t.Fatalf("status = %q", p.Status)
	}
	// Only the admin ack goes out; the donor has no chat anymore.
	for _, msg := range gw.texts[donorSends:] {
		if msg.chatID == donorChat {
			t.Fatalf("logged-out donor notified: %+v", msg)
		}
	}
}

// orphanPaymentStore serves a payment whose donor row no longer exists
// and records any status write that happens anyway.
type orphanPaymentStore struct {
	repo.Store
	statusWrites int
}

func (s *orphanPaymentStore) GetPaymentByID(context.Context, int64) (*repo.Payment, error) {
	return &repo.Payment{ID: 5, DonorID: 999, Status: repo.PaymentPending}, nil
}

func (s *orphanPaymentStore) GetDonorByID(context.Context, int64) (*repo.Donor, error) {
	return nil, repo.ErrNotFound
}

func (s *orphanPaymentStore) SetPaymentStatus(context.Context, int64, string) error {
	s.statusWrites++
	return nil
}

func TestDecisionWithoutDonorLeavesPaymentUntouched(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &orphanPaymentStore{}
	gw := &fakeGateway{}
	engine := New(store, session.NewMemory(0), gw, nil,
		fixedCalendar{jalali.Date{Year: 1404, Month: 5, Day: 15}},
		&report.Renderer{}, metrics.Registry("test"), logger,
		Config{AdminChatID: adminChat})

	if err := engine.Decide(context.Background(), 5, true); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if store.statusWrites != 0 {
		t.Fatalf("status written %d times for payment with no donor", store.statusWrites)
	}
	if len(gw.texts) != 0 {
		t.Fatalf("unexpected sends: %+v", gw.texts)
	}
}

func TestBroadcast(t *testing.T) {
	engine, _, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")
	verify(t, engine, 200, "777")

	process(t, engine, Event{Kind: KindCommand, Command: "broadcast", ChatID: adminChat, Args: []string{"سلام", "به", "همه"}})

	if got := gw.lastText(t, donorChat); got != "سلام به همه" {
		t.Fatalf("broadcast text = %q", got)
	}
	if got := gw.lastText(t, adminChat); got != messages.BroadcastSent(2) {
		t.Fatalf("broadcast ack = %q", got)
	}

	process(t, engine, Event{Kind: KindCommand, Command: "broadcast", ChatID: adminChat})
	if got := gw.lastText(t, adminChat); got != messages.BroadcastUsage() {
		t.Fatalf("usage reply = %q", got)
	}

	process(t, engine, Event{Kind: KindCommand, Command: "broadcast", ChatID: donorChat, Args: []string{"x"}})
	if got := gw.lastText(t, donorChat); got != messages.AdminOnly() {
		t.Fatalf("non-admin reply = %q", got)
	}
}

type fakeJobs struct {
	ran    []string
	forced []bool
}

func (j *fakeJobs) RunDonationDue(_ context.Context, force bool) (int, error) {
	j.ran = append(j.ran, "donation")
	j.forced = append(j.forced, force)
	return 1, nil
}

func (j *fakeJobs) RunReminder(_ context.Context, force bool) (int, error) {
	j.ran = append(j.ran, "reminder")
	j.forced = append(j.forced, force)
	return 1, nil
}

func (j *fakeJobs) RunReport(_ context.Context, force bool) (int, error) {
	j.ran = append(j.ran, "report")
	j.forced = append(j.forced, force)
	return 1, nil
}

func TestManualTrigger(t *testing.T) {
	engine, _, gw := newTestEngine(t)
	jobs := &fakeJobs{}
	engine.SetJobs(jobs)

	for _, job := range []string{"donation", "reminder", "report"} {
		process(t, engine, Event{Kind: KindCommand, Command: "manual_trigger", ChatID: adminChat, Args: []string{job}})
		if got := gw.lastText(t, adminChat); got != messages.ManualTriggerDone(job) {
			t.Fatalf("trigger %s reply = %q", job, got)
		}
	}
	if len(jobs.ran) != 3 {
		t.Fatalf("ran = %v", jobs.ran)
	}
	for _, forced := range jobs.forced {
		if !forced {
			t.Fatal("manual trigger must force the run")
		}
	}

	process(t, engine, Event{Kind: KindCommand, Command: "manual_trigger", ChatID: adminChat, Args: []string{"nonsense"}})
	if got := gw.lastText(t, adminChat); got != messages.ManualTriggerUsage() {
		t.Fatalf("bad job reply = %q", got)
	}
	process(t, engine, Event{Kind: KindCommand, Command: "manual_trigger", ChatID: donorChat, Args: []string{"report"}})
	if got := gw.lastText(t, donorChat); got != messages.AdminOnly() {
		t.Fatalf("non-admin reply = %q", got)
	}
}

func TestAdminReportCommand(t *testing.T) {
	engine, store, gw := newTestEngine(t)
	verify(t, engine, donorChat, "0042")

	donor, _ := store.GetDonorByChatID(context.Background(), donorChat)
	if _, err := store.CreatePayment(context.Background(), repo.Payment{
		DonorID: donor.ID, JalaliMonth: 5, JalaliYear: 1404, Status: repo.PaymentApproved,
	}); err != nil {
		t.Fatalf("create payment: %v", err)
	}

	process(t, engine, Event{Kind: KindCommand, Command: "report", ChatID: adminChat})
	if got := gw.lastText(t, adminChat); !strings.Contains(got, "علی رضایی") {
		t.Fatalf("report text = %q", got)
	}
	if len(gw.docs) != 1 || gw.docs[0].filename != "monthly_report_1404_05.xlsx" {
		t.Fatalf("docs = %+v", gw.docs)
	}

	// A verified donor receives only the workbook.
	docsBefore := len(gw.docs)
	process(t, engine, Event{Kind: KindCommand, Command: "report", ChatID: donorChat})
	if len(gw.docs) != docsBefore+1 || gw.docs[docsBefore].chatID != donorChat {
		t.Fatalf("donor report docs = %+v", gw.docs)
	}
}
