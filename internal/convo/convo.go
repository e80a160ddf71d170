// Package convo implements the donor conversation state machine.
package convo

import (
	"context"
	"io"
)

// Event kinds delivered by the transport layer.
const (
	KindText    = "text"
	KindPhoto   = "photo"
	KindCommand = "command"
	KindAction  = "action"
)

// Inline button actions.
const (
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

// Event is one normalized incoming Telegram update.
type Event struct {
	Kind   string
	ChatID int64

	// Text payload for KindText.
	Text string

	// Command name without the leading slash, plus its arguments.
	Command string
	Args    []string

	// Transport file reference of the largest photo size.
	PhotoRef string

	// Inline button action and its payment id.
	Action    string
	PaymentID int64
}

// Gateway sends outbound messages. Implemented by the Telegram client; tests
// substitute a recording fake.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, data io.Reader) error
	// SendApprovalPrompt posts the proof photo with approve/deny buttons
	// carrying the payment id.
	SendApprovalPrompt(ctx context.Context, chatID int64, fileRef, caption string, paymentID int64) error
	FetchFile(ctx context.Context, fileRef string) (io.ReadCloser, error)
}

// BlobStore archives proof images.
type BlobStore interface {
	Save(r io.Reader, ext string) (string, error)
	Open(ref string) (io.ReadCloser, error)
}

// Jobs exposes the scheduled jobs for manual triggering. Each run returns
// the number of notifications sent.
type Jobs interface {
	RunDonationDue(ctx context.Context, force bool) (int, error)
	RunReminder(ctx context.Context, force bool) (int, error)
	RunReport(ctx context.Context, force bool) (int, error)
}
