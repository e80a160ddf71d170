package repo

import (
	"context"
	"errors"
	"io/fs"

	"donor-bot/internal/jalali"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("repo: not found")

// Store defines the interface for data persistence.
type Store interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Donors
	CountDonors(ctx context.Context) (int64, error)
	SeedDonors(ctx context.Context, donors []DonorSeed) error
	GetDonorByID(ctx context.Context, id int64) (*Donor, error)
	GetDonorByPIN(ctx context.Context, pinCode string) (*Donor, error)
	GetDonorByNumericPIN(ctx context.Context, value int64) (*Donor, error)
	GetDonorByChatID(ctx context.Context, chatID int64) (*Donor, error)
	BindChatIdentity(ctx context.Context, donorID, chatID int64) error
	UnbindChatIdentity(ctx context.Context, chatID int64) error
	SetDonorStatus(ctx context.Context, donorID int64, status string) error
	ListBoundDonors(ctx context.Context) ([]Donor, error)

	// Payments
	CreatePayment(ctx context.Context, payment Payment) (*Payment, error)
	GetPaymentByID(ctx context.Context, id int64) (*Payment, error)
	SetPaymentStatus(ctx context.Context, id int64, status string) error
	ListPaymentsByDonor(ctx context.Context, donorID int64) ([]Payment, error)
	ListUnsettledPayments(ctx context.Context, month, year int) ([]Payment, error)
	MonthlySummary(ctx context.Context, month, year int) ([]SummaryRow, error)

	// Approvals (write-only audit log)
	CreatePendingApproval(ctx context.Context, donorID int64) (int64, error)

	// Scheduler bookkeeping
	GetJobRun(ctx context.Context, job string) (*jalali.Date, error)
	RecordJobRun(ctx context.Context, job string, day jalali.Date) error
}
