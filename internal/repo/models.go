package repo

import "time"

// Donor lifecycle statuses.
const (
	DonorUnverified   = "unverified"
	DonorVerified     = "verified"
	DonorPendingAdmin = "pending_admin"
)

// Payment statuses.
const (
	PaymentPending  = "pending"
	PaymentApproved = "approved"
	PaymentFailed   = "failed"
)

// Donor represents a row in the donors table.
type Donor struct {
	ID             int64
	PinCode        string
	FullName       string
	ChatID         *int64
	DonationAmount string
	DonationLink   string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Bound reports whether the donor has a chat identity attached.
func (d *Donor) Bound() bool {
	return d.ChatID != nil
}

// Payment represents a row in the payments table.
type Payment struct {
	ID          int64
	DonorID     int64
	JalaliMonth int
	JalaliYear  int
	Status      string
	ImageRef    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PendingApproval is a write-only audit record of an approval request.
type PendingApproval struct {
	ID        int64
	DonorID   int64
	Status    string
	CreatedAt time.Time
}

// SummaryRow is one line of the monthly report: every chat-bound donor
// left-joined with their payment for the month, defaulting to pending.
type SummaryRow struct {
	FullName       string
	DonationAmount string
	PaymentStatus  string
}

// DonorSeed carries one donor row from the seed import.
type DonorSeed struct {
	PinCode        string
	FullName       string
	DonationAmount string
	DonationLink   string
}
