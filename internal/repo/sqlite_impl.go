package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"donor-bot/internal/jalali"
)

const donorColumns = "id, pin_code, full_name, chat_id, donation_amount, donation_link, status, created_at, updated_at"
const paymentColumns = "id, donor_id, jalali_month, jalali_year, status, image_ref, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (*Donor, error) {
	var d Donor
	err := row.Scan(&d.ID, &d.PinCode, &d.FullName, &d.ChatID, &d.DonationAmount, &d.DonationLink, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.DonorID, &p.JalaliMonth, &p.JalaliYear, &p.Status, &p.ImageRef, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// -- Donors --

func (r *SQLiteStore) CountDonors(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM donors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count donors: %w", err)
	}
	return n, nil
}

func (r *SQLiteStore) SeedDonors(ctx context.Context, donors []DonorSeed) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback()

	const q = `
INSERT INTO donors (pin_code, full_name, donation_amount, donation_link, status)
VALUES (?, ?, ?, ?, ?);
`
	for _, d := range donors {
		if _, err := tx.ExecContext(ctx, q, d.PinCode, d.FullName, d.DonationAmount, d.DonationLink, DonorUnverified); err != nil {
			return fmt.Errorf("seed donor %q: %w", d.PinCode, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}

func (r *SQLiteStore) GetDonorByID(ctx context.Context, id int64) (*Donor, error) {
	q := `SELECT ` + donorColumns + ` FROM donors WHERE id = ? LIMIT 1;`
	d, err := scanDonor(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get donor %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get donor by id: %w", err)
	}
	return d, nil
}

func (r *SQLiteStore) GetDonorByPIN(ctx context.Context, pinCode string) (*Donor, error) {
	q := `SELECT ` + donorColumns + ` FROM donors WHERE pin_code = ? LIMIT 1;`
	d, err := scanDonor(r.db.QueryRowContext(ctx, q, pinCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get donor by pin: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get donor by pin: %w", err)
	}
	return d, nil
}

// GetDonorByNumericPIN matches all-digit pin codes by integer value, so a
// donor stored as "021" is found for input "21" and vice versa.
func (r *SQLiteStore) GetDonorByNumericPIN(ctx context.Context, value int64) (*Donor, error) {
	q := `
SELECT ` + donorColumns + `
FROM donors
WHERE pin_code != '' AND pin_code NOT GLOB '*[^0-9]*' AND CAST(pin_code AS INTEGER) = ?
LIMIT 1;
`
	d, err := scanDonor(r.db.QueryRowContext(ctx, q, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get donor by numeric pin: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get donor by numeric pin: %w", err)
	}
	return d, nil
}

func (r *SQLiteStore) GetDonorByChatID(ctx context.Context, chatID int64) (*Donor, error) {
	q := `SELECT ` + donorColumns + ` FROM donors WHERE chat_id = ? LIMIT 1;`
	d, err := scanDonor(r.db.QueryRowContext(ctx, q, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get donor by chat id: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get donor by chat id: %w", err)
	}
	return d, nil
}

func (r *SQLiteStore) BindChatIdentity(ctx context.Context, donorID, chatID int64) error {
	const q = `UPDATE donors SET chat_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q, chatID, donorID)
	if err != nil {
		return fmt.Errorf("bind chat identity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bind chat identity donor %d: %w", donorID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteStore) UnbindChatIdentity(ctx context.Context, chatID int64) error {
	const q = `UPDATE donors SET chat_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE chat_id = ?;`
	res, err := r.db.ExecContext(ctx, q, chatID)
	if err != nil {
		return fmt.Errorf("unbind chat identity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unbind chat identity %d: %w", chatID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteStore) SetDonorStatus(ctx context.Context, donorID int64, status string) error {
	const q = `UPDATE donors SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q, status, donorID)
	if err != nil {
		return fmt.Errorf("set donor status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set donor status %d: %w", donorID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteStore) ListBoundDonors(ctx context.Context) ([]Donor, error) {
	q := `SELECT ` + donorColumns + ` FROM donors WHERE chat_id IS NOT NULL ORDER BY full_name;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list bound donors: %w", err)
	}
	defer rows.Close()

	var donors []Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bound donor: %w", err)
		}
		donors = append(donors, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bound donors: %w", err)
	}
	return donors, nil
}

// -- Payments --

func (r *SQLiteStore) CreatePayment(ctx context.Context, payment Payment) (*Payment, error) {
	q := `
INSERT INTO payments (donor_id, jalali_month, jalali_year, status, image_ref)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + paymentColumns + `;
`
	row := r.db.QueryRowContext(ctx, q,
		payment.DonorID,
		payment.JalaliMonth,
		payment.JalaliYear,
		payment.Status,
		payment.ImageRef,
	)
	inserted, err := scanPayment(row)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return inserted, nil
}

func (r *SQLiteStore) GetPaymentByID(ctx context.Context, id int64) (*Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ? LIMIT 1;`
	p, err := scanPayment(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return p, nil
}

func (r *SQLiteStore) SetPaymentStatus(ctx context.Context, id int64, status string) error {
	const q = `UPDATE payments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set payment status %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteStore) ListPaymentsByDonor(ctx context.Context, donorID int64) ([]Payment, error) {
	q := `
SELECT ` + paymentColumns + `
FROM payments
WHERE donor_id = ?
ORDER BY jalali_year DESC, jalali_month DESC, id DESC;
`
	rows, err := r.db.QueryContext(ctx, q, donorID)
	if err != nil {
		return nil, fmt.Errorf("list payments by donor: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

func (r *SQLiteStore) ListUnsettledPayments(ctx context.Context, month, year int) ([]Payment, error) {
	q := `
SELECT ` + paymentColumns + `
FROM payments
WHERE jalali_month = ? AND jalali_year = ? AND status IN (?, ?)
ORDER BY id;
`
	rows, err := r.db.QueryContext(ctx, q, month, year, PaymentPending, PaymentFailed)
	if err != nil {
		return nil, fmt.Errorf("list unsettled payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unsettled payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unsettled payments: %w", err)
	}
	return payments, nil
}

func (r *SQLiteStore) MonthlySummary(ctx context.Context, month, year int) ([]SummaryRow, error) {
	const q = `
SELECT
    d.full_name,
    d.donation_amount,
    COALESCE(p.status, ?) AS payment_status
FROM donors d
LEFT JOIN payments p ON d.id = p.donor_id
    AND p.jalali_month = ? AND p.jalali_year = ?
WHERE d.chat_id IS NOT NULL
ORDER BY d.full_name;
`
	rows, err := r.db.QueryContext(ctx, q, PaymentPending, month, year)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}
	defer rows.Close()

	var summary []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.FullName, &row.DonationAmount, &row.PaymentStatus); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary = append(summary, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return summary, nil
}

// -- Approvals --

func (r *SQLiteStore) CreatePendingApproval(ctx context.Context, donorID int64) (int64, error) {
	const q = `INSERT INTO pending_approvals (donor_id) VALUES (?) RETURNING id;`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, donorID).Scan(&id); err != nil {
		return 0, fmt.Errorf("create pending approval: %w", err)
	}
	return id, nil
}

// -- Job runs --

func (r *SQLiteStore) GetJobRun(ctx context.Context, job string) (*jalali.Date, error) {
	const q = `SELECT jalali_year, jalali_month, jalali_day FROM job_runs WHERE job = ? LIMIT 1;`
	var d jalali.Date
	err := r.db.QueryRowContext(ctx, q, job).Scan(&d.Year, &d.Month, &d.Day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job run: %w", err)
	}
	return &d, nil
}

func (r *SQLiteStore) RecordJobRun(ctx context.Context, job string, day jalali.Date) error {
	const q = `
INSERT INTO job_runs (job, jalali_year, jalali_month, jalali_day)
VALUES (?, ?, ?, ?)
ON CONFLICT (job) DO UPDATE SET
    jalali_year = excluded.jalali_year,
    jalali_month = excluded.jalali_month,
    jalali_day = excluded.jalali_day,
    updated_at = CURRENT_TIMESTAMP;
`
	if _, err := r.db.ExecContext(ctx, q, job, day.Year, day.Month, day.Day); err != nil {
		return fmt.Errorf("record job run: %w", err)
	}
	return nil
}
