package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"donor-bot/internal/jalali"
)

// PostgresStore provides typed access to a Postgres database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres opens a new connection pool to the database.
func NewPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	r := &PostgresStore{
		pool:   pool,
		logger: logger.With("component", "repo_postgres"),
	}

	if err := r.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the connection pool.
func (r *PostgresStore) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping ensures the database is reachable.
func (r *PostgresStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations applies the postgres/ migrations in lexicographical order.
func (r *PostgresStore) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	sub, err := fs.Sub(filesystem, "postgres")
	if err != nil {
		return fmt.Errorf("open postgres migrations: %w", err)
	}
	return ApplyMigrations(ctx, r.pool, sub)
}

// WithTx executes fn within a database transaction.
func (r *PostgresStore) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, fn)
}

// -- Donors --

func (r *PostgresStore) CountDonors(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM donors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count donors: %w", err)
	}
	return n, nil
}

func (r *PostgresStore) SeedDonors(ctx context.Context, donors []DonorSeed) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		const q = `
INSERT INTO donors (pin_code, full_name, donation_amount, donation_link, status)
VALUES ($1, $2, $3, $4, $5);
`
		for _, d := range donors {
			if _, err := tx.Exec(ctx, q, d.PinCode, d.FullName, d.DonationAmount, d.DonationLink, DonorUnverified); err != nil {
				return fmt.Errorf("seed donor %q: %w", d.PinCode, err)
			}
		}
		return nil
	})
}

func (r *PostgresStore) GetDonorByID(ctx context.Context, id int64) (*Donor, error) {
	q := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1 LIMIT 1;`
	d, err := scanDonor(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get donor %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get donor by id: %w", err)
	}
	return d, nil
}

func (r *PostgresStore) GetDonorByPIN(ctx context.Context, pinCode string) (*Donor, error) {
	q := `SELECT ` + donorColumns + ` FROM donors WHERE pin_code = $1 LIMIT 1;`
	d, err := scanDonor(r.pool.QueryRow(ctx, q, pinCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get donor by pin: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get donor by pin: %w", err)
	}
	return d, nil
}

func (r *PostgresStore) GetDonorByNumericPIN(ctx context.Context, value int64) (*Donor, error) {
	q := `
SELECT ` + donorColumns + `
FROM donors
WHERE pin_code ~ '^[0-9]+$' AND pin_code::bigint = $1
LIMIT 1;
`
	d, err := scanDonor(r.pool.QueryRow(ctx, q, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get donor by numeric pin: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get donor by numeric pin: %w", err)
	}
	return d, nil
}

func (r *PostgresStore) GetDonorByChatID(ctx context.Context, chatID int64) (*Donor, error) {
	q := `SELECT ` + donorColumns + ` FROM donors WHERE chat_id = $1 LIMIT 1;`
	d, err := scanDonor(r.pool.QueryRow(ctx, q, chatID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get donor by chat id: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get donor by chat id: %w", err)
	}
	return d, nil
}

func (r *PostgresStore) BindChatIdentity(ctx context.Context, donorID, chatID int64) error {
	const q = `UPDATE donors SET chat_id = $2, updated_at = NOW() WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, q, donorID, chatID)
	if err != nil {
		return fmt.Errorf("bind chat identity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("bind chat identity donor %d: %w", donorID, ErrNotFound)
	}
	return nil
}

func (r *PostgresStore) UnbindChatIdentity(ctx context.Context, chatID int64) error {
	const q = `UPDATE donors SET chat_id = NULL, updated_at = NOW() WHERE chat_id = $1;`
	ct, err := r.pool.Exec(ctx, q, chatID)
	if err != nil {
		return fmt.Errorf("unbind chat identity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("unbind chat identity %d: %w", chatID, ErrNotFound)
	}
	return nil
}

func (r *PostgresStore) SetDonorStatus(ctx context.Context, donorID int64, status string) error {
	const q = `UPDATE donors SET status = $2, updated_at = NOW() WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, q, donorID, status)
	if err != nil {
		return fmt.Errorf("set donor status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("set donor status %d: %w", donorID, ErrNotFound)
	}
	return nil
}

func (r *PostgresStore) ListBoundDonors(ctx context.Context) ([]Donor, error) {
	q := `SELECT ` + donorColumns + ` FROM donors WHERE chat_id IS NOT NULL ORDER BY full_name;`
	rows, err := r.pool.Query(ctx, q)
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

func (r *PostgresStore) CreatePayment(ctx context.Context, payment Payment) (*Payment, error) {
	q := `
INSERT INTO payments (donor_id, jalali_month, jalali_year, status, image_ref)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + paymentColumns + `;
`
	row := r.pool.QueryRow(ctx, q,
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

func (r *PostgresStore) GetPaymentByID(ctx context.Context, id int64) (*Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 LIMIT 1;`
	p, err := scanPayment(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get payment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return p, nil
}

func (r *PostgresStore) SetPaymentStatus(ctx context.Context, id int64, status string) error {
	const q = `UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("set payment status %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresStore) ListPaymentsByDonor(ctx context.Context, donorID int64) ([]Payment, error) {
	q := `
SELECT ` + paymentColumns + `
FROM payments
WHERE donor_id = $1
ORDER BY jalali_year DESC, jalali_month DESC, id DESC;
`
	rows, err := r.pool.Query(ctx, q, donorID)
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

func (r *PostgresStore) ListUnsettledPayments(ctx context.Context, month, year int) ([]Payment, error) {
	q := `
SELECT ` + paymentColumns + `
FROM payments
WHERE jalali_month = $1 AND jalali_year = $2 AND status IN ($3, $4)
ORDER BY id;
`
	rows, err := r.pool.Query(ctx, q, month, year, PaymentPending, PaymentFailed)
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

func (r *PostgresStore) MonthlySummary(ctx context.Context, month, year int) ([]SummaryRow, error) {
	const q = `
SELECT
    d.full_name,
    d.donation_amount,
    COALESCE(p.status, $1) AS payment_status
FROM donors d
LEFT JOIN payments p ON d.id = p.donor_id
    AND p.jalali_month = $2 AND p.jalali_year = $3
WHERE d.chat_id IS NOT NULL
ORDER BY d.full_name;
`
	rows, err := r.pool.Query(ctx, q, PaymentPending, month, year)
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

func (r *PostgresStore) CreatePendingApproval(ctx context.Context, donorID int64) (int64, error) {
	const q = `INSERT INTO pending_approvals (donor_id) VALUES ($1) RETURNING id;`
	var id int64
	if err := r.pool.QueryRow(ctx, q, donorID).Scan(&id); err != nil {
		return 0, fmt.Errorf("create pending approval: %w", err)
	}
	return id, nil
}

// -- Job runs --

func (r *PostgresStore) GetJobRun(ctx context.Context, job string) (*jalali.Date, error) {
	const q = `SELECT jalali_year, jalali_month, jalali_day FROM job_runs WHERE job = $1 LIMIT 1;`
	var d jalali.Date
	err := r.pool.QueryRow(ctx, q, job).Scan(&d.Year, &d.Month, &d.Day)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job run: %w", err)
	}
	return &d, nil
}

func (r *PostgresStore) RecordJobRun(ctx context.Context, job string, day jalali.Date) error {
	const q = `
INSERT INTO job_runs (job, jalali_year, jalali_month, jalali_day)
VALUES ($1, $2, $3, $4)
ON CONFLICT (job) DO UPDATE SET
    jalali_year = EXCLUDED.jalali_year,
    jalali_month = EXCLUDED.jalali_month,
    jalali_day = EXCLUDED.jalali_day,
    updated_at = NOW();
`
	if _, err := r.pool.Exec(ctx, q, job, day.Year, day.Month, day.Day); err != nil {
		return fmt.Errorf("record job run: %w", err)
	}
	return nil
}
