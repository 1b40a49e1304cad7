/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:

	Persists customers, rentals and the append-only charge ledger, and
	applies a BillingResult as ONE atomic read-modify-write. In production
	the same patterns apply to PostgreSQL - only minor dialect differences.

KEY TABLES:

	customers:       balance, free weeks, week price (billing-relevant state)
	rentals:         due date + version (the optimistic-concurrency anchor)
	transactions:    immutable ledger of balance movements
	overdue_reports: output of the daily overdue scan

OPTIMISTIC CONCURRENCY:

	The billing engines compute against a snapshot read before the call.
	ApplyResult commits the outcome in a single database transaction whose
	UPDATEs are conditioned on the snapshot's due date and balance. If a
	concurrent operation moved either, zero rows match and the commit fails
	with billing.ErrStaleRental - the caller re-reads and recomputes. Two
	concurrent extensions can therefore never double-charge or bill against
	a stale due date.

APPEND-ONLY ENFORCEMENT:

	No UPDATE or DELETE ever touches the transactions table. Corrections
	are reversal entries.

WAL MODE:

	SQLite is opened with WAL for better concurrency: readers don't block,
	single writer at a time, better crash recovery.

USAGE:

	store, err := sqlite.New("./data/rentals.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

SEE ALSO:
  - billing/ledger.go:      Store interface this implements
  - billing/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
)

// Store implements billing.Store plus the customer/rental persistence the
// API layer needs.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer anyway, and a pooled
	// ":memory:" database would otherwise be a different database per
	// connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Customers (billing-relevant state only)
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0.00',
		free_weeks INTEGER NOT NULL DEFAULT 0 CHECK (free_weeks >= 0),
		week_price TEXT NOT NULL,
		payday_changed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Rentals (due_date + version anchor the optimistic guard)
	CREATE TABLE IF NOT EXISTS rentals (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		due_date TEXT NOT NULL,
		consecutive_weeks INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rentals_customer
		ON rentals(customer_id);
	CREATE INDEX IF NOT EXISTS idx_rentals_due_date
		ON rentals(due_date);

	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		rental_id TEXT,
		customer_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_customer
		ON transactions(customer_id, effective_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_rental
		ON transactions(rental_id) WHERE rental_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_idempotency
		ON transactions(idempotency_key) WHERE idempotency_key IS NOT NULL;

	-- Overdue reports (output of the daily scan)
	CREATE TABLE IF NOT EXISTS overdue_reports (
		id TEXT PRIMARY KEY,
		run_at TEXT NOT NULL,
		rental_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		due_date TEXT NOT NULL,
		days_late INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_overdue_reports_run
		ON overdue_reports(run_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORDS
// =============================================================================

// CustomerRecord is a stored customer.
type CustomerRecord struct {
	ID            billing.CustomerID
	Name          string
	Balance       billing.Money
	FreeWeeks     int
	WeekPrice     billing.Money
	PayDayChanged bool
	CreatedAt     time.Time
}

// RentalRecord is a stored rental.
type RentalRecord struct {
	ID               billing.RentalID
	CustomerID       billing.CustomerID
	DueDate          billing.Date
	ConsecutiveWeeks int
	Version          int
	CreatedAt        time.Time
}

// OverdueRow is one rental flagged by the overdue scan.
type OverdueRow struct {
	ID         string
	RunAt      time.Time
	RentalID   billing.RentalID
	CustomerID billing.CustomerID
	DueDate    billing.Date
	DaysLate   int
}

// =============================================================================
// CUSTOMERS
// =============================================================================

// SaveCustomer inserts or updates a customer record.
func (s *Store) SaveCustomer(ctx context.Context, c CustomerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO customers (id, name, balance, free_weeks, week_price, payday_changed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			balance = excluded.balance,
			free_weeks = excluded.free_weeks,
			week_price = excluded.week_price,
			payday_changed = excluded.payday_changed
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Balance.String(), c.FreeWeeks, c.WeekPrice.String(),
		boolInt(c.PayDayChanged), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

// GetCustomer returns a customer by ID.
func (s *Store) GetCustomer(ctx context.Context, id billing.CustomerID) (*CustomerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCustomer(ctx, s.db, id)
}

func (s *Store) getCustomer(ctx context.Context, db queryable, id billing.CustomerID) (*CustomerRecord, error) {
	query := `
		SELECT id, name, balance, free_weeks, week_price, payday_changed, created_at
		FROM customers WHERE id = ?
	`
	var (
		c         CustomerRecord
		balance   string
		weekPrice string
		payday    int
		createdAt string
	)
	err := db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &balance, &c.FreeWeeks, &weekPrice, &payday, &createdAt)
	if err == sql.ErrNoRows {
		return nil, billing.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	c.Balance = billing.MustParseMoney(balance)
	c.WeekPrice = billing.MustParseMoney(weekPrice)
	c.PayDayChanged = payday != 0
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

// ListCustomers returns all customers ordered by name.
func (s *Store) ListCustomers(ctx context.Context) ([]CustomerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, balance, free_weeks, week_price, payday_changed, created_at
		FROM customers ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []CustomerRecord
	for rows.Next() {
		var (
			c         CustomerRecord
			balance   string
			weekPrice string
			payday    int
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &balance, &c.FreeWeeks, &weekPrice, &payday, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		c.Balance = billing.MustParseMoney(balance)
		c.WeekPrice = billing.MustParseMoney(weekPrice)
		c.PayDayChanged = payday != 0
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// =============================================================================
// RENTALS
// =============================================================================

// SaveRental inserts a rental record.
func (s *Store) SaveRental(ctx context.Context, r RentalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rentals (id, customer_id, due_date, consecutive_weeks, version, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.CustomerID, r.DueDate.String(), r.ConsecutiveWeeks,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save rental: %w", err)
	}
	return nil
}

// GetRental returns a rental by ID.
func (s *Store) GetRental(ctx context.Context, id billing.RentalID) (*RentalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRental(ctx, s.db, id)
}

func (s *Store) getRental(ctx context.Context, db queryable, id billing.RentalID) (*RentalRecord, error) {
	query := `
		SELECT id, customer_id, due_date, consecutive_weeks, version, created_at
		FROM rentals WHERE id = ?
	`
	var (
		r         RentalRecord
		dueDate   string
		createdAt string
	)
	err := db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.CustomerID, &dueDate, &r.ConsecutiveWeeks, &r.Version, &createdAt)
	if err == sql.ErrNoRows {
		return nil, billing.ErrRentalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	r.DueDate, err = billing.ParseDate(dueDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt due date for rental %s: %w", id, err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// ListRentals returns all rentals ordered by due date.
func (s *Store) ListRentals(ctx context.Context) ([]RentalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, due_date, consecutive_weeks, version, created_at
		FROM rentals ORDER BY due_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	defer rows.Close()

	var rentals []RentalRecord
	for rows.Next() {
		var (
			r         RentalRecord
			dueDate   string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.CustomerID, &dueDate, &r.ConsecutiveWeeks, &r.Version, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan rental: %w", err)
		}
		if r.DueDate, err = billing.ParseDate(dueDate); err != nil {
			return nil, fmt.Errorf("corrupt due date for rental %s: %w", r.ID, err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		rentals = append(rentals, r)
	}
	return rentals, rows.Err()
}

// LoadSnapshot reads the fresh rental+customer snapshot the billing
// engines compute against. Must be called immediately before each
// billing operation.
func (s *Store) LoadSnapshot(ctx context.Context, id billing.RentalID) (billing.RentalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rental, err := s.getRental(ctx, s.db, id)
	if err != nil {
		return billing.RentalSnapshot{}, err
	}
	customer, err := s.getCustomer(ctx, s.db, rental.CustomerID)
	if err != nil {
		return billing.RentalSnapshot{}, err
	}

	return billing.RentalSnapshot{
		ID:               rental.ID,
		DueDate:          rental.DueDate,
		ConsecutiveWeeks: rental.ConsecutiveWeeks,
		Customer: billing.CustomerSnapshot{
			ID:                  customer.ID,
			Balance:             customer.Balance,
			FreeWeeksAvailable:  customer.FreeWeeks,
			WeekPrice:           customer.WeekPrice,
			PayDayChangedBefore: customer.PayDayChanged,
		},
	}, nil
}

// =============================================================================
// ATOMIC RESULT APPLICATION
// =============================================================================

// ApplyResult commits a BillingResult in one database transaction:
// the due-date move, the balance update, the free-week decrement (if
// consumed) and the ledger entries. All UPDATEs are conditioned on the
// snapshot the result was computed from; any mismatch aborts with
// billing.ErrStaleRental and nothing is written.
func (s *Store) ApplyResult(ctx context.Context, snap billing.RentalSnapshot, result billing.BillingResult, entries []billing.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Due date moves only if nobody moved it since the snapshot read.
	res, err := tx.ExecContext(ctx, `
		UPDATE rentals SET due_date = ?, version = version + 1
		WHERE id = ? AND due_date = ?
	`, result.NewDueDate.String(), snap.ID, snap.DueDate.String())
	if err != nil {
		return fmt.Errorf("failed to update rental: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.getRental(ctx, tx, snap.ID); err != nil {
			return err
		}
		return billing.ErrStaleRental
	}

	// Balance and free weeks are guarded the same way. The free-week
	// decrement is at most 1 and can never take the count negative.
	decrement := 0
	if result.FreeWeekConsumed {
		decrement = 1
	}
	markShift := 0
	if result.AddedDays > 0 {
		markShift = 1
	}
	res, err = tx.ExecContext(ctx, `
		UPDATE customers
		SET balance = ?,
		    free_weeks = free_weeks - ?,
		    payday_changed = CASE WHEN ? = 1 THEN 1 ELSE payday_changed END
		WHERE id = ? AND balance = ? AND free_weeks >= ?
	`, result.NewBalance.String(), decrement, markShift,
		snap.Customer.ID, snap.Customer.Balance.String(), decrement)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrStaleRental
	}

	for _, e := range entries {
		if err := s.appendEntry(ctx, tx, e); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecordPayment credits a payment onto the customer balance and appends
// the matching ledger entry, atomically. This is the side channel the
// extension flow uses to resolve a shortfall before commit.
func (s *Store) RecordPayment(ctx context.Context, e billing.Entry) error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("payment amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	customer, err := s.getCustomer(ctx, tx, e.CustomerID)
	if err != nil {
		return err
	}
	newBalance := customer.Balance.Add(e.Amount)

	res, err := tx.ExecContext(ctx, `
		UPDATE customers SET balance = ? WHERE id = ? AND balance = ?
	`, newBalance.String(), customer.ID, customer.Balance.String())
	if err != nil {
		return fmt.Errorf("failed to credit payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrStaleRental
	}

	if err := s.appendEntry(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// LEDGER (billing.Store interface)
// =============================================================================

// Append adds an entry to the ledger.
func (s *Store) Append(ctx context.Context, e billing.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendEntry(ctx, s.db, e)
}

func (s *Store) appendEntry(ctx context.Context, db executor, e billing.Entry) error {
	query := `
		INSERT INTO transactions
		(id, rental_id, customer_id, amount, entry_type, effective_at, reason, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		e.ID,
		nullString(string(e.RentalID)),
		e.CustomerID,
		e.Amount.String(),
		e.Type,
		e.EffectiveAt.String(),
		e.Reason,
		nullString(e.IdempotencyKey),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// AppendBatch adds multiple entries atomically.
func (s *Store) AppendBatch(ctx context.Context, entries []billing.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if err := s.appendEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load returns all entries for a customer.
func (s *Store) Load(ctx context.Context, customerID billing.CustomerID) ([]billing.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, rental_id, customer_id, amount, entry_type, effective_at, reason, idempotency_key
		FROM transactions
		WHERE customer_id = ?
		ORDER BY effective_at ASC, created_at ASC
	`
	return s.queryEntries(ctx, query, customerID)
}

// LoadRange returns entries in a date range.
func (s *Store) LoadRange(ctx context.Context, customerID billing.CustomerID, from, to billing.Date) ([]billing.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, rental_id, customer_id, amount, entry_type, effective_at, reason, idempotency_key
		FROM transactions
		WHERE customer_id = ? AND effective_at >= ? AND effective_at <= ?
		ORDER BY effective_at ASC, created_at ASC
	`
	return s.queryEntries(ctx, query, customerID, from.String(), to.String())
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]billing.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []billing.Entry
	for rows.Next() {
		var (
			e              billing.Entry
			rentalID       sql.NullString
			amount         string
			effectiveAt    string
			reason         sql.NullString
			idempotencyKey sql.NullString
		)
		if err := rows.Scan(&e.ID, &rentalID, &e.CustomerID, &amount, &e.Type,
			&effectiveAt, &reason, &idempotencyKey); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.RentalID = billing.RentalID(rentalID.String)
		e.Amount = billing.MustParseMoney(amount)
		e.EffectiveAt, _ = billing.ParseDate(effectiveAt)
		e.Reason = reason.String
		e.IdempotencyKey = idempotencyKey.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// OVERDUE REPORTS
// =============================================================================

// SaveOverdueRows records the output of one overdue scan.
func (s *Store) SaveOverdueRows(ctx context.Context, rowsIn []OverdueRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rowsIn {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO overdue_reports (id, run_at, rental_id, customer_id, due_date, days_late, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, row.ID, row.RunAt.UTC().Format(time.RFC3339), row.RentalID, row.CustomerID,
			row.DueDate.String(), row.DaysLate, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to save overdue row: %w", err)
		}
	}
	return tx.Commit()
}

// ListOverdueRows returns the rows of the most recent overdue scan.
func (s *Store) ListOverdueRows(ctx context.Context) ([]OverdueRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_at, rental_id, customer_id, due_date, days_late
		FROM overdue_reports
		WHERE run_at = (SELECT MAX(run_at) FROM overdue_reports)
		ORDER BY days_late DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue rows: %w", err)
	}
	defer rows.Close()

	var result []OverdueRow
	for rows.Next() {
		var (
			row     OverdueRow
			runAt   string
			dueDate string
		)
		if err := rows.Scan(&row.ID, &runAt, &row.RentalID, &row.CustomerID, &dueDate, &row.DaysLate); err != nil {
			return nil, fmt.Errorf("failed to scan overdue row: %w", err)
		}
		row.RunAt, _ = time.Parse(time.RFC3339, runAt)
		row.DueDate, _ = billing.ParseDate(dueDate)
		result = append(result, row)
	}
	return result, rows.Err()
}

// Reset wipes all tables. Dev/test only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM transactions;
		DELETE FROM overdue_reports;
		DELETE FROM rentals;
		DELETE FROM customers;
	`)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
