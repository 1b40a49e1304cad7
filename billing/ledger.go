/*
ledger.go - Append-only charge ledger

PURPOSE:

	Every movement on a customer's balance - week charges, late fees,
	payday-shift day adjustments, free-week credits, payments, manual
	corrections - is recorded as an immutable ledger entry. The persisted
	balance is a convenience; the ledger is how any balance is explained.

CRITICAL INVARIANTS:
 1. APPEND-ONLY: No Update, No Delete. EVER.
 2. IMMUTABLE: Once written, entries cannot be modified.
 3. IDEMPOTENT: Same idempotency key = same entry (no duplicates from
    retries or double-clicks).

CORRECTIONS:

	Mistakes are never edited. A reversal entry with the opposite sign is
	appended; both remain in the ledger and the history stays intact.

SIGN CONVENTION:

	Amount is the signed delta applied to the customer balance. Charges are
	negative, payments and free-week credits are positive.

SEE ALSO:
  - store/memory.go:  in-memory Store for tests and dev
  - store/sqlite:     production Store plus atomic result application
  - types.go:         BillingResult.Entries expands a result to entries
*/
package billing

import "context"

// =============================================================================
// ENTRY - One immutable balance movement
// =============================================================================

type EntryID string

type EntryType string

const (
	EntryWeekCharge     EntryType = "week_charge"      // weeks paid on an extension
	EntryLateFee        EntryType = "late_fee"         // capped overdue fee
	EntryDayAdjustment  EntryType = "day_adjustment"   // payday-shift day charge
	EntryFreeWeekCredit EntryType = "free_week_credit" // one week's price credited back
	EntryPayment        EntryType = "payment"          // money collected from the customer
	EntryAdjustment     EntryType = "adjustment"       // manual admin correction
	EntryReversal       EntryType = "reversal"         // undo of a previous entry
)

type Entry struct {
	ID         EntryID
	RentalID   RentalID
	CustomerID CustomerID

	// Signed delta applied to the customer balance.
	Amount Money

	Type        EntryType
	EffectiveAt Date
	Reason      string

	// Idempotency key; duplicate keys are rejected on append.
	IdempotencyKey string

	CreatedAt Date
}

// =============================================================================
// LEDGER - Append-only log over a Store
// =============================================================================

// Ledger is the source of truth for balance movements.
type Ledger interface {
	// Append adds an entry. Fails if the idempotency key exists.
	Append(ctx context.Context, e Entry) error

	// AppendBatch adds the entries of one billing operation atomically.
	AppendBatch(ctx context.Context, entries []Entry) error

	// Entries returns all entries for a customer, chronologically.
	Entries(ctx context.Context, customerID CustomerID) ([]Entry, error)

	// EntriesInRange returns entries with EffectiveAt in [from, to].
	EntriesInRange(ctx context.Context, customerID CustomerID, from, to Date) ([]Entry, error)

	// BalanceAt replays entries up to and including a date.
	BalanceAt(ctx context.Context, customerID CustomerID, at Date) (Money, error)
}

// Store persists ledger entries. APPEND-ONLY: no Update, no Delete.
type Store interface {
	Append(ctx context.Context, e Entry) error
	AppendBatch(ctx context.Context, entries []Entry) error
	Load(ctx context.Context, customerID CustomerID) ([]Entry, error)
	LoadRange(ctx context.Context, customerID CustomerID, from, to Date) ([]Entry, error)
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// DefaultLedger implements Ledger on any Store.
type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger { return &DefaultLedger{Store: store} }

func (l *DefaultLedger) Append(ctx context.Context, e Entry) error {
	if e.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, e.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, e)
}

func (l *DefaultLedger) AppendBatch(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if e.IdempotencyKey == "" {
			continue
		}
		exists, err := l.Store.Exists(ctx, e.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.AppendBatch(ctx, entries)
}

func (l *DefaultLedger) Entries(ctx context.Context, customerID CustomerID) ([]Entry, error) {
	return l.Store.Load(ctx, customerID)
}

func (l *DefaultLedger) EntriesInRange(ctx context.Context, customerID CustomerID, from, to Date) ([]Entry, error) {
	return l.Store.LoadRange(ctx, customerID, from, to)
}

func (l *DefaultLedger) BalanceAt(ctx context.Context, customerID CustomerID, at Date) (Money, error) {
	entries, err := l.Store.Load(ctx, customerID)
	if err != nil {
		return Money{}, err
	}
	balance := ZeroMoney()
	for _, e := range entries {
		if e.EffectiveAt.After(at) {
			break
		}
		balance = balance.Add(e.Amount)
	}
	return balance, nil
}

// =============================================================================
// RESULT EXPANSION - BillingResult to ledger line items
// =============================================================================

// Entries expands a billing result into the ledger entries the caller
// persists alongside the balance and due-date update. IDs and idempotency
// keys are left for the caller to fill.
func (r BillingResult) Entries(rentalID RentalID, customer CustomerSnapshot, at Date) []Entry {
	var entries []Entry
	add := func(t EntryType, amount Money, reason string) {
		entries = append(entries, Entry{
			RentalID:    rentalID,
			CustomerID:  customer.ID,
			Amount:      amount,
			Type:        t,
			EffectiveAt: at,
			Reason:      reason,
			CreatedAt:   at,
		})
	}

	if r.WeeksCharged > 0 {
		add(EntryWeekCharge, customer.WeekPrice.MulInt(r.WeeksCharged).Neg(), "rent extension")
	}
	if r.LateFeeCharged.IsPositive() {
		add(EntryLateFee, r.LateFeeCharged.Neg(), "late fee")
	}
	if r.AddedDays > 0 {
		add(EntryDayAdjustment, r.TotalDue.Neg(), "payday shift")
	}
	if r.FreeWeekConsumed && r.AddedDays > 0 {
		// Only the shift path credits money back; the extension path
		// consumes the week by charging fewer weeks in the first place.
		add(EntryFreeWeekCredit, customer.WeekPrice, "free week applied")
	}
	return entries
}
