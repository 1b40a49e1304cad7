package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed creates one customer with one rental and returns the fresh snapshot.
func seed(t *testing.T, s *Store, balance float64, freeWeeks int, due billing.Date) billing.RentalSnapshot {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.SaveCustomer(ctx, CustomerRecord{
		ID:        "customer-1",
		Name:      "Maria Lopez",
		Balance:   billing.NewMoney(balance),
		FreeWeeks: freeWeeks,
		WeekPrice: billing.NewMoney(300),
	}))
	require.NoError(t, s.SaveRental(ctx, RentalRecord{
		ID:         "rental-1",
		CustomerID: "customer-1",
		DueDate:    due,
	}))

	snap, err := s.LoadSnapshot(ctx, "rental-1")
	require.NoError(t, err)
	return snap
}

func testEntry(id, key string, amount billing.Money, at billing.Date) billing.Entry {
	return billing.Entry{
		ID:             billing.EntryID(id),
		RentalID:       "rental-1",
		CustomerID:     "customer-1",
		Amount:         amount,
		Type:           billing.EntryWeekCharge,
		EffectiveAt:    at,
		IdempotencyKey: key,
		CreatedAt:      at,
	}
}

var testDue = billing.NewDate(2025, time.June, 2)

// =============================================================================
// CUSTOMER / RENTAL PERSISTENCE
// =============================================================================

func TestStore_CustomerRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCustomer(ctx, CustomerRecord{
		ID:        "c1",
		Name:      "Maria Lopez",
		Balance:   billing.NewMoney(150.50),
		FreeWeeks: 2,
		WeekPrice: billing.NewMoney(300),
	}))

	got, err := s.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Maria Lopez", got.Name)
	assert.True(t, billing.NewMoney(150.50).Equal(got.Balance))
	assert.Equal(t, 2, got.FreeWeeks)
	assert.False(t, got.PayDayChanged)
}

func TestStore_GetCustomerNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetCustomer(context.Background(), "ghost")

	assert.ErrorIs(t, err, billing.ErrCustomerNotFound)
	assert.True(t, billing.IsNotFound(err))
}

func TestStore_SnapshotReflectsPersistedState(t *testing.T) {
	s := newTestStore(t)

	snap := seed(t, s, 600, 1, testDue)

	assert.Equal(t, billing.RentalID("rental-1"), snap.ID)
	assert.True(t, testDue.Equal(snap.DueDate))
	assert.True(t, billing.NewMoney(600).Equal(snap.Customer.Balance))
	assert.Equal(t, 1, snap.Customer.FreeWeeksAvailable)
	assert.True(t, billing.NewMoney(300).Equal(snap.Customer.WeekPrice))
}

func TestStore_SnapshotMissingRental(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "ghost")

	assert.ErrorIs(t, err, billing.ErrRentalNotFound)
}

// =============================================================================
// ATOMIC RESULT APPLICATION
// =============================================================================

func TestApplyResult_CommitsEverything(t *testing.T) {
	// GIVEN: A computed extension against a fresh snapshot
	// WHEN: Applying it
	// THEN: Due date, balance, free weeks and ledger all move together

	s := newTestStore(t)
	ctx := context.Background()
	snap := seed(t, s, 600, 1, testDue)

	result, err := billing.RentExtensionEngine{Policy: billing.DefaultPricingPolicy()}.
		Extend(snap, billing.ExtensionRequest{SelectedWeeks: 2, UseFreeWeeks: true, ChargeLateFee: true}, testDue)
	require.NoError(t, err)
	require.True(t, result.FreeWeekConsumed)

	entries := result.Entries(snap.ID, snap.Customer, testDue)
	for i := range entries {
		entries[i].ID = billing.EntryID(string(rune('a' + i)))
		entries[i].IdempotencyKey = "extend:" + string(rune('a'+i))
	}

	require.NoError(t, s.ApplyResult(ctx, snap, result, entries))

	rental, err := s.GetRental(ctx, "rental-1")
	require.NoError(t, err)
	assert.True(t, testDue.AddWeeks(2).Equal(rental.DueDate))
	assert.Equal(t, 2, rental.Version)

	customer, err := s.GetCustomer(ctx, "customer-1")
	require.NoError(t, err)
	assert.True(t, billing.NewMoney(300).Equal(customer.Balance), "600 - 1 paying week")
	assert.Equal(t, 0, customer.FreeWeeks)

	loaded, err := s.Load(ctx, "customer-1")
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Equal(t, billing.EntryWeekCharge, loaded[0].Type)
}

func TestApplyResult_StaleDueDateRejected(t *testing.T) {
	// GIVEN: Two snapshots of the same rental
	// WHEN: The first commits
	// THEN: The second commit fails with ErrStaleRental, nothing written

	s := newTestStore(t)
	ctx := context.Background()
	snap := seed(t, s, 1200, 0, testDue)
	stale := snap

	engine := billing.RentExtensionEngine{Policy: billing.DefaultPricingPolicy()}
	first, err := engine.Extend(snap, billing.ExtensionRequest{SelectedWeeks: 1, ChargeLateFee: true}, testDue)
	require.NoError(t, err)
	require.NoError(t, s.ApplyResult(ctx, snap, first, nil))

	second, err := engine.Extend(stale, billing.ExtensionRequest{SelectedWeeks: 1, ChargeLateFee: true}, testDue)
	require.NoError(t, err)

	err = s.ApplyResult(ctx, stale, second, nil)
	assert.ErrorIs(t, err, billing.ErrStaleRental)
	assert.True(t, billing.IsRetryable(err))

	// The first commit's state is intact.
	rental, _ := s.GetRental(ctx, "rental-1")
	assert.True(t, testDue.AddWeeks(1).Equal(rental.DueDate))
	customer, _ := s.GetCustomer(ctx, "customer-1")
	assert.True(t, billing.NewMoney(900).Equal(customer.Balance))
}

func TestApplyResult_StaleBalanceRejectedAndRolledBack(t *testing.T) {
	// GIVEN: A payment that landed after the snapshot read
	// WHEN: Committing against the old balance
	// THEN: ErrStaleRental, and the due-date move inside the same
	//       transaction is rolled back too

	s := newTestStore(t)
	ctx := context.Background()
	snap := seed(t, s, 0, 0, testDue)

	require.NoError(t, s.RecordPayment(ctx, testEntry("pay-1", "pay-1", billing.NewMoney(500), testDue)))

	result, err := billing.RentExtensionEngine{Policy: billing.DefaultPricingPolicy()}.
		Extend(snap, billing.ExtensionRequest{SelectedWeeks: 1, ChargeLateFee: true}, testDue)
	require.NoError(t, err)

	err = s.ApplyResult(ctx, snap, result, nil)
	assert.ErrorIs(t, err, billing.ErrStaleRental)

	rental, _ := s.GetRental(ctx, "rental-1")
	assert.True(t, testDue.Equal(rental.DueDate), "due-date move must roll back")
	assert.Equal(t, 1, rental.Version)
}

func TestApplyResult_MissingRental(t *testing.T) {
	s := newTestStore(t)
	snap := seed(t, s, 0, 0, testDue)
	snap.ID = "ghost"

	err := s.ApplyResult(context.Background(), snap, billing.BillingResult{NewDueDate: testDue}, nil)

	assert.ErrorIs(t, err, billing.ErrRentalNotFound)
}

func TestApplyResult_DuplicateEntryRollsBackCommit(t *testing.T) {
	// A retried commit with already-written idempotency keys must not
	// move the due date a second time... but the due-date guard already
	// catches that. This covers the other order: fresh due date, stale
	// entry key. The whole transaction rolls back.

	s := newTestStore(t)
	ctx := context.Background()
	snap := seed(t, s, 600, 0, testDue)

	require.NoError(t, s.Append(ctx, testEntry("prior", "taken-key", billing.NewMoney(-300), testDue)))

	result, err := billing.RentExtensionEngine{Policy: billing.DefaultPricingPolicy()}.
		Extend(snap, billing.ExtensionRequest{SelectedWeeks: 1, ChargeLateFee: true}, testDue)
	require.NoError(t, err)

	err = s.ApplyResult(ctx, snap, result, []billing.Entry{
		testEntry("dup", "taken-key", billing.NewMoney(-300), testDue),
	})
	assert.ErrorIs(t, err, billing.ErrDuplicateIdempotencyKey)

	rental, _ := s.GetRental(ctx, "rental-1")
	assert.True(t, testDue.Equal(rental.DueDate))
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestRecordPayment_CreditsBalanceAndLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, -200, 0, testDue)

	require.NoError(t, s.RecordPayment(ctx, billing.Entry{
		ID:          "pay-1",
		CustomerID:  "customer-1",
		Amount:      billing.NewMoney(350),
		Type:        billing.EntryPayment,
		EffectiveAt: testDue,
		CreatedAt:   testDue,
	}))

	customer, err := s.GetCustomer(ctx, "customer-1")
	require.NoError(t, err)
	assert.True(t, billing.NewMoney(150).Equal(customer.Balance))

	entries, err := s.Load(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, billing.EntryPayment, entries[0].Type)
	assert.True(t, billing.NewMoney(350).Equal(entries[0].Amount))
}

func TestRecordPayment_RejectsNonPositive(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, 0, 0, testDue)

	err := s.RecordPayment(context.Background(), billing.Entry{
		ID: "pay-1", CustomerID: "customer-1", Amount: billing.ZeroMoney(),
		Type: billing.EntryPayment, EffectiveAt: testDue,
	})
	assert.Error(t, err)
}

// =============================================================================
// LEDGER STORE
// =============================================================================

func TestLedgerStore_AppendLoadAndRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, 0, 0, testDue)

	require.NoError(t, s.Append(ctx, testEntry("e1", "k1", billing.NewMoney(-300), testDue)))
	require.NoError(t, s.Append(ctx, testEntry("e2", "k2", billing.NewMoney(-40), testDue.AddDays(10))))

	all, err := s.Load(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, billing.EntryID("e1"), all[0].ID)

	ranged, err := s.LoadRange(ctx, "customer-1", testDue.AddDays(5), testDue.AddDays(15))
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, billing.EntryID("e2"), ranged[0].ID)

	exists, err := s.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLedgerStore_DuplicateKeyRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, 0, 0, testDue)

	require.NoError(t, s.Append(ctx, testEntry("e1", "same", billing.NewMoney(-300), testDue)))

	err := s.Append(ctx, testEntry("e2", "same", billing.NewMoney(-300), testDue))
	assert.ErrorIs(t, err, billing.ErrDuplicateIdempotencyKey)
}

func TestLedgerStore_EmptyKeysDoNotCollide(t *testing.T) {
	// Entries without idempotency keys store NULL; UNIQUE must not fire.
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, 0, 0, testDue)

	require.NoError(t, s.Append(ctx, testEntry("e1", "", billing.NewMoney(-300), testDue)))
	require.NoError(t, s.Append(ctx, testEntry("e2", "", billing.NewMoney(-40), testDue)))

	entries, err := s.Load(ctx, "customer-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// =============================================================================
// OVERDUE REPORTS
// =============================================================================

func TestOverdueReports_LatestRunOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, 0, 0, testDue)

	firstRun := time.Date(2025, time.June, 10, 6, 0, 0, 0, time.UTC)
	secondRun := firstRun.Add(24 * time.Hour)

	require.NoError(t, s.SaveOverdueRows(ctx, []OverdueRow{
		{ID: "r1", RunAt: firstRun, RentalID: "rental-1", CustomerID: "customer-1", DueDate: testDue, DaysLate: 8},
	}))
	require.NoError(t, s.SaveOverdueRows(ctx, []OverdueRow{
		{ID: "r2", RunAt: secondRun, RentalID: "rental-1", CustomerID: "customer-1", DueDate: testDue, DaysLate: 9},
	}))

	rows, err := s.ListOverdueRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "r2", rows[0].ID)
	assert.Equal(t, 9, rows[0].DaysLate)
}
