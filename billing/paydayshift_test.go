package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func shift(t *testing.T, snap billing.RentalSnapshot, target time.Weekday) billing.BillingResult {
	t.Helper()
	result, err := billing.PaydayShiftEngine{Policy: billing.DefaultPricingPolicy()}.
		Shift(snap, billing.PaydayShiftRequest{TargetWeekday: target})
	require.NoError(t, err)
	return result
}

// mondayDue is a Monday; weekday-walk tests anchor here.
var mondayDue = billing.NewDate(2025, time.June, 2)

// =============================================================================
// VALIDATION
// =============================================================================

func TestShift_RejectsSameWeekday(t *testing.T) {
	// GIVEN: A rental already due on Mondays
	// WHEN: Asking for Monday
	// THEN: Rejected before any computation - the move is a no-op, and
	//       ForwardDaysTo would otherwise charge a full 7-day cycle

	engine := billing.PaydayShiftEngine{Policy: billing.DefaultPricingPolicy()}
	snap := snapshot(mondayDue, 0, 0)

	_, err := engine.Shift(snap, billing.PaydayShiftRequest{TargetWeekday: time.Monday})

	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrSamePayday)
	assert.True(t, billing.IsClientError(err))
}

func TestShift_RejectsOutOfRangeWeekday(t *testing.T) {
	engine := billing.PaydayShiftEngine{Policy: billing.DefaultPricingPolicy()}
	snap := snapshot(mondayDue, 0, 0)

	_, err := engine.Shift(snap, billing.PaydayShiftRequest{TargetWeekday: time.Weekday(7)})

	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrUnknownWeekday)
}

// =============================================================================
// DAY DISTANCE
// =============================================================================

func TestShift_ForwardWithinWeek(t *testing.T) {
	// Monday -> Friday: 4 days at 10.00/day.
	snap := snapshot(mondayDue, 100, 0)

	result := shift(t, snap, time.Friday)

	assert.Equal(t, 4, result.AddedDays)
	assert.True(t, money(40).Equal(result.TotalDue))
	assert.True(t, mondayDue.AddDays(4).Equal(result.NewDueDate))
	assert.Equal(t, time.Friday, result.NewDueDate.Weekday())
	assert.Equal(t, 0, result.WeeksCharged)
}

func TestShift_WrapsPastEndOfWeek(t *testing.T) {
	// GIVEN: Due on Fridays
	// WHEN: Moving to Monday
	// THEN: The due date only walks forward: 3 days, never -4

	fridayDue := billing.NewDate(2025, time.June, 6)
	snap := snapshot(fridayDue, 100, 0)

	result := shift(t, snap, time.Monday)

	assert.Equal(t, 3, result.AddedDays)
	assert.True(t, money(30).Equal(result.TotalDue))
	assert.Equal(t, time.Monday, result.NewDueDate.Weekday())
	assert.True(t, result.NewDueDate.After(fridayDue))
}

func TestShift_AddedDaysAlwaysOneToSix(t *testing.T) {
	// Every distinct target weekday yields 1..6 added days.
	for target := time.Sunday; target <= time.Saturday; target++ {
		if target == mondayDue.Weekday() {
			continue
		}
		snap := snapshot(mondayDue, 1000, 0)

		result := shift(t, snap, target)

		assert.GreaterOrEqual(t, result.AddedDays, 1, "target=%s", target)
		assert.LessOrEqual(t, result.AddedDays, 6, "target=%s", target)
		assert.Equal(t, target, result.NewDueDate.Weekday())
	}
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestShift_BalanceCoversCharge(t *testing.T) {
	// GIVEN: 100.00 on file, 40.00 charge
	// THEN: Nothing owed, free week untouched even though one is banked

	snap := snapshot(mondayDue, 100, 1)

	result := shift(t, snap, time.Friday)

	assert.True(t, result.AmountCustomerMustPay.IsZero())
	assert.True(t, money(60).Equal(result.NewBalance))
	assert.False(t, result.FreeWeekConsumed)
	assert.True(t, result.CustomerHasBalance)
}

func TestShift_ShortfallConsumesFreeWeekAtThreshold(t *testing.T) {
	// GIVEN: Empty balance, Monday -> Friday (40.00, exactly at threshold)
	// THEN: The free week is spent, its 300.00 credit clears the debt

	snap := snapshot(mondayDue, 0, 1)

	result := shift(t, snap, time.Friday)

	assert.True(t, result.FreeWeekConsumed)
	assert.True(t, result.AmountCustomerMustPay.IsZero())
	// -40 charge + 300 credit
	assert.True(t, money(260).Equal(result.NewBalance))
}

func TestShift_ShortfallBelowThresholdKeepsFreeWeek(t *testing.T) {
	// Monday -> Thursday is 30.00, under the 40.00 threshold: the free
	// week stays banked and the debt is carried.
	snap := snapshot(mondayDue, 0, 1)

	result := shift(t, snap, time.Thursday)

	assert.False(t, result.FreeWeekConsumed)
	assert.True(t, money(30).Equal(result.AmountCustomerMustPay))
	assert.True(t, money(-30).Equal(result.NewBalance))
}

func TestShift_ShortfallNoFreeWeeksCarriesDebt(t *testing.T) {
	snap := snapshot(mondayDue, 0, 0)

	result := shift(t, snap, time.Friday)

	assert.False(t, result.FreeWeekConsumed)
	assert.True(t, money(40).Equal(result.AmountCustomerMustPay))
	assert.True(t, money(-40).Equal(result.NewBalance))
	assert.False(t, result.CustomerHasBalance)
}

func TestShift_PartialBalanceStillChargesFullDays(t *testing.T) {
	// GIVEN: 25.00 on file against a 40.00 charge
	// THEN: The balance does not reduce the mustPay figure on this path;
	//       the free week (at threshold) does

	snap := snapshot(mondayDue, 25, 1)

	result := shift(t, snap, time.Friday)

	assert.True(t, result.FreeWeekConsumed)
	assert.True(t, result.AmountCustomerMustPay.IsZero())
	// 25 - 40 + 300
	assert.True(t, money(285).Equal(result.NewBalance))
}

func TestShift_DoesNotMutateSnapshot(t *testing.T) {
	snap := snapshot(mondayDue, 0, 1)

	first := shift(t, snap, time.Friday)
	second := shift(t, snap, time.Friday)

	assert.Equal(t, first, second)
	assert.True(t, snap.Customer.Balance.IsZero())
	assert.Equal(t, 1, snap.Customer.FreeWeeksAvailable)
	assert.True(t, mondayDue.Equal(snap.DueDate))
}
