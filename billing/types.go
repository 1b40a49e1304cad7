/*
Package billing implements the rental billing engine.

PURPOSE:

	This package contains the pure computation at the heart of the washer
	rental operation: extending a rental period, charging capped late fees,
	consuming banked free weeks, and shifting a customer's recurring payment
	weekday. Everything here is a function of explicit inputs - a read-only
	snapshot of the rental and customer, a request, and a pricing policy -
	producing an explicit BillingResult. No I/O, no hidden state.

KEY CONCEPTS IN THIS FILE (types.go):
  - RentalSnapshot / CustomerSnapshot: frozen read of persisted state
  - PricingPolicy: the operation's billing constants
  - ExtensionRequest / PaydayShiftRequest: operator input
  - BillingResult: everything the persistence layer needs to commit

DESIGN PRINCIPLES:
 1. Purity: engines never mutate their inputs; calling twice with the
    same snapshot yields the same result.
 2. Precision: Money wraps decimal.Decimal, a cent is a cent.
 3. Snapshots are read fresh per operation; the caller re-reads before
    invoking a second operation and commits with an optimistic guard.

USAGE:

	engine := billing.RentExtensionEngine{Policy: billing.DefaultPricingPolicy()}
	result, err := engine.Extend(snapshot, request, billing.Today())

SEE ALSO:
  - extension.go:   rent extension computation
  - paydayshift.go: payment weekday shift computation
  - ledger.go:      expanding a result into balance line items
*/
package billing

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RentalID string
type CustomerID string

// =============================================================================
// SNAPSHOTS - Read-only input state
// =============================================================================

// CustomerSnapshot is the billing-relevant slice of a customer record.
type CustomerSnapshot struct {
	ID CustomerID

	// Signed ledger value: positive = credit on file, negative = owed.
	Balance Money

	// Banked free-week entitlement. Never negative; decremented by at
	// most 1 per billing operation.
	FreeWeeksAvailable int

	// Tier-specific weekly rental price. Always positive.
	WeekPrice Money

	// Tracked for a possible one-shift-per-customer rule. Currently
	// informational only; no engine reads it.
	PayDayChangedBefore bool
}

// RentalSnapshot is the billing-relevant slice of a rental record.
type RentalSnapshot struct {
	ID RentalID

	// Current due date. Anchors the extension (new due date is relative
	// to this, not to "today") and the weekday for payday shifts.
	DueDate Date

	// Informational; does not affect any calculation.
	ConsecutiveWeeks int

	Customer CustomerSnapshot
}

// =============================================================================
// PRICING POLICY - Billing constants
// =============================================================================

// PricingPolicy carries the configurable billing constants. One policy
// instance serves all customers; the per-customer week price lives on the
// customer snapshot.
type PricingPolicy struct {
	// Fee per day a rental is late, and also the rate charged per added
	// day on a payday shift (the business prices both the same).
	LateFeePerDay Money

	// Minimum charge eligible to be waived by one free week on the
	// payday-shift path. Four days' worth of late fee by default.
	FreeWeekThreshold Money

	// Whether an extension fully covered by banked free weeks still
	// consumes one of them. The legacy system left this branch
	// ambiguous; the flag keeps both readings testable.
	ConsumeOnFullCover bool
}

// DefaultPricingPolicy returns the rates the operation runs with today.
func DefaultPricingPolicy() PricingPolicy {
	perDay := NewMoneyFromInt(10)
	return PricingPolicy{
		LateFeePerDay:     perDay,
		FreeWeekThreshold: perDay.MulInt(4),
	}
}

// =============================================================================
// REQUESTS - Operator input
// =============================================================================

// ExtensionRequest is the operator's input to a rent extension.
type ExtensionRequest struct {
	// Weeks to extend by. Must be >= 1.
	SelectedWeeks int

	// Whether banked free weeks may offset the charged weeks.
	UseFreeWeeks bool

	// Operator override: include the late fee at all.
	ChargeLateFee bool

	// Operator override: days of late fee to charge. Zero or negative
	// means no override (the full cap is charged); values above
	// min(daysLate, selectedWeeks*7) are clamped down.
	LateFeeDaysOverride int
}

// PaydayShiftRequest is the operator's input to a payday change.
type PaydayShiftRequest struct {
	TargetWeekday time.Weekday
}

// =============================================================================
// BILLING RESULT - Output of either engine
// =============================================================================

// BillingResult is the complete outcome of one billing computation. The
// caller persists it atomically: new balance and due date, the free-week
// decrement if any, and the charge line items (see Entries).
type BillingResult struct {
	// Whole weeks the customer is paying for. Zero on the payday-shift
	// path, which charges by day.
	WeeksCharged int

	// Whether exactly one banked free week was consumed.
	FreeWeekConsumed bool

	// Late-fee detail (extension path).
	DaysLate           int
	MaxChargeableDays  int
	LateFeeDaysCharged int
	LateFeeCharged     Money

	// Days added by a payday shift (1-6); zero on the extension path.
	AddedDays int

	// Total charged by this operation. Never negative.
	TotalDue Money

	// Balance after applying the charge (and any free-week credit). May
	// be negative: debt carried forward.
	NewBalance Money

	// The shortfall the customer must cover now for the commit to be
	// allowed. Zero when the balance covers the charge.
	AmountCustomerMustPay Money

	// Whether the balance on file covered TotalDue outright.
	CustomerHasBalance bool

	NewDueDate Date
}

// RequiresPayment reports whether the caller must collect money through a
// side channel before committing this result.
func (r BillingResult) RequiresPayment() bool {
	return r.AmountCustomerMustPay.IsPositive()
}
