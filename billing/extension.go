/*
extension.go - Rent extension engine

PURPOSE:

	Computes everything a rent extension changes: weeks charged (after free
	weeks), the capped late fee, total due, the new balance, the shortfall
	the customer must cover now, and the new due date.

	Single-step computation, no intermediate states. The engine ALWAYS
	produces a full result once validation passes; whether the commit is
	allowed (shortfall resolved by an external payment) is the caller's
	gate, not an engine error.

DUE DATE ANCHORING:

	The new due date is the ORIGINAL due date plus the selected weeks, never
	"today" plus the weeks. A very overdue rental does not get its overdue
	weeks forgiven by extending - those days are covered by the late fee,
	capped at the extension length.

CONSERVATION:

	NewBalance == Customer.Balance - TotalDue, and
	AmountCustomerMustPay == max(0, TotalDue - Customer.Balance).
	Therefore NewBalance + AmountCustomerMustPay == max(0, Balance - TotalDue):
	once the shortfall is collected, the settled balance is never negative.
	The scenario tests assert this across cases.

SEE ALSO:
  - latefee.go: step 1 (fee assessment)
  - freeweek.go: step 2 (extension consumption rule)
  - paydayshift.go: the sibling engine for weekday moves
*/
package billing

// RentExtensionEngine computes rent extensions under a pricing policy.
// Stateless and safe for concurrent use.
type RentExtensionEngine struct {
	Policy PricingPolicy
}

// Extend computes the billing outcome of extending the rental by the
// requested weeks, as of today. The snapshot is never mutated.
func (e RentExtensionEngine) Extend(snap RentalSnapshot, req ExtensionRequest, today Date) (BillingResult, error) {
	if req.SelectedWeeks < 1 {
		return BillingResult{}, &InvalidRequestError{Field: "selectedWeeks", Reason: ErrInvalidWeeks}
	}

	customer := snap.Customer

	// 1. Capped late fee.
	fee := LateFeeCalculator{Policy: e.Policy}.Assess(
		snap.DueDate, today, req.SelectedWeeks, req.ChargeLateFee, req.LateFeeDaysOverride)

	// 2. Weeks to pay after free-week offset.
	rule := ExtensionConsumptionRule{
		UseFreeWeeks:       req.UseFreeWeeks,
		ConsumeOnFullCover: e.Policy.ConsumeOnFullCover,
	}
	payingWeeks, freeWeekConsumed := rule.PayingWeeks(req.SelectedWeeks, customer.FreeWeeksAvailable)

	// 3-4. Monetary cost.
	weeksCost := customer.WeekPrice.MulInt(payingWeeks)
	totalDue := weeksCost.Add(fee.Fee)

	// 5-7. Settlement against the balance on file.
	hasBalance := customer.Balance.GreaterOrEqual(totalDue)
	mustPay := totalDue.Sub(customer.Balance).FloorZero()
	newBalance := customer.Balance.Sub(totalDue)

	// 8. Due date moves relative to the original due date.
	newDueDate := snap.DueDate.AddWeeks(req.SelectedWeeks)

	return BillingResult{
		WeeksCharged:          payingWeeks,
		FreeWeekConsumed:      freeWeekConsumed,
		DaysLate:              fee.DaysLate,
		MaxChargeableDays:     fee.MaxChargeableDays,
		LateFeeDaysCharged:    fee.DaysCharged,
		LateFeeCharged:        fee.Fee,
		TotalDue:              totalDue,
		NewBalance:            newBalance,
		AmountCustomerMustPay: mustPay,
		CustomerHasBalance:    hasBalance,
		NewDueDate:            newDueDate,
	}, nil
}
