/*
paydayshift.go - Payment weekday shift engine

PURPOSE:

	Moves a rental's recurring due date to a different weekday. The due date
	only ever walks FORWARD through the week (1 to 6 days; wrapping past the
	end of the week counts the full remaining distance), and the customer is
	charged for each added day.

	Structurally similar to the extension engine but deliberately separate:
	it charges by day instead of by week, and its free-week rule is the
	threshold-gated ShiftConsumptionRule rather than the week-for-week
	extension rule. The two paths were born different in the business and
	are kept different here.

RATE NOTE:

	The per-day rate is PricingPolicy.LateFeePerDay. The business prices an
	added day the same whether it comes from lateness or from a weekday
	move; if that ever changes, only the policy changes.

SEE ALSO:
  - freeweek.go: ShiftConsumptionRule
  - extension.go: the sibling engine for whole-week extensions
*/
package billing

import "time"

// PaydayShiftEngine computes payday weekday changes under a pricing
// policy. Stateless and safe for concurrent use.
type PaydayShiftEngine struct {
	Policy PricingPolicy
}

// Shift computes the billing outcome of moving the rental's due date to
// the requested weekday. The snapshot is never mutated.
func (e PaydayShiftEngine) Shift(snap RentalSnapshot, req PaydayShiftRequest) (BillingResult, error) {
	if req.TargetWeekday < time.Sunday || req.TargetWeekday > time.Saturday {
		return BillingResult{}, &InvalidRequestError{Field: "targetWeekday", Reason: ErrUnknownWeekday}
	}

	current := snap.DueDate.Weekday()
	if req.TargetWeekday == current {
		return BillingResult{}, &InvalidRequestError{Field: "targetWeekday", Reason: ErrSamePayday}
	}

	customer := snap.Customer

	// 1-4. Day distance and its cost.
	addedDays := ForwardDaysTo(current, req.TargetWeekday)
	daysCost := e.Policy.LateFeePerDay.MulInt(addedDays)

	// 5-7. Settle against the balance; a free week may soften the debt.
	newBalance := customer.Balance.Sub(daysCost)
	freeWeekConsumed := false
	mustPay := ZeroMoney()

	if newBalance.IsNegative() {
		mustPay = daysCost
		decision := ShiftConsumptionRule{Threshold: e.Policy.FreeWeekThreshold}.
			Consume(daysCost, customer.FreeWeeksAvailable, customer.WeekPrice)
		if decision.Consumed {
			freeWeekConsumed = true
			mustPay = decision.ResidualCharge
			newBalance = newBalance.Add(customer.WeekPrice)
		}
	}

	return BillingResult{
		WeeksCharged:          0, // this path charges by day
		FreeWeekConsumed:      freeWeekConsumed,
		AddedDays:             addedDays,
		TotalDue:              daysCost,
		NewBalance:            newBalance,
		AmountCustomerMustPay: mustPay,
		CustomerHasBalance:    customer.Balance.GreaterOrEqual(daysCost),
		NewDueDate:            snap.DueDate.AddDays(addedDays),
	}, nil
}
