/*
latefee.go - Capped late-fee computation

PURPOSE:

	Computes the late fee for an overdue rental that is being extended.
	The fee is charged per full calendar day late, but capped by the length
	of the extension itself: a customer extending one week can never be
	charged more than seven days of fees, no matter how late the rental is.

	The operator keeps two levers:
	- ChargeLateFee: include the fee at all (waive entirely when false)
	- LateFeeDaysOverride: charge fewer days than the cap; zero or negative
	  means no override (charge the full cap), above the cap is clamped down

EDGE CASES:
  - Not overdue (daysLate == 0): fee is zero and the override is ignored.
  - Override above the cap: clamped down, never an error.
  - Override of zero is NOT "charge nothing": waiving is ChargeLateFee.

SEE ALSO:
  - extension.go: the only caller
  - calendar.go:  DaysBetween (calendar-day boundaries, not time-of-day)
*/
package billing

// =============================================================================
// LATE FEE ASSESSMENT
// =============================================================================

// LateFeeAssessment breaks down a late-fee computation so the operator UI
// can show how the number was reached.
type LateFeeAssessment struct {
	// Full calendar days past the due date. Never negative.
	DaysLate int

	// min(DaysLate, extension length in days): the most days that may be
	// charged for this extension.
	MaxChargeableDays int

	// Days actually charged after applying the operator override.
	DaysCharged int

	// DaysCharged times the per-day rate. Zero when the fee is waived.
	Fee Money
}

// LateFeeCalculator computes capped late fees under a pricing policy.
type LateFeeCalculator struct {
	Policy PricingPolicy
}

// Assess computes the late fee for extending a rental due on dueDate by
// selectedWeeks, as of today.
func (c LateFeeCalculator) Assess(dueDate, today Date, selectedWeeks int, chargeLateFee bool, daysOverride int) LateFeeAssessment {
	daysLate := DaysBetween(dueDate, today)
	if daysLate < 0 {
		daysLate = 0
	}

	coveredDays := selectedWeeks * 7
	maxChargeable := daysLate
	if coveredDays < maxChargeable {
		maxChargeable = coveredDays
	}

	daysCharged := maxChargeable
	if daysOverride > 0 && daysOverride < maxChargeable {
		daysCharged = daysOverride
	}

	a := LateFeeAssessment{
		DaysLate:          daysLate,
		MaxChargeableDays: maxChargeable,
		DaysCharged:       daysCharged,
		Fee:               c.Policy.LateFeePerDay.MulInt(daysCharged),
	}

	// Waived or simply not late: no fee, no charged days.
	if !chargeLateFee || daysLate == 0 {
		a.DaysCharged = 0
		a.Fee = ZeroMoney()
	}
	return a
}
