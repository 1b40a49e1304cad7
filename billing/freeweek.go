/*
freeweek.go - Banked free-week consumption rules

PURPOSE:

	Decides whether one banked free week is consumed by a charge, and what
	remains to pay afterwards. The business runs TWO distinct rules and they
	are deliberately NOT unified:

	Extension rule (whole weeks):
	  Free weeks offset charged weeks one-for-one. A week is consumed only
	  when the requested extension is longer than the banked free weeks;
	  when free weeks fully cover the extension, zero weeks are charged and
	  (by default) nothing is consumed.

	Shift rule (sub-week day adjustment):
	  A free week is consumed only when the day-adjustment charge reaches
	  the policy threshold; consuming it credits back exactly one week's
	  price against the charge, floored at zero.

	The two rules police different scenarios (a full-week extension vs. a
	few-day payday move). Changing either changes what real customers are
	charged, so each is an explicit strategy with its own tests.

SEE ALSO:
  - extension.go:   applies ExtensionConsumptionRule
  - paydayshift.go: applies ShiftConsumptionRule
*/
package billing

// =============================================================================
// FREE WEEK LEDGER - Strategy interface
// =============================================================================

// FreeWeekDecision is the outcome of applying a consumption rule to a
// single charge.
type FreeWeekDecision struct {
	// Whether exactly one free week is consumed. Never true when the
	// customer has no free weeks banked.
	Consumed bool

	// What remains to charge after the rule is applied. Never negative.
	ResidualCharge Money
}

// FreeWeekLedger decides free-week consumption for a single charge.
type FreeWeekLedger interface {
	Consume(charge Money, freeWeeksAvailable int, weekPrice Money) FreeWeekDecision
}

// =============================================================================
// EXTENSION RULE - Whole weeks offset one-for-one
// =============================================================================

// ExtensionConsumptionRule implements the extension path: the charge is a
// whole number of weeks and free weeks offset charged weeks directly.
type ExtensionConsumptionRule struct {
	// Operator choice from the request.
	UseFreeWeeks bool

	// Whether a fully covered extension still consumes one free week.
	// See PricingPolicy.ConsumeOnFullCover.
	ConsumeOnFullCover bool
}

var _ FreeWeekLedger = ExtensionConsumptionRule{}

// Consume derives the requested weeks from charge/weekPrice and offsets
// them against the banked free weeks.
func (r ExtensionConsumptionRule) Consume(charge Money, freeWeeksAvailable int, weekPrice Money) FreeWeekDecision {
	paying, consumed := r.PayingWeeks(charge.WholeUnits(weekPrice), freeWeeksAvailable)
	return FreeWeekDecision{
		Consumed:       consumed,
		ResidualCharge: weekPrice.MulInt(paying),
	}
}

// PayingWeeks is the week-denominated form used by the extension engine.
// Returns how many weeks the customer pays for and whether one free week
// is consumed.
func (r ExtensionConsumptionRule) PayingWeeks(selectedWeeks, freeWeeksAvailable int) (paying int, consumed bool) {
	paying = selectedWeeks

	if !r.UseFreeWeeks || freeWeeksAvailable <= 0 {
		return paying, false
	}

	paying = selectedWeeks - freeWeeksAvailable
	if paying < 0 {
		paying = 0
	}

	if selectedWeeks > freeWeeksAvailable {
		consumed = true
	} else {
		// Free weeks fully cover the request. Whether that still burns
		// one of them is a policy decision.
		consumed = r.ConsumeOnFullCover
	}
	return paying, consumed
}

// =============================================================================
// SHIFT RULE - Threshold-gated credit of one week's price
// =============================================================================

// ShiftConsumptionRule implements the payday-shift path: a free week is
// spent only on a charge worth at least Threshold, and spending it credits
// one week's price back against the charge.
type ShiftConsumptionRule struct {
	Threshold Money
}

var _ FreeWeekLedger = ShiftConsumptionRule{}

func (r ShiftConsumptionRule) Consume(charge Money, freeWeeksAvailable int, weekPrice Money) FreeWeekDecision {
	if freeWeeksAvailable <= 0 || charge.LessThan(r.Threshold) {
		return FreeWeekDecision{Consumed: false, ResidualCharge: charge}
	}
	// The credit alone cannot push the charge negative.
	return FreeWeekDecision{
		Consumed:       true,
		ResidualCharge: charge.Sub(weekPrice).FloorZero(),
	}
}
