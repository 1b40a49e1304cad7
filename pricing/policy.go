/*
Package pricing provides JSON to Go pricing-policy conversion.

PURPOSE:

	Converts JSON pricing definitions into billing.PricingPolicy values and
	a week-price tier table. This enables rate changes without code changes:
	the operation can adjust the late-fee rate, the free-week threshold, or
	a tier's weekly price in configuration.

JSON SCHEMA:

	{
	  "late_fee_per_day": "10.00",
	  "free_week_threshold": "40.00",
	  "consume_on_full_cover": false,
	  "tiers": [
	    {"name": "standard", "week_price": "300.00"},
	    {"name": "premium", "week_price": "380.00"}
	  ]
	}

DEFAULTS:
  - late_fee_per_day defaults to 10.00
  - free_week_threshold defaults to 4 days' worth of late fee
  - consume_on_full_cover defaults to false (a fully covered extension
    does not burn a free week)

USAGE:

	factory := pricing.NewPolicyFactory()
	policy, tiers, err := factory.ParsePolicy(jsonStr)
	price, ok := tiers.WeekPrice("standard")

SEE ALSO:
  - billing/types.go: PricingPolicy definition
  - cmd/server: loads a policy file at startup
*/
package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a pricing policy. The yaml
// tags let the same schema load from the server's config file.
type PolicyJSON struct {
	LateFeePerDay      string     `json:"late_fee_per_day,omitempty" yaml:"late_fee_per_day"`
	FreeWeekThreshold  string     `json:"free_week_threshold,omitempty" yaml:"free_week_threshold"`
	ConsumeOnFullCover bool       `json:"consume_on_full_cover,omitempty" yaml:"consume_on_full_cover"`
	Tiers              []TierJSON `json:"tiers,omitempty" yaml:"tiers"`
}

// TierJSON is one week-price tier.
type TierJSON struct {
	Name      string `json:"name" yaml:"name"`
	WeekPrice string `json:"week_price" yaml:"week_price"`
}

// =============================================================================
// TIER TABLE
// =============================================================================

// Tiers maps a tier name to its weekly price.
type Tiers map[string]billing.Money

// WeekPrice looks up a tier's weekly price.
func (t Tiers) WeekPrice(name string) (billing.Money, bool) {
	price, ok := t[name]
	return price, ok
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON pricing configs to Go values.
type PolicyFactory struct{}

func NewPolicyFactory() *PolicyFactory { return &PolicyFactory{} }

// ParsePolicy parses a JSON string into a PricingPolicy and tier table.
// Missing fields fall back to the operation's default rates.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (billing.PricingPolicy, Tiers, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return billing.PricingPolicy{}, nil, fmt.Errorf("failed to parse pricing JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts an already-decoded PolicyJSON.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (billing.PricingPolicy, Tiers, error) {
	policy := billing.DefaultPricingPolicy()
	policy.ConsumeOnFullCover = pj.ConsumeOnFullCover

	if pj.LateFeePerDay != "" {
		rate, err := billing.ParseMoney(pj.LateFeePerDay)
		if err != nil {
			return billing.PricingPolicy{}, nil, fmt.Errorf("invalid late_fee_per_day: %w", err)
		}
		policy.LateFeePerDay = rate
		// The threshold tracks the rate unless pinned explicitly below.
		policy.FreeWeekThreshold = rate.MulInt(4)
	}

	if pj.FreeWeekThreshold != "" {
		threshold, err := billing.ParseMoney(pj.FreeWeekThreshold)
		if err != nil {
			return billing.PricingPolicy{}, nil, fmt.Errorf("invalid free_week_threshold: %w", err)
		}
		policy.FreeWeekThreshold = threshold
	}

	if err := f.validate(policy); err != nil {
		return billing.PricingPolicy{}, nil, err
	}

	tiers := make(Tiers, len(pj.Tiers))
	for _, tier := range pj.Tiers {
		if tier.Name == "" {
			return billing.PricingPolicy{}, nil, fmt.Errorf("tier with empty name")
		}
		price, err := billing.ParseMoney(tier.WeekPrice)
		if err != nil {
			return billing.PricingPolicy{}, nil, fmt.Errorf("tier %q: invalid week_price: %w", tier.Name, err)
		}
		if !price.IsPositive() {
			return billing.PricingPolicy{}, nil, fmt.Errorf("tier %q: week_price must be positive", tier.Name)
		}
		tiers[tier.Name] = price
	}

	return policy, tiers, nil
}

func (f *PolicyFactory) validate(policy billing.PricingPolicy) error {
	if policy.LateFeePerDay.IsNegative() {
		return fmt.Errorf("late_fee_per_day must not be negative")
	}
	if policy.FreeWeekThreshold.IsNegative() {
		return fmt.Errorf("free_week_threshold must not be negative")
	}
	return nil
}
