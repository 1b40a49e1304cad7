package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
	"github.com/1024ZettaBytes/servi-hogar-sub002/pricing"
)

func TestParsePolicy_FullConfig(t *testing.T) {
	jsonStr := `{
		"late_fee_per_day": "12.50",
		"free_week_threshold": "60.00",
		"consume_on_full_cover": true,
		"tiers": [
			{"name": "standard", "week_price": "300.00"},
			{"name": "premium", "week_price": "380.00"}
		]
	}`

	policy, tiers, err := pricing.NewPolicyFactory().ParsePolicy(jsonStr)

	require.NoError(t, err)
	assert.True(t, billing.NewMoney(12.50).Equal(policy.LateFeePerDay))
	assert.True(t, billing.NewMoney(60).Equal(policy.FreeWeekThreshold))
	assert.True(t, policy.ConsumeOnFullCover)

	price, ok := tiers.WeekPrice("premium")
	require.True(t, ok)
	assert.True(t, billing.NewMoney(380).Equal(price))
	_, ok = tiers.WeekPrice("luxury")
	assert.False(t, ok)
}

func TestParsePolicy_EmptyConfigUsesDefaults(t *testing.T) {
	policy, tiers, err := pricing.NewPolicyFactory().ParsePolicy(`{}`)

	require.NoError(t, err)
	assert.True(t, billing.NewMoneyFromInt(10).Equal(policy.LateFeePerDay))
	assert.True(t, billing.NewMoneyFromInt(40).Equal(policy.FreeWeekThreshold))
	assert.False(t, policy.ConsumeOnFullCover)
	assert.Empty(t, tiers)
}

func TestParsePolicy_ThresholdTracksRateUnlessPinned(t *testing.T) {
	// A new rate implies four days' worth of threshold...
	policy, _, err := pricing.NewPolicyFactory().ParsePolicy(`{"late_fee_per_day": "15.00"}`)
	require.NoError(t, err)
	assert.True(t, billing.NewMoney(60).Equal(policy.FreeWeekThreshold))

	// ...unless the config pins it explicitly.
	policy, _, err = pricing.NewPolicyFactory().ParsePolicy(
		`{"late_fee_per_day": "15.00", "free_week_threshold": "45.00"}`)
	require.NoError(t, err)
	assert.True(t, billing.NewMoney(45).Equal(policy.FreeWeekThreshold))
}

func TestParsePolicy_Rejections(t *testing.T) {
	factory := pricing.NewPolicyFactory()

	cases := map[string]string{
		"malformed json":  `{`,
		"bad rate":        `{"late_fee_per_day": "ten"}`,
		"negative rate":   `{"late_fee_per_day": "-1.00"}`,
		"bad threshold":   `{"free_week_threshold": "lots"}`,
		"unnamed tier":    `{"tiers": [{"name": "", "week_price": "300.00"}]}`,
		"bad tier price":  `{"tiers": [{"name": "standard", "week_price": "cheap"}]}`,
		"zero tier price": `{"tiers": [{"name": "standard", "week_price": "0.00"}]}`,
	}
	for name, jsonStr := range cases {
		_, _, err := factory.ParsePolicy(jsonStr)
		assert.Error(t, err, name)
	}
}

func TestFromJSON_DecodedConfig(t *testing.T) {
	// The server's YAML config decodes into PolicyJSON and goes through
	// the same conversion.
	policy, tiers, err := pricing.NewPolicyFactory().FromJSON(pricing.PolicyJSON{
		LateFeePerDay: "8.00",
		Tiers:         []pricing.TierJSON{{Name: "standard", WeekPrice: "250.00"}},
	})

	require.NoError(t, err)
	assert.True(t, billing.NewMoney(8).Equal(policy.LateFeePerDay))
	assert.True(t, billing.NewMoney(32).Equal(policy.FreeWeekThreshold))
	price, ok := tiers.WeekPrice("standard")
	require.True(t, ok)
	assert.True(t, billing.NewMoney(250).Equal(price))
}
