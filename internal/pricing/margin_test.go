package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/pricing"
)

func TestResolveMarginPercentFallback(t *testing.T) {
	cases := []string{"", "   ", "n/a", "%", "forty"}
	for _, raw := range cases {
		got := pricing.ResolveMarginPercent("P1", raw, nil)
		require.Equal(t, 40.0, got, "default %q should fall back to 40", raw)
	}
}

func TestResolveMarginPercentDefault(t *testing.T) {
	require.Equal(t, 35.0, pricing.ResolveMarginPercent("P1", "35%", nil))
	require.Equal(t, 35.0, pricing.ResolveMarginPercent("P1", "35", nil))
	require.Equal(t, 42.5, pricing.ResolveMarginPercent("P1", " 42.5% ", nil))
}

func TestResolveMarginPercentSpecialOverride(t *testing.T) {
	special := map[string]string{"P1": "45%"}
	require.Equal(t, 45.0, pricing.ResolveMarginPercent("P1", "40%", special))
	require.Equal(t, 45.0, pricing.ResolveMarginPercent("P1", "", special))
	require.Equal(t, 45.0, pricing.ResolveMarginPercent("P1", "garbage", special))
	// other products keep the default
	require.Equal(t, 40.0, pricing.ResolveMarginPercent("P2", "", special))
}

func TestResolveMarginPercentUnparsableSpecial(t *testing.T) {
	special := map[string]string{"P1": "not-a-number"}
	require.Equal(t, 40.0, pricing.ResolveMarginPercent("P1", "30%", special))
}

func TestMarginWireFormatRoundTrip(t *testing.T) {
	for _, percent := range []float64{0, 40, 45, 42.5} {
		wire := pricing.FormatMargin(percent)
		require.Regexp(t, `%$`, wire)
		parsed, ok := pricing.ParseMargin(wire)
		require.True(t, ok)
		require.Equal(t, percent, parsed)
	}
}

func TestParseTaxTreatment(t *testing.T) {
	require.Equal(t, pricing.TaxInclusive, pricing.ParseTaxTreatment("Inclusive"))
	require.Equal(t, pricing.TaxExclusive, pricing.ParseTaxTreatment("Exclusive"))
	require.Equal(t, pricing.TaxExclusive, pricing.ParseTaxTreatment(""))
	require.Equal(t, pricing.TaxExclusive, pricing.ParseTaxTreatment("unknown"))
}
