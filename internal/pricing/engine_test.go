package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/pricing"
)

func TestPriceLineExclusive(t *testing.T) {
	lp := pricing.PriceLine(1000, 40, 18, 2, pricing.TaxExclusive)
	require.InDelta(t, 600.00, lp.SellingPrice, 1e-9)
	require.InDelta(t, 216.00, lp.GST, 1e-9)
	require.InDelta(t, 1416.00, lp.Total, 1e-9)
}

func TestPriceLineInclusive(t *testing.T) {
	lp := pricing.PriceLine(1000, 40, 18, 2, pricing.TaxInclusive)
	require.InDelta(t, 600.00, lp.SellingPrice, 1e-9)
	// base price 600/1.18 = 508.4745..., GST is the remainder per unit
	require.InDelta(t, 183.05, pricing.Round2(lp.GST), 1e-9)
	require.InDelta(t, 1200.00, lp.Total, 1e-9)
}

func TestPriceLineDefaults(t *testing.T) {
	lp := pricing.PriceLine(0, 40, 0, 0, pricing.TaxExclusive)
	require.Zero(t, lp.SellingPrice)
	require.Zero(t, lp.GST)
	require.Zero(t, lp.Total)

	// quantity below one is treated as a single unit
	lp = pricing.PriceLine(100, 0, 0, -3, pricing.TaxExclusive)
	require.InDelta(t, 100.0, lp.Total, 1e-9)
}

func TestComputeTotalsFold(t *testing.T) {
	cfg := pricing.Config{
		DefaultMargin:  "40%",
		Treatment:      pricing.TaxExclusive,
		SpecialMargins: map[string]string{"P2": "50%"},
	}
	items := []pricing.Item{
		{ProductID: "P1", Rate: 1000, TaxPercent: 18, Quantity: 2},
		{ProductID: "P2", Rate: 500, TaxPercent: 12, Quantity: 1},
	}
	got := pricing.ComputeTotals(items, cfg)
	// P1: selling 600, gst 216, total 1416. P2: selling 250, gst 30, total 280.
	require.InDelta(t, 246.00, got.GST, 1e-9)
	require.InDelta(t, 1696, got.Amount, 1e-9)

	// idempotent: recomputing over the same lines yields identical totals
	again := pricing.ComputeTotals(items, cfg)
	require.Equal(t, got, again)
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	got := pricing.ComputeTotals(nil, pricing.Config{Treatment: pricing.TaxExclusive})
	require.Zero(t, got.GST)
	require.Zero(t, got.Amount)
}

func TestRoundAmountHalfBoundary(t *testing.T) {
	// only the exact .5 case rounds up; everything else truncates
	require.Equal(t, 1417.0, pricing.RoundAmount(1416.5))
	require.Equal(t, 1416.0, pricing.RoundAmount(1416.4))
	require.Equal(t, 1416.0, pricing.RoundAmount(1416.6))
	require.Equal(t, 0.0, pricing.RoundAmount(0))
}

func TestTotalsRoundingBoundaryMultiLine(t *testing.T) {
	// zero margin, zero tax lines whose sum lands exactly on .5
	cfg := pricing.Config{DefaultMargin: "0", Treatment: pricing.TaxExclusive}
	items := []pricing.Item{
		{ProductID: "A", Rate: 600.25, Quantity: 1},
		{ProductID: "B", Rate: 816.25, Quantity: 1},
	}
	got := pricing.ComputeTotals(items, cfg)
	require.Equal(t, 1417.0, got.Amount)

	items[1].Rate = 816.15
	got = pricing.ComputeTotals(items, cfg)
	require.Equal(t, 1416.0, got.Amount)
}
