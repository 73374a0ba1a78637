package pricing

import "math"

// LinePrice holds the priced result of a single cart line. SellingPrice is
// rounded to two decimals for display; GST and Total are left unrounded so
// that totals can accumulate without compounding rounding error.
type LinePrice struct {
	SellingPrice float64
	GST          float64
	Total        float64
}

// Item describes a cart line used for totals calculation.
type Item struct {
	ProductID  string
	Rate       float64
	TaxPercent float64
	Quantity   int
}

// Totals aggregates the computed order amounts.
type Totals struct {
	GST    float64
	Amount float64
}

// PriceLine derives the customer-specific selling price from the list rate
// and margin, then applies GST according to the tax treatment. A missing
// rate or tax percentage prices the line as free/untaxed rather than
// failing. Quantity defaults to 1 when not positive.
func PriceLine(rate, marginPercent, taxPercent float64, qty int, treatment TaxTreatment) LinePrice {
	if qty < 1 {
		qty = 1
	}
	if rate < 0 {
		rate = 0
	}
	if taxPercent < 0 {
		taxPercent = 0
	}
	selling := rate - rate*(marginPercent/100)
	q := float64(qty)

	var gst, total float64
	if treatment == TaxInclusive {
		base := selling / (1 + taxPercent/100)
		gst = (selling - base) * q
		total = selling * q
	} else {
		gst = selling * (taxPercent / 100) * q
		total = (selling + selling*(taxPercent/100)) * q
	}
	return LinePrice{
		SellingPrice: Round2(selling),
		GST:          gst,
		Total:        total,
	}
}

// ComputeTotals folds PriceLine over every item, accumulating unrounded GST
// and amounts, and rounds only the final sums. It must always be called with
// the complete current line set so totals never drift from line state.
func ComputeTotals(items []Item, cfg Config) Totals {
	var gst, amount float64
	for _, it := range items {
		margin := cfg.MarginFor(it.ProductID)
		lp := PriceLine(it.Rate, margin, it.TaxPercent, it.Quantity, cfg.Treatment)
		gst += lp.GST
		amount += lp.Total
	}
	return Totals{
		GST:    Round2(gst),
		Amount: RoundAmount(amount),
	}
}

// Round2 rounds a currency value to two decimal places, matching the wire
// format (JSON numbers with two decimals, not integer minor units).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundAmount truncates the payable amount to a whole number, rounding up
// only when the fractional part is exactly one half. The asymmetry is a
// billing-affecting compatibility requirement and must not be replaced with
// standard rounding.
func RoundAmount(v float64) float64 {
	whole := math.Floor(v)
	if v-whole == 0.5 {
		return whole + 1
	}
	return whole
}
