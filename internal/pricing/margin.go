package pricing

import (
	"math"
	"strconv"
	"strings"
)

// DefaultMarginPercent is applied when a customer carries no usable margin
// configuration.
const DefaultMarginPercent = 40

// TaxTreatment states whether selling prices already contain GST.
type TaxTreatment string

const (
	// TaxExclusive adds GST on top of the selling price.
	TaxExclusive TaxTreatment = "exclusive"
	// TaxInclusive treats the selling price as already containing GST.
	TaxInclusive TaxTreatment = "inclusive"
)

// ParseTaxTreatment normalises a raw treatment value, defaulting to
// exclusive for anything unrecognised.
func ParseTaxTreatment(value string) TaxTreatment {
	if strings.EqualFold(strings.TrimSpace(value), string(TaxInclusive)) {
		return TaxInclusive
	}
	return TaxExclusive
}

// Config captures one customer's margin configuration for a cart session.
// It is an immutable snapshot: loaded when the customer is selected and
// replaced wholesale when the customer changes.
type Config struct {
	DefaultMargin  string
	Treatment      TaxTreatment
	SpecialMargins map[string]string
}

// MarginFor resolves the margin percent for a product under this config.
func (c Config) MarginFor(productID string) float64 {
	return ResolveMarginPercent(productID, c.DefaultMargin, c.SpecialMargins)
}

// ResolveMarginPercent returns the special margin for the product when one
// exists, otherwise the customer default, otherwise 40. Values are percent
// strings that may carry a trailing "%". The result is not clamped:
// out-of-range margins are a data-quality issue surfaced upstream, not
// silently corrected here.
func ResolveMarginPercent(productID, customerDefault string, special map[string]string) float64 {
	if raw, ok := special[productID]; ok {
		if v, ok := ParseMargin(raw); ok {
			return v
		}
		return DefaultMarginPercent
	}
	if v, ok := ParseMargin(customerDefault); ok {
		return v
	}
	return DefaultMarginPercent
}

// ParseMargin parses a margin percent string, stripping a trailing "%".
// It reports false for empty or unparsable input, including NaN.
func ParseMargin(value string) (float64, bool) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatMargin renders a margin percent in the wire format carried by the
// backend, always suffixed with a literal "%".
func FormatMargin(percent float64) string {
	return strconv.FormatFloat(percent, 'f', -1, 64) + "%"
}
