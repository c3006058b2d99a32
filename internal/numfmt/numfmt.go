// Package numfmt normalizes locale-formatted numeric strings as they
// appear on the fiscal verification portal: "." groups thousands and ","
// separates decimals, so "1.839,96" means 1839.96.
package numfmt

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Warning records a numeric field that could not be parsed and was
// defaulted to zero. It is a diagnostic, not an error: Parse is total and
// normal input never triggers control flow through errors.
type Warning struct {
	// Input is the original string as seen in the document.
	Input string
	// Cleaned is the string after separator substitution, kept for
	// diagnostics when the substitution itself produced garbage.
	Cleaned string
}

// Parse converts a locale-formatted number to an exact decimal. The rule
// is fixed: keep only [-0-9.,], drop all ".", turn "," into ".". Empty or
// unparseable input yields zero plus a Warning. Strings with multiple
// interior separators ("12,34,56") resolve through the same substitution
// and also default to zero; that behavior is intentional and covered by
// tests.
func Parse(s string) (decimal.Decimal, *Warning) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, &Warning{Input: s, Cleaned: ""}
	}

	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '.', r == ',':
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero, &Warning{Input: s, Cleaned: cleaned}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &Warning{Input: s, Cleaned: cleaned}
	}
	return d, nil
}

// ParseInt reads a plain integer counter field. Counters on the portal
// carry no separators, but stray text still defaults to zero.
func ParseInt(s string) (int64, *Warning) {
	d, w := Parse(s)
	if w != nil {
		return 0, w
	}
	return d.IntPart(), nil
}
