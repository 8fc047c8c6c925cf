// Package money renders minor-unit amounts using storefront money format
// templates such as "{{amount}} EUR" or "${{amount_no_decimals}}".
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultFormat is used when no format template is configured.
const DefaultFormat = "{{amount}} EUR"

var placeholder = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

type style struct {
	precision int32
	thousands string
	decimal   string
}

var styles = map[string]style{
	"amount":                                  {precision: 2, thousands: " ", decimal: ","},
	"amount_no_decimals":                      {precision: 0, thousands: " ", decimal: ","},
	"amount_with_comma_separator":             {precision: 2, thousands: ".", decimal: ","},
	"amount_no_decimals_with_comma_separator": {precision: 0, thousands: ".", decimal: ","},
}

// Format replaces the first placeholder of format with cents rendered in the
// placeholder's style. Unknown placeholder names fall back to "amount". An
// empty format means DefaultFormat.
func Format(cents int64, format string) string {
	if format == "" {
		format = DefaultFormat
	}

	loc := placeholder.FindStringSubmatchIndex(format)
	if loc == nil {
		return format
	}

	st, ok := styles[format[loc[2]:loc[3]]]
	if !ok {
		st = styles["amount"]
	}

	return format[:loc[0]] + withDelimiters(cents, st) + format[loc[1]:]
}

// Formatter binds a format template so callers don't have to carry it around.
type Formatter struct {
	format string
}

// NewFormatter returns a Formatter for the given template.
func NewFormatter(format string) Formatter {
	return Formatter{format: format}
}

// Format renders cents with the bound template.
func (f Formatter) Format(cents int64) string {
	return Format(cents, f.format)
}

func withDelimiters(cents int64, st style) string {
	fixed := decimal.New(cents, -2).StringFixed(st.precision)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}

	units, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteString(st.thousands)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(st.decimal)
		b.WriteString(frac)
	}
	return b.String()
}

// MaxAmount bounds ParseAmount, in major units. Larger magnitudes clamp.
var MaxAmount = decimal.New(1, 15)

// ParseAmount reads a major-unit decimal such as "25", "19.9" or "19.90" and
// returns it in cents, rounded half away from zero. Magnitudes beyond
// MaxAmount clamp to it. ok is false when raw is not a number.
func ParseAmount(raw string) (cents int64, ok bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	switch {
	case d.GreaterThan(MaxAmount):
		d = MaxAmount
	case d.LessThan(MaxAmount.Neg()):
		d = MaxAmount.Neg()
	}
	return d.Shift(2).Round(0).IntPart(), true
}
