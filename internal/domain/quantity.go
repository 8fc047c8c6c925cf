package domain

import "strings"

// CoerceQuantity reads a quantity typed by the visitor. Like the storefront's
// parseInt it takes an optional sign and the leading digits, ignoring the
// rest. Empty, non-numeric and negative input all become 0.
func CoerceQuantity(raw string) int {
	raw = strings.TrimSpace(raw)

	neg := false
	switch {
	case strings.HasPrefix(raw, "-"):
		neg, raw = true, raw[1:]
	case strings.HasPrefix(raw, "+"):
		raw = raw[1:]
	}

	n := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		if n > MaxQuantity {
			n = MaxQuantity
		}
	}

	if neg {
		return 0
	}
	return n
}

// ClampQuantity maps negative quantities to 0 and caps absurd ones.
func ClampQuantity(q int) int {
	switch {
	case q < 0:
		return 0
	case q > MaxQuantity:
		return MaxQuantity
	default:
		return q
	}
}

// MaxQuantity bounds a single line so coerced input can't overflow.
const MaxQuantity = 1_000_000
