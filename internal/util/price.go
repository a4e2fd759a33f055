package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyPrefix = regexp.MustCompile(`(?i)^(rp\.?|idr)\s*`)
	thousandSuffix = regexp.MustCompile(`(?i)\s*(k|rb|ribu)\.?$`)
	groupedDots    = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	groupedCommas  = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	groupedSpaces  = regexp.MustCompile(`^\d{1,3}(?:\s\d{3})+$`)
)

// ParsePrice reads a price cell as written in Indonesian price lists:
// "Rp 12.500" -> 12500, "8.000" -> 8000, "8k" -> 8000, "25 rb" -> 25000,
// "1,5" -> 1.5. Returns false when no usable number is present.
func ParsePrice(input string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(input, " ", " "))
	if s == "" {
		return 0, false
	}
	s = currencyPrefix.ReplaceAllString(s, "")

	scale := 1.0
	if m := thousandSuffix.FindString(s); m != "" {
		scale = 1000
		s = strings.TrimSpace(thousandSuffix.ReplaceAllString(s, ""))
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(NormalizeNumericToken(s), 64)
	if err != nil {
		return 0, false
	}
	return value * scale, true
}

// NormalizeNumericToken resolves separator ambiguity: "12.500" is twelve
// thousand five hundred, "12,5" is twelve and a half.
func NormalizeNumericToken(token string) string {
	compact := strings.TrimSpace(token)
	if groupedSpaces.MatchString(compact) {
		return strings.ReplaceAll(compact, " ", "")
	}
	compact = strings.ReplaceAll(compact, " ", "")
	if groupedDots.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if groupedCommas.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	// "1.234,56" style: dots group, comma is the decimal point.
	if strings.Contains(compact, ",") && strings.Contains(compact, ".") {
		compact = strings.ReplaceAll(compact, ".", "")
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

// HasThousandsSuffix reports whether a raw price cell itself carries a
// scale suffix ("8k", "25 rb") that ParsePrice has already applied.
func HasThousandsSuffix(input string) bool {
	s := currencyPrefix.ReplaceAllString(strings.TrimSpace(input), "")
	return thousandSuffix.MatchString(s)
}

// IsThousandsMarker reports whether a unit-column token is a price-scale
// suffix rather than a measurement unit.
func IsThousandsMarker(token string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.TrimSuffix(token, "."))) {
	case "k", "rb", "ribu":
		return true
	default:
		return false
	}
}
