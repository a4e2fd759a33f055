package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeKey produces the comparison form used for matching keys:
// lower-cased, whitespace collapsed, trimmed.
func NormalizeKey(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	return reSpaces.ReplaceAllString(s, " ")
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func Tokenize(input string) []string {
	parts := strings.Split(NormalizeKey(input), " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// TitleWords capitalizes each word, used for display names.
func TitleWords(input string) string {
	parts := strings.Fields(strings.ToLower(input))
	for i, p := range parts {
		r := []rune(p)
		if len(r) > 0 {
			parts[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(parts, " ")
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func Int64Ptr(v int64) *int64 { return &v }
