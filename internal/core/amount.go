package core

import "strings"

// FormatAmount normalizes free-form input into a grouped-digit string:
// non-digits are dropped, leading zeros collapse, and thousands are
// separated with commas ("1234" -> "1,234"). Input with no digits yields
// the empty string. Amounts live on the subtask instance rather than the
// template, so the same recurring vendor can carry a different amount every
// period.
func FormatAmount(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if digits == "" {
		if b.Len() > 0 {
			return "0"
		}
		return ""
	}
	return groupThousands(digits)
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var out strings.Builder
	head := n % 3
	if head > 0 {
		out.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if out.Len() > 0 {
			out.WriteByte(',')
		}
		out.WriteString(digits[i : i+3])
	}
	return out.String()
}
