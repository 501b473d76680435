package utils

import (
	"strconv"
	"strings"
)

// FormatKRW formats a whole won amount with thousands separators.
// Example: 13000 -> "₩13,000"
func FormatKRW(amount int64) string {
	return "₩" + FormatThousands(amount)
}

// FormatThousands inserts a comma every three digits.
func FormatThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
