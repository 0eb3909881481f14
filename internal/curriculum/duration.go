package curriculum

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var leadingInt = regexp.MustCompile(`^\s*(\d+)`)

// ParseDuration reads a free-text estimate such as "10-15 mins" or "5 mins".
// Each side of the dash contributes its leading digits, so trailing words
// are ignored. A single number yields min == max; anything unreadable counts
// as zero.
func ParseDuration(s string) (lo, hi int) {
	parts := strings.Split(s, "-")
	if len(parts) == 2 {
		return leadingIntOrZero(parts[0]), leadingIntOrZero(parts[1])
	}
	n := leadingIntOrZero(parts[0])
	return n, n
}

func leadingIntOrZero(s string) int {
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Estimate sums every topic's parsed duration.
func (c Curriculum) Estimate() (lo, hi int) {
	for _, t := range c.Topics {
		a, b := ParseDuration(t.Duration)
		lo += a
		hi += b
	}
	return lo, hi
}

// FormatRange renders a minute range as "20-30 mins".
func FormatRange(lo, hi int) string {
	return fmt.Sprintf("%d-%d mins", lo, hi)
}
