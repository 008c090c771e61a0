package panels

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// naturalLess orders strings with embedded numbers by value, so that
// "img2" sorts before "img10". Text runs compare case-insensitively.
func naturalLess(a, b string) bool {
	ra, rb := chunks(a), chunks(b)
	for i := 0; i < len(ra) && i < len(rb); i++ {
		ca, cb := ra[i], rb[i]
		na, errA := strconv.Atoi(ca)
		nb, errB := strconv.Atoi(cb)
		if errA == nil && errB == nil {
			if na != nb {
				return na < nb
			}
			continue
		}
		if c := strings.Compare(strings.ToLower(ca), strings.ToLower(cb)); c != 0 {
			return c < 0
		}
	}
	return len(ra) < len(rb)
}

// chunks splits s into alternating runs of digits and non-digits.
func chunks(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsDigit(r) != unicode.IsDigit(rune(s[i-1])) {
			out = append(out, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func sortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })
}

// parsePositive parses a strictly positive whole number from an entry.
func parsePositive(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive whole number", field)
	}
	return n, nil
}

// parseNumber parses a number from an entry.
func parseNumber(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	return v, nil
}
