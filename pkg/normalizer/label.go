package normalizer

import "strings"

const Prime = "'"

// NextLabel returns baseLabel, stripped of trailing primes, followed by one
// more prime than the highest prime count found among existing labels that
// share the same base. Only labels made of the base plus primes are counted.
func NextLabel(baseLabel string, existing []string) string {
	base := strings.TrimRight(baseLabel, Prime)

	highest := 0
	for _, label := range existing {
		rest, ok := strings.CutPrefix(label, base)
		if !ok || strings.TrimLeft(rest, Prime) != "" {
			continue
		}
		highest = max(highest, len(rest))
	}

	return base + strings.Repeat(Prime, highest+1)
}
