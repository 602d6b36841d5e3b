package normalizer

import (
	"strings"
	"unicode"

	"contactfix/pkg/model"
)

// CleanNumber removes all whitespace and hyphens from raw.
func CleanNumber(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// IsManaged reports whether number belongs to the scheme in either format.
func (s Scheme) IsManaged(number string) bool {
	cleaned := CleanNumber(number)
	return s.isLocal(cleaned) || s.isInternational(cleaned)
}

// NeedsReconciliation reports whether at least one managed number lacks its
// counterpart among the contact's own managed numbers.
func (s Scheme) NeedsReconciliation(numbers []model.PhoneNumber) bool {
	managed := make(map[string]struct{}, len(numbers))
	for _, pn := range numbers {
		cleaned := CleanNumber(pn.Number)
		if s.isLocal(cleaned) || s.isInternational(cleaned) {
			managed[cleaned] = struct{}{}
		}
	}

	for number := range managed {
		cp, _, ok := s.counterpart(number)
		if !ok {
			continue
		}
		if _, exists := managed[cp]; !exists {
			return true
		}
	}
	return false
}

// Variants returns the cleaned number followed by its counterpart when the
// number is managed. Lookups by any variant find the same caller.
func (s Scheme) Variants(number string) []string {
	cleaned := CleanNumber(number)
	if cleaned == "" {
		return nil
	}
	if cp, _, ok := s.counterpart(cleaned); ok {
		return []string{cleaned, cp}
	}
	return []string{cleaned}
}

// NormalizedSet returns every variant of every number, deduplicated, in first-seen order.
func (s Scheme) NormalizedSet(numbers []model.PhoneNumber) []string {
	seen := make(map[string]struct{}, len(numbers)*2)
	out := make([]string, 0, len(numbers)*2)
	for _, pn := range numbers {
		for _, v := range s.Variants(pn.Number) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func IsManaged(number string) bool {
	return DefaultScheme().IsManaged(number)
}

func NeedsReconciliation(numbers []model.PhoneNumber) bool {
	return DefaultScheme().NeedsReconciliation(numbers)
}

func Variants(number string) []string {
	return DefaultScheme().Variants(number)
}
