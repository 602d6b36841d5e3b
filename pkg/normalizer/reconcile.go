package normalizer

import "contactfix/pkg/model"

// Missing returns the counterparts Reconcile would append, in append order:
// counterparts of local numbers first, then of international numbers.
func (s Scheme) Missing(numbers []model.PhoneNumber) []model.PhoneNumber {
	labels := make([]string, 0, len(numbers))
	present := make(map[string]struct{}, len(numbers))
	for _, pn := range numbers {
		labels = append(labels, pn.Label)
		present[CleanNumber(pn.Number)] = struct{}{}
	}

	var added []model.PhoneNumber
	for _, wantLocal := range []bool{true, false} {
		for _, pn := range numbers {
			cp, fromLocal, ok := s.counterpart(CleanNumber(pn.Number))
			if !ok || fromLocal != wantLocal {
				continue
			}
			if _, exists := present[cp]; exists {
				continue
			}

			label := NextLabel(pn.Label, labels)
			added = append(added, model.PhoneNumber{Label: label, Number: cp})
			labels = append(labels, label)
			present[cp] = struct{}{}
		}
	}
	return added
}

// Reconcile returns numbers with every missing counterpart appended. Existing
// entries are kept unchanged and in order; the input slice is not modified.
func (s Scheme) Reconcile(numbers []model.PhoneNumber) []model.PhoneNumber {
	added := s.Missing(numbers)
	out := make([]model.PhoneNumber, 0, len(numbers)+len(added))
	out = append(out, numbers...)
	return append(out, added...)
}

func Reconcile(numbers []model.PhoneNumber) []model.PhoneNumber {
	return DefaultScheme().Reconcile(numbers)
}
