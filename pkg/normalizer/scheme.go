package normalizer

import (
	"errors"
	"fmt"
	"strings"
)

const (
	LocalPrefix = "07"
	IntlPrefix  = "+2507"
)

var ErrInvalidScheme = errors.New("invalid numbering scheme")

// Scheme holds the two prefixes that identify managed numbers.
type Scheme struct {
	LocalPrefix string
	IntlPrefix  string
}

// DefaultScheme returns the Rwandan mobile scheme: "07…" locally, "+2507…" internationally.
func DefaultScheme() Scheme {
	return Scheme{
		LocalPrefix: LocalPrefix,
		IntlPrefix:  IntlPrefix,
	}
}

// NewScheme builds a scheme from configured prefixes. Prefixes are cleaned
// first and must be non-empty and not prefixes of one another, otherwise the
// format of a number would be ambiguous.
func NewScheme(localPrefix, intlPrefix string) (Scheme, error) {
	local := CleanNumber(localPrefix)
	intl := CleanNumber(intlPrefix)

	if local == "" || intl == "" {
		return Scheme{}, fmt.Errorf("%w: prefixes cannot be empty", ErrInvalidScheme)
	}
	if strings.HasPrefix(local, intl) || strings.HasPrefix(intl, local) {
		return Scheme{}, fmt.Errorf("%w: %q and %q overlap", ErrInvalidScheme, local, intl)
	}

	return Scheme{LocalPrefix: local, IntlPrefix: intl}, nil
}

func (s Scheme) isLocal(cleaned string) bool {
	return strings.HasPrefix(cleaned, s.LocalPrefix)
}

func (s Scheme) isInternational(cleaned string) bool {
	return strings.HasPrefix(cleaned, s.IntlPrefix)
}

// toInternational requires a cleaned number in local format.
func (s Scheme) toInternational(cleaned string) string {
	return s.IntlPrefix + cleaned[len(s.LocalPrefix):]
}

// toLocal requires a cleaned number in international format.
func (s Scheme) toLocal(cleaned string) string {
	return s.LocalPrefix + cleaned[len(s.IntlPrefix):]
}

// counterpart returns the other-format form of a cleaned number. ok is false
// for numbers outside the scheme and for managed numbers whose subscriber part
// carries a second country code, such as "+2507+250788123456".
func (s Scheme) counterpart(cleaned string) (cp string, fromLocal bool, ok bool) {
	switch {
	case s.isInternational(cleaned):
		if gluedCountryCode(cleaned[len(s.IntlPrefix):]) {
			return "", false, false
		}
		return s.toLocal(cleaned), false, true
	case s.isLocal(cleaned):
		if gluedCountryCode(cleaned[len(s.LocalPrefix):]) {
			return "", false, false
		}
		return s.toInternational(cleaned), true, true
	}
	return "", false, false
}

func gluedCountryCode(subscriber string) bool {
	return strings.Contains(subscriber, "+")
}
