package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"contactfix/pkg/model"
)

const DefaultRegion = "RW"

// NormalizeNumber trims a number as entered. Spaces and hyphens inside it are
// kept so stored numbers look the way the user typed them.
func NormalizeNumber(number string) string {
	return strings.TrimSpace(number)
}

// NormalizePhone returns the E.164 form of phone, parsed with region as the
// default country, or "" when it cannot be parsed.
func NormalizePhone(phone, region string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	parsedNumber, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return ""
	}
	return phonenumbers.Format(parsedNumber, phonenumbers.E164)
}

// E164 is NormalizePhone with DefaultRegion.
func E164(phone string) string {
	return NormalizePhone(phone, DefaultRegion)
}

// NormalizePhoneNumbers returns a copy with sanitized labels and numbers,
// dropping entries left without a number.
func NormalizePhoneNumbers(numbers []model.PhoneNumber) []model.PhoneNumber {
	out := make([]model.PhoneNumber, 0, len(numbers))
	for _, pn := range numbers {
		pn.Label = NormalizeLabel(pn.Label)
		pn.Number = NormalizeNumber(pn.Number)
		if pn.Number == "" {
			continue
		}
		out = append(out, pn)
	}
	return out
}
