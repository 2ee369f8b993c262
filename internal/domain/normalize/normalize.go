// Package normalize canonicalizes donor field values before comparison.
//
// Every function is pure. An empty result means "no evidence": callers skip
// the field instead of treating it as a mismatch.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/okian/dupscan/internal/domain/model"
)

// phoneSeparators are stripped from phone numbers.
const phoneSeparators = " -.()"

// Text composes to NFC, folds case and trims surrounding whitespace. Used for
// names and addresses. Accents are kept: "é" and "e" still differ.
func Text(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// Email composes to NFC and lowercases an address for exact comparison.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// Phone removes space, dash, dot and parenthesis characters.
func Phone(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(phoneSeparators, r) {
			return -1
		}
		return r
	}, s)
}

// PostalCode removes all whitespace, including internal spaces.
func PostalCode(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, norm.NFC.String(s))
}

// ContactPhone returns the normalized phone, falling back to mobile when the
// phone is absent or normalizes to nothing.
func ContactPhone(r model.DonorRecord) string {
	if p := Phone(model.Value(r.Phone)); p != "" {
		return p
	}
	return Phone(model.Value(r.Mobile))
}

// rawContactPhone returns the unnormalized value ContactPhone was derived from.
func rawContactPhone(r model.DonorRecord) string {
	if Phone(model.Value(r.Phone)) != "" {
		return model.Value(r.Phone)
	}
	return model.Value(r.Mobile)
}

// Record is the normalized view of a donor used by the comparators.
// Raw keeps the display values reported back in field matches.
type Record struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	PostalCode string

	Raw map[model.Field]string
}

// Normalize builds the comparison view of r.
func Normalize(r model.DonorRecord) Record {
	return Record{
		Email:      Email(model.Value(r.Email)),
		FirstName:  Text(r.FirstName),
		LastName:   Text(r.LastName),
		Phone:      ContactPhone(r),
		Address:    Text(model.Value(r.Address)),
		PostalCode: PostalCode(model.Value(r.PostalCode)),
		Raw: map[model.Field]string{
			model.FieldEmail:      model.Value(r.Email),
			model.FieldFirstName:  r.FirstName,
			model.FieldLastName:   r.LastName,
			model.FieldPhone:      rawContactPhone(r),
			model.FieldAddress:    model.Value(r.Address),
			model.FieldPostalCode: model.Value(r.PostalCode),
		},
	}
}

// Value returns the normalized value of field f.
func (n Record) Value(f model.Field) string {
	switch f {
	case model.FieldEmail:
		return n.Email
	case model.FieldFirstName:
		return n.FirstName
	case model.FieldLastName:
		return n.LastName
	case model.FieldPhone:
		return n.Phone
	case model.FieldAddress:
		return n.Address
	case model.FieldPostalCode:
		return n.PostalCode
	default:
		return ""
	}
}
