// Package phone normalizes volunteer phone numbers to the single canonical
// form Twilio expects: +1 followed by the bare digits.
package phone

import "strings"

const countryPrefix = "+1"

var separatorReplacer = strings.NewReplacer(
	"(", "",
	")", "",
	" ", "",
	"-", "",
	"‐", "", // U+2010, shows up in numbers pasted from spreadsheets
)

// Normalize strips parenthesis, space and hyphen separators and prefixes the
// US country code. It is idempotent: normalizing an already-normalized number
// returns it unchanged.
func Normalize(number string) string {
	stripped := separatorReplacer.Replace(number)
	if strings.HasPrefix(stripped, countryPrefix) {
		return stripped
	}
	return countryPrefix + stripped
}

// StripCountryCode removes the leading +1 from a normalized number. Roster
// rows store numbers without the prefix.
func StripCountryCode(number string) string {
	return strings.TrimPrefix(number, countryPrefix)
}
