// Package dedupe decides whether a candidate resource duplicates an existing
// published resource, and merges near-duplicates instead of creating twins.
package dedupe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// deaccent strips combining marks so "Café" and "Cafe" normalize equally.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// streetAbbrevs maps common street-type words to their postal abbreviations
// so "123 Oak Street" and "123 Oak St" compare equal.
var streetAbbrevs = map[string]string{
	"STREET":    "ST",
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"ROAD":      "RD",
	"DRIVE":     "DR",
	"LANE":      "LN",
	"COURT":     "CT",
	"PLACE":     "PL",
	"HIGHWAY":   "HWY",
	"PARKWAY":   "PKWY",
	"SUITE":     "STE",
	"NORTH":     "N",
	"SOUTH":     "S",
	"EAST":      "E",
	"WEST":      "W",
}

// NormalizeName standardizes a resource name for matching: trims, uppercases,
// folds diacritics, strips punctuation, and collapses whitespace.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(deaccent, name); err == nil {
		name = folded
	}
	name = strings.ToUpper(name)

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "AND",
		"-", " ",
		"/", " ",
		"(", " ",
		")", " ",
		"#", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NormalizeStreet standardizes a street address for exact comparison:
// uppercases, strips punctuation, abbreviates street-type words, and
// collapses whitespace.
func NormalizeStreet(street string) string {
	street = strings.TrimSpace(street)
	if street == "" {
		return ""
	}

	street = strings.ToUpper(street)
	street = strings.NewReplacer(",", " ", ".", "", "#", " ", "-", " ").Replace(street)
	street = multiSpaceRe.ReplaceAllString(street, " ")

	words := strings.Fields(street)
	for i, w := range words {
		if abbrev, ok := streetAbbrevs[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.Join(words, " ")
}

// NormalizePhone reduces a phone number to its national significant digits.
// A leading country code 1 on an 11-digit number is dropped.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}
