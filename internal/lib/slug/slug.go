// Package slug turns customer names into the local part of an email address.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Polish letters that do not decompose under NFD.
var replacer = strings.NewReplacer("ł", "l", "Ł", "L")

// EmailLocalPart lower-cases name, strips diacritics and replaces the first
// space with a dot: "Piotr Wiśniewski" -> "piotr.wisniewski".
func EmailLocalPart(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	stripped, _, err := transform.String(t, replacer.Replace(strings.ToLower(strings.TrimSpace(name))))
	if err != nil {
		stripped = strings.ToLower(name)
	}

	return strings.Replace(stripped, " ", ".", 1)
}

// Email builds a normalized address in domain.
func Email(name, domain string) string {
	return EmailLocalPart(name) + "@" + domain
}
