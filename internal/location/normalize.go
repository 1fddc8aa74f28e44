// Package location turns free-form location input into the list of sub-areas
// that drives the directory scraper fan-out.
package location

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidLocation is returned when the input carries no locality-level
// information (for example a bare state or territory name).
var ErrInvalidLocation = eris.New("location: locality-level input required")

// ErrAreaExpansion is returned when a broad location cannot be expanded into
// a structured list of sub-areas.
var ErrAreaExpansion = eris.New("location: area expansion produced no sub-areas")

// stateNameTokens are full state/territory names as token sequences. They
// are stripped only when they close the input, so localities that contain a
// state word ("Victoria Park", "Victoria Point") keep it.
var stateNameTokens = [][]string{
	{"australian", "capital", "territory"},
	{"northern", "territory"},
	{"new", "south", "wales"},
	{"western", "australia"},
	{"south", "australia"},
	{"queensland"},
	{"tasmania"},
	{"victoria"},
}

// stateAbbrevs are standalone state/territory tokens.
var stateAbbrevs = map[string]bool{
	"nsw": true,
	"vic": true,
	"qld": true,
	"wa":  true,
	"sa":  true,
	"tas": true,
	"act": true,
	"nt":  true,
}

var titleCaser = cases.Title(language.English)

// Normalize extracts the canonical locality from free-form input and returns
// it as "<Locality>, Australia". Country and state/territory tokens are
// stripped; if nothing remains the input was too broad and
// ErrInvalidLocation is returned. Deterministic, no I/O.
func Normalize(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", ErrInvalidLocation
	}

	// Punctuation separates tokens but never carries meaning here.
	s = strings.NewReplacer(",", " ", ".", " ", "(", " ", ")", " ", "/", " ").Replace(s)

	tokens := strings.Fields(s)

	// Peel state, territory, and country qualifiers off the tail. Full state
	// names are tried before the bare country token so "Western Australia"
	// comes off as one unit rather than leaving "western" behind.
	for len(tokens) > 0 {
		if n := trailingStateName(tokens); n > 0 {
			tokens = tokens[:len(tokens)-n]
			continue
		}
		last := tokens[len(tokens)-1]
		if last == "australia" || stateAbbrevs[last] {
			tokens = tokens[:len(tokens)-1]
			continue
		}
		break
	}

	// Abbreviation tokens elsewhere in the input are qualifiers too.
	kept := tokens[:0]
	for _, tok := range tokens {
		if stateAbbrevs[tok] {
			continue
		}
		kept = append(kept, tok)
	}

	if len(kept) == 0 {
		return "", ErrInvalidLocation
	}

	locality := titleCaser.String(strings.Join(kept, " "))
	return locality + ", Australia", nil
}

// trailingStateName reports how many tokens at the tail spell a full state
// or territory name, or 0 when none do.
func trailingStateName(tokens []string) int {
	for _, name := range stateNameTokens {
		n := len(name)
		if len(tokens) < n {
			continue
		}
		tail := tokens[len(tokens)-n:]
		match := true
		for i, w := range name {
			if tail[i] != w {
				match = false
				break
			}
		}
		if match {
			return n
		}
	}
	return 0
}

// Locality returns the locality portion of a canonical location string, i.e.
// everything before the country suffix.
func Locality(canonical string) string {
	if idx := strings.LastIndex(canonical, ","); idx >= 0 {
		return strings.TrimSpace(canonical[:idx])
	}
	return strings.TrimSpace(canonical)
}
