package exitnode

import "strings"

// multiWordCountries is the allow-list used by the words strategy to keep
// "United Kingdom" from being split into country "United", city "Kingdom".
// Names missing from this list will mis-split; add them via config.
var multiWordCountries = []string{
	"Bosnia and Herzegovina",
	"Costa Rica",
	"Czech Republic",
	"Dominican Republic",
	"El Salvador",
	"Hong Kong",
	"New Zealand",
	"North Macedonia",
	"Puerto Rico",
	"Saudi Arabia",
	"South Africa",
	"South Korea",
	"Sri Lanka",
	"United Arab Emirates",
	"United Kingdom",
	"United States",
}

// CountrySet is a set of multi-word country names.
type CountrySet map[string]struct{}

// DefaultCountries returns the built-in allow-list plus any extra names.
// Extras with fewer than two words are ignored since single words never
// need special handling.
func DefaultCountries(extra ...string) CountrySet {
	set := make(CountrySet, len(multiWordCountries)+len(extra))
	for _, c := range multiWordCountries {
		set[c] = struct{}{}
	}
	for _, c := range extra {
		c = strings.Join(strings.Fields(c), " ")
		if strings.Contains(c, " ") {
			set[c] = struct{}{}
		}
	}
	return set
}

// Contains reports whether name is a listed multi-word country.
func (s CountrySet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}
