package search

import "strings"

// countryVariants maps ISO country codes to the spellings that show up in
// registry affiliation data. The registry stores free-text affiliations, so
// the country filter has to tolerate local-language names and adjectives.
var countryVariants = map[string][]string{
	"AR": {"argentina", "argentine", "argentinian"},
	"AU": {"australia", "australian"},
	"BR": {"brazil", "brasil", "brazilian", "brasileira", "brasileiro"},
	"CA": {"canada", "canadian"},
	"CH": {"switzerland", "suisse", "schweiz", "swiss"},
	"CL": {"chile", "chilean"},
	"CN": {"china", "chinese"},
	"CO": {"colombia", "colombian"},
	"DE": {"germany", "deutschland", "german"},
	"ES": {"spain", "españa", "espana", "spanish"},
	"FR": {"france", "french"},
	"GB": {"united kingdom", "great britain", "england", "scotland", "wales", "british", "uk"},
	"IN": {"india", "indian"},
	"IT": {"italy", "italia", "italian"},
	"JP": {"japan", "japanese"},
	"KR": {"south korea", "korea", "korean"},
	"MX": {"mexico", "méxico", "mexican"},
	"NL": {"netherlands", "nederland", "dutch", "holland"},
	"PT": {"portugal", "portuguese"},
	"RU": {"russia", "russian"},
	"SE": {"sweden", "sverige", "swedish"},
	"US": {"united states", "usa", "american", "u.s."},
	"ZA": {"south africa", "south african"},
}

// resolveCountryCode maps a filter input (ISO code or country name) to an
// ISO code, or "" when unrecognized.
func resolveCountryCode(filter string) string {
	normalized := strings.ToLower(strings.TrimSpace(filter))
	if normalized == "" {
		return ""
	}

	upper := strings.ToUpper(normalized)
	if _, ok := countryVariants[upper]; ok {
		return upper
	}

	for code, variants := range countryVariants {
		for _, variant := range variants {
			if variant == normalized {
				return code
			}
		}
	}

	return ""
}

// filterVariants returns every name variant to test affiliations against for
// a country filter. An unrecognized filter falls back to the literal input.
func filterVariants(filter string) []string {
	if code := resolveCountryCode(filter); code != "" {
		return countryVariants[code]
	}
	return []string{strings.ToLower(strings.TrimSpace(filter))}
}

// countryMatches reports whether a candidate's country field satisfies the
// filter. The candidate value may be an ISO code or free text; an unknown
// country never matches an active filter.
func countryMatches(candidateCountry, filter string) bool {
	candidate := strings.ToLower(strings.TrimSpace(candidateCountry))
	if candidate == "" || candidate == "unknown" {
		return false
	}

	// ISO codes are too short for substring matching; compare them exactly.
	if code := resolveCountryCode(filter); code != "" && strings.EqualFold(candidate, code) {
		return true
	}

	for _, variant := range filterVariants(filter) {
		if strings.Contains(candidate, variant) {
			return true
		}
	}

	return false
}
