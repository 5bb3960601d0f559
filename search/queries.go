package search

import (
	"strings"

	"scholar/orcid"
)

// Names so common that an unconstrained registry query returns tens of
// thousands of profiles. Queries for them get an extra recency filter.
var veryCommonNames = map[string]bool{
	"chen":   true,
	"garcia": true,
	"john":   true,
	"kim":    true,
	"kumar":  true,
	"lee":    true,
	"li":     true,
	"liu":    true,
	"maria":  true,
	"santos": true,
	"silva":  true,
	"smith":  true,
	"wang":   true,
	"zhang":  true,
}

// nameClause builds the registry clause for a person-name query. Multi-word
// names split into given/family parts with suffix wildcards; single-word
// queries match either name field, plus a recency filter when the word is a
// very common name.
func nameClause(name string) orcid.Clause {
	parts := strings.Fields(strings.ToLower(name))

	switch len(parts) {
	case 0:
		return nil
	case 1:
		clause := orcid.Or{
			orcid.Term{Field: "given-names", Value: parts[0] + "*"},
			orcid.Term{Field: "family-name", Value: parts[0] + "*"},
		}
		if veryCommonNames[parts[0]] {
			return orcid.And{clause, orcid.RecentProfilesFilter()}
		}
		return clause
	default:
		given := parts[0]
		family := parts[len(parts)-1]
		return orcid.And{
			orcid.Term{Field: "given-names", Value: given + "*"},
			orcid.Term{Field: "family-name", Value: family + "*"},
		}
	}
}

// keywordClause ORs the comma- or space-separated terms of a keyword query
// as quoted phrases.
func keywordClause(query string) orcid.Clause {
	terms := splitKeywordTerms(query)
	if len(terms) == 0 {
		return nil
	}

	clauses := make(orcid.Or, 0, len(terms))
	for _, term := range terms {
		clauses = append(clauses, orcid.Phrase{Field: "keyword", Value: term})
	}
	return clauses
}

// splitKeywordTerms splits on commas when present, so multi-word phrases
// survive ("machine learning, genomics"), and on whitespace otherwise.
func splitKeywordTerms(query string) []string {
	var parts []string
	if strings.ContainsAny(query, ",;") {
		parts = strings.FieldsFunc(query, func(r rune) bool {
			return r == ',' || r == ';'
		})
	} else {
		parts = strings.Fields(query)
	}

	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		if term := strings.TrimSpace(part); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// countryClause ORs the affiliation-name variants of a country so that
// profiles whose institutions mention the country in any spelling match.
func countryClause(country string) orcid.Clause {
	variants := filterVariants(country)
	if len(variants) == 0 {
		return nil
	}

	clauses := make(orcid.Or, 0, len(variants))
	for _, variant := range variants {
		clauses = append(clauses, orcid.Phrase{Field: "affiliation-org-name", Value: variant})
	}
	return clauses
}
