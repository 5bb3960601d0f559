package orcid

import (
	"fmt"
	"strings"
)

// The registry exposes a Solr-style textual query language. Queries are
// assembled as clause trees and rendered to that syntax only at the client
// boundary, so calling code never manipulates query strings directly.

type Clause interface {
	render() string
}

// Term matches a single field value. The value may carry a trailing
// wildcard; everything else is escaped.
type Term struct {
	Field string
	Value string
}

func (t Term) render() string {
	return fmt.Sprintf("%s:%s", t.Field, escapeTerm(t.Value))
}

// Phrase matches a field against an exact quoted phrase.
type Phrase struct {
	Field string
	Value string
}

func (p Phrase) render() string {
	return fmt.Sprintf("%s:%q", p.Field, strings.ReplaceAll(p.Value, `"`, ""))
}

// Raw is an already-rendered fragment, used for range filters the ADT does
// not model.
type Raw string

func (r Raw) render() string {
	return string(r)
}

type And []Clause

func (a And) render() string {
	return joinClauses(a, " AND ")
}

type Or []Clause

func (o Or) render() string {
	return joinClauses(o, " OR ")
}

func joinClauses(clauses []Clause, sep string) string {
	parts := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		if clause == nil {
			continue
		}
		rendered := clause.render()
		if rendered == "" {
			continue
		}
		parts = append(parts, rendered)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Render produces the registry query string for a clause tree.
func Render(clause Clause) string {
	if clause == nil {
		return ""
	}
	return clause.render()
}

// Solr special characters, minus '*' which callers use for suffix matching.
var termEscaper = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `&`, `\&`, `|`, `\|`, `!`, `\!`,
	`(`, `\(`, `)`, `\)`, `{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`,
	`^`, `\^`, `"`, `\"`, `~`, `\~`, `?`, `\?`, `:`, `\:`, `/`, `\/`,
)

func escapeTerm(value string) string {
	return termEscaper.Replace(value)
}

// RecentProfilesFilter restricts matches to profiles created in the last
// decade. Used to keep result sets for very common names bounded.
func RecentProfilesFilter() Clause {
	return Raw("profile-submission-date:[NOW-10YEARS TO NOW]")
}
