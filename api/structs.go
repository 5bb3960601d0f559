package api

import (
	"encoding/json"
	"strings"
)

// Count is a citation or publication count that may not be known. External
// sources frequently omit counts, and a missing count is not the same thing
// as a confirmed zero, so the two are kept distinct.
type Count int

const Unknown Count = -1

func (c Count) Known() bool {
	return c >= 0
}

func (c Count) MarshalJSON() ([]byte, error) {
	if c < 0 {
		return json.Marshal("unknown")
	}
	return json.Marshal(int(c))
}

func (c *Count) UnmarshalJSON(data []byte) error {
	if strings.HasPrefix(strings.TrimSpace(string(data)), `"`) {
		*c = Unknown
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Count(n)
	return nil
}

const (
	OpenAlexSource        = "openalex"
	SemanticScholarSource = "semantic-scholar"
	CrossrefSource        = "crossref"
)

const (
	SearchTypeName     = "name"
	SearchTypeKeywords = "keywords"
)

type ResearcherCandidate struct {
	RegistryId       string   `json:"registry_id"`
	DisplayName      string   `json:"display_name"`
	Country          string   `json:"country"`
	Keywords         []string `json:"keywords"`
	CitationCount    Count    `json:"citation_count"`
	PublicationCount Count    `json:"publication_count"`
	Rank             int      `json:"rank"`
}

type Publication struct {
	Title         string `json:"title"`
	Year          int    `json:"year"`
	Venue         string `json:"venue,omitempty"`
	CitationCount Count  `json:"citation_count"`
	Doi           string `json:"doi,omitempty"`
}

type Affiliation struct {
	Organization string `json:"organization"`
	Role         string `json:"role,omitempty"`
	StartYear    int    `json:"start_year,omitempty"`
	EndYear      int    `json:"end_year,omitempty"`
}

type ResearcherProfile struct {
	RegistryId     string        `json:"registry_id"`
	DisplayName    string        `json:"display_name"`
	Country        string        `json:"country"`
	Email          string        `json:"email,omitempty"`
	Website        string        `json:"website,omitempty"`
	Biography      string        `json:"biography,omitempty"`
	Keywords       []string      `json:"keywords"`
	Publications   []Publication `json:"publications"`
	TotalCitations Count         `json:"total_citations"`
	HIndex         Count         `json:"h_index"`
	Employments    []Affiliation `json:"employments"`
	Educations     []Affiliation `json:"educations"`
	EnhancedWith   []string      `json:"enhanced_with"`
}

type SearchResponse struct {
	Researchers []ResearcherCandidate `json:"researchers"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}
