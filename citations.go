package main

import (
	"regexp"
	"strings"
)

// ParsedCitation holds the components of a parsed case citation.
type ParsedCitation struct {
	CaseName string `json:"case_name"`
	Volume   string `json:"volume"`
	Reporter string `json:"reporter"`
	Page     string `json:"page"`
	Pinpoint string `json:"pinpoint,omitempty"`
	Court    string `json:"court,omitempty"`
	Year     string `json:"year"`
	Raw      string `json:"raw"`
}

// Citation patterns: "Name v. Name, Volume Reporter Page (Court Year)" with
// an optional pinpoint page, and a simpler year-only variant.
var (
	fullCitationPattern = regexp.MustCompile(
		`(?i)^(.+?)\s*,\s*(\d+)\s+([A-Za-z.\s]+?\d*[a-z]*)\s+(\d+)(?:\s*,\s*(\d+))?\s*\(([^)]+?)\s+(\d{4})\)`)
	simpleCitationPattern = regexp.MustCompile(
		`(?i)^(.+?)\s*,\s*(\d+)\s+([A-Za-z.\s]+?\d*[a-z]*)\s+(\d+)\s*\((\d{4})\)`)
	// Party names are runs of capitalized words, allowing the connectors
	// common in case names ("Board of Education").
	partyName             = `[A-Z][A-Za-z.']*(?:\s+(?:of|the|and|[A-Z][A-Za-z.']*))*`
	inTextCitationPattern = regexp.MustCompile(
		`\b` + partyName + `\s+v\.\s+` + partyName + `,\s*\d+\s+[A-Za-z.\s]+?\d*[a-z]*\s+\d+\s*\([^)]+\)`)
)

// ParseCaseCitation parses a legal case citation like
// "Brown v. Board of Education, 347 U.S. 483 (1954)". Returns nil when the
// string does not look like a citation.
func ParseCaseCitation(citation string) *ParsedCitation {
	trimmed := strings.TrimSpace(citation)

	if m := fullCitationPattern.FindStringSubmatch(trimmed); m != nil {
		return &ParsedCitation{
			CaseName: strings.TrimSpace(m[1]),
			Volume:   m[2],
			Reporter: strings.TrimSpace(m[3]),
			Page:     m[4],
			Pinpoint: m[5],
			Court:    strings.TrimSpace(m[6]),
			Year:     m[7],
			Raw:      citation,
		}
	}

	if m := simpleCitationPattern.FindStringSubmatch(trimmed); m != nil {
		return &ParsedCitation{
			CaseName: strings.TrimSpace(m[1]),
			Volume:   m[2],
			Reporter: strings.TrimSpace(m[3]),
			Page:     m[4],
			Year:     m[5],
			Raw:      citation,
		}
	}

	return nil
}

// FormatBluebookCitation renders a parsed citation in Bluebook order.
func FormatBluebookCitation(p *ParsedCitation) string {
	var b strings.Builder
	b.WriteString(p.CaseName)
	b.WriteString(", ")
	b.WriteString(p.Volume)
	b.WriteString(" ")
	b.WriteString(p.Reporter)
	b.WriteString(" ")
	b.WriteString(p.Page)
	if p.Pinpoint != "" {
		b.WriteString(", ")
		b.WriteString(p.Pinpoint)
	}
	if p.Court != "" {
		b.WriteString(" (")
		b.WriteString(p.Court)
		b.WriteString(" ")
		b.WriteString(p.Year)
		b.WriteString(")")
	} else {
		b.WriteString(" (")
		b.WriteString(p.Year)
		b.WriteString(")")
	}
	return b.String()
}

// ExtractCitationsFromText pulls case citations out of a block of prose,
// deduplicated in order of first appearance. Used to index the authorities
// a synthesis memorandum relies on.
func ExtractCitationsFromText(text string) []string {
	matches := inTextCitationPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	citations := make([]string, 0, len(matches))
	for _, m := range matches {
		c := strings.TrimSpace(m)
		if !seen[c] {
			seen[c] = true
			citations = append(citations, c)
		}
	}
	return citations
}
