package main

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// anonymousLabels is the label alphabet for blind review. One deliberation
// never carries more analyses than this alphabet has letters.
const anonymousLabels = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrTooManyAnalyses is returned when the label alphabet is exhausted.
var ErrTooManyAnalyses = errors.New("too many analyses to anonymize: label alphabet exhausted")

// rankingTailWindow is how much of the tail of an evaluation is scanned when
// no explicit ranking marker is present. Rankings, even unlabeled, are
// conventionally placed at the end.
const rankingTailWindow = 500

// CreateAnonymousLabels assigns labels A, B, C... to analyses in input order.
// It returns the labeled analyses in the same order plus a reverse mapping
// from label to producing role. Deterministic for a given input order.
func CreateAnonymousLabels(analyses []Analysis) ([]LabeledAnalysis, map[string]string, error) {
	if len(analyses) > len(anonymousLabels) {
		return nil, nil, ErrTooManyAnalyses
	}

	labeled := make([]LabeledAnalysis, 0, len(analyses))
	labelToRole := make(map[string]string, len(analyses))

	for i, a := range analyses {
		label := string(anonymousLabels[i])
		labeled = append(labeled, LabeledAnalysis{
			Label:   label,
			Role:    a.Role,
			Model:   a.Model,
			Content: a.Content,
		})
		labelToRole[label] = a.Role
	}

	return labeled, labelToRole, nil
}

// Patterns for pulling ranked labels out of free-form evaluation text.
var (
	// Numbered-list entries: "1. A", "2) Analysis B", "#3: C", "1. Analysis A - reason".
	numberedEntryPattern = regexp.MustCompile(`(?i)^\s*#?\d+\s*[.):\-]?\s*(?:Analysis\s+)?([A-Za-z])\b`)

	// Loose pass: any standalone single-letter token.
	looseLabelPattern = regexp.MustCompile(`\b([A-Z])\b`)
)

// ExtractRankingFromText recovers an ordered ranking of labels (best first)
// from a model's free-form evaluation. The fallback chain is the contract,
// not an implementation detail:
//
//  1. take the text after a "FINAL RANKING:" marker (case-insensitive), or
//     after "RANKING:", or the last 500 characters if neither is present;
//  2. collect labels from numbered-list entries, skipping duplicates and
//     tokens outside the valid set;
//  3. if labels are still missing, re-scan the same region for standalone
//     label tokens;
//  4. append any valid label never mentioned, in the valid set's own order,
//     so the consumer always receives a total ordering.
//
// The result is always a permutation of exactly validLabels.
func ExtractRankingFromText(text string, validLabels []string) []string {
	region := rankingRegion(text)

	valid := make(map[string]bool, len(validLabels))
	for _, l := range validLabels {
		valid[l] = true
	}

	var ranking []string
	seen := make(map[string]bool, len(validLabels))

	appendLabel := func(raw string) {
		label := strings.ToUpper(raw)
		if valid[label] && !seen[label] {
			seen[label] = true
			ranking = append(ranking, label)
		}
	}

	// Strict pass: numbered list entries, line by line.
	for _, line := range strings.Split(region, "\n") {
		if m := numberedEntryPattern.FindStringSubmatch(line); m != nil {
			appendLabel(m[1])
		}
	}

	// Loose pass over the same region if the strict pass came up short.
	if len(ranking) < len(validLabels) {
		for _, m := range looseLabelPattern.FindAllStringSubmatch(strings.ToUpper(region), -1) {
			appendLabel(m[1])
		}
	}

	// Worst-case default: unparsed labels go to the end rather than failing.
	for _, label := range validLabels {
		if !seen[label] {
			seen[label] = true
			ranking = append(ranking, label)
		}
	}

	return ranking[:len(validLabels)]
}

// rankingRegion isolates the part of the text that holds the final verdict,
// keeping incidental label mentions in the discursive evaluation out of the
// parse.
func rankingRegion(text string) string {
	upper := strings.ToUpper(text)

	for _, marker := range []string{"FINAL RANKING:", "RANKING:"} {
		if idx := strings.Index(upper, marker); idx >= 0 {
			// ToUpper can change a rune's byte length, so idx is only
			// valid in upper. Returning the upper slice is fine: every
			// later pass reads the region case-insensitively.
			return upper[idx+len(marker):]
		}
	}

	if len(text) > rankingTailWindow {
		cut := len(text) - rankingTailWindow
		for cut < len(text) && !utf8.RuneStart(text[cut]) {
			cut++
		}
		return text[cut:]
	}
	return text
}

// CalculateAggregateRankings combines every assessment's ranking into one
// consensus ordering by average 1-based position. Labels no assessment
// ranked are omitted rather than given a neutral rank. Ties on the
// average are broken by lexical label order so re-runs are stable.
func CalculateAggregateRankings(assessments map[string]Assessment, labelToRole map[string]string) []AggregateRanking {
	positions := make(map[string][]int, len(labelToRole))

	// Walk assessments in sorted role order so each label's positions slice
	// is reproducible across runs.
	roles := make([]string, 0, len(assessments))
	for role := range assessments {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	for _, role := range roles {
		for i, label := range assessments[role].Ranking {
			if _, ok := labelToRole[label]; ok {
				positions[label] = append(positions[label], i+1)
			}
		}
	}

	aggregate := make([]AggregateRanking, 0, len(positions))
	for label, pos := range positions {
		if len(pos) == 0 {
			continue
		}
		sum := 0
		for _, p := range pos {
			sum += p
		}
		aggregate = append(aggregate, AggregateRanking{
			Label:       label,
			Role:        labelToRole[label],
			AvgPosition: float64(sum) / float64(len(pos)),
			Positions:   pos,
		})
	}

	sort.Slice(aggregate, func(i, j int) bool {
		if aggregate[i].AvgPosition != aggregate[j].AvgPosition {
			return aggregate[i].AvgPosition < aggregate[j].AvgPosition
		}
		return aggregate[i].Label < aggregate[j].Label
	})

	return aggregate
}
