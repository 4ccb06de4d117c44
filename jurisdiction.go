package main

import (
	"sort"
	"strings"
)

// JurisdictionInfo describes a supported legal jurisdiction.
type JurisdictionInfo struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Type          string `json:"type"` // "federal", "state", "circuit"
	Rules         string `json:"rules"`
	EvidenceRules string `json:"evidence_rules"`
}

// Jurisdictions maps jurisdiction codes to their descriptions.
var Jurisdictions = map[string]JurisdictionInfo{
	"federal": {
		Code:          "federal",
		Name:          "Federal District Court",
		Type:          "federal",
		Rules:         "Federal Rules of Civil Procedure (FRCP)",
		EvidenceRules: "Federal Rules of Evidence (FRE)",
	},
	"ca_state": {
		Code:          "ca_state",
		Name:          "California State Court",
		Type:          "state",
		Rules:         "California Code of Civil Procedure",
		EvidenceRules: "California Evidence Code",
	},
	"ny_state": {
		Code:          "ny_state",
		Name:          "New York State Court",
		Type:          "state",
		Rules:         "New York Civil Practice Law and Rules (CPLR)",
		EvidenceRules: "New York Evidence Rules",
	},
	"tx_state": {
		Code:          "tx_state",
		Name:          "Texas State Court",
		Type:          "state",
		Rules:         "Texas Rules of Civil Procedure",
		EvidenceRules: "Texas Rules of Evidence",
	},
	"fl_state": {
		Code:          "fl_state",
		Name:          "Florida State Court",
		Type:          "state",
		Rules:         "Florida Rules of Civil Procedure",
		EvidenceRules: "Florida Evidence Code",
	},
	"il_state": {
		Code:          "il_state",
		Name:          "Illinois State Court",
		Type:          "state",
		Rules:         "Illinois Code of Civil Procedure",
		EvidenceRules: "Illinois Rules of Evidence",
	},
	"9th_circuit": {
		Code:          "9th_circuit",
		Name:          "Ninth Circuit Court of Appeals",
		Type:          "circuit",
		Rules:         "Federal Rules of Appellate Procedure + 9th Circuit Rules",
		EvidenceRules: "Federal Rules of Evidence (FRE)",
	},
	"2nd_circuit": {
		Code:          "2nd_circuit",
		Name:          "Second Circuit Court of Appeals",
		Type:          "circuit",
		Rules:         "Federal Rules of Appellate Procedure + 2nd Circuit Rules",
		EvidenceRules: "Federal Rules of Evidence (FRE)",
	},
	"5th_circuit": {
		Code:          "5th_circuit",
		Name:          "Fifth Circuit Court of Appeals",
		Type:          "circuit",
		Rules:         "Federal Rules of Appellate Procedure + 5th Circuit Rules",
		EvidenceRules: "Federal Rules of Evidence (FRE)",
	},
}

// jurisdictionKeywords are phrases that suggest a specific jurisdiction.
var jurisdictionKeywords = map[string][]string{
	"federal":     {"federal court", "district court", "frcp", "federal rules", "28 u.s.c.", "diversity jurisdiction", "federal question"},
	"ca_state":    {"california", "cal. civ. proc.", "california code", "superior court of california", "cal. app.", "california supreme"},
	"ny_state":    {"new york", "cplr", "supreme court of new york", "n.y.s.", "new york supreme"},
	"tx_state":    {"texas", "tex. r. civ. p.", "texas district court", "texas supreme"},
	"fl_state":    {"florida", "fla. r. civ. p.", "florida circuit court", "florida supreme"},
	"9th_circuit": {"ninth circuit", "9th circuit", "9th cir.", "california federal"},
	"2nd_circuit": {"second circuit", "2nd circuit", "2nd cir.", "new york federal"},
	"5th_circuit": {"fifth circuit", "5th circuit", "5th cir.", "texas federal"},
}

// DetectJurisdiction guesses the jurisdiction from free text by keyword
// scoring. Returns "" when nothing matches. Ties go to the lexically
// smaller code so the result is stable.
func DetectJurisdiction(text string) string {
	lower := strings.ToLower(text)

	best := ""
	bestScore := 0
	codes := make([]string, 0, len(jurisdictionKeywords))
	for code := range jurisdictionKeywords {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		score := 0
		for _, keyword := range jurisdictionKeywords[code] {
			if strings.Contains(lower, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = code
			bestScore = score
		}
	}
	return best
}

// FormatJurisdiction renders a jurisdiction code as a human-readable court
// name, passing unknown codes through unchanged.
func FormatJurisdiction(code string) string {
	if info, ok := Jurisdictions[code]; ok {
		return info.Name
	}
	return code
}

// AllJurisdictions returns every supported jurisdiction, sorted by code.
func AllJurisdictions() []JurisdictionInfo {
	infos := make([]JurisdictionInfo, 0, len(Jurisdictions))
	for _, info := range Jurisdictions {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Code < infos[j].Code })
	return infos
}
