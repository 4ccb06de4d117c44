package main

import (
	"fmt"
	"sort"
	"strings"
)

// BuildStage1Prompt builds the system and user prompts for one counsel
// member's independent analysis. Context fields are free text substituted
// verbatim; the target is a natural-language prompt, not code.
func BuildStage1Prompt(role, question, caseContext, practiceArea, jurisdiction string) (systemPrompt, userPrompt string, err error) {
	persona, ok := GetPersona(role)
	if !ok {
		return "", "", fmt.Errorf("unknown attorney role: %s", role)
	}

	var contextParts []string
	if practiceArea != "" {
		contextParts = append(contextParts, "Practice Area: "+practiceArea)
	}
	if jurisdiction != "" {
		contextParts = append(contextParts, "Jurisdiction: "+FormatJurisdiction(jurisdiction))
	}
	if caseContext != "" {
		contextParts = append(contextParts, "\nCase Context:\n"+caseContext)
	}
	contextSection := strings.Join(contextParts, "\n")

	userPrompt = fmt.Sprintf(`Please provide your legal analysis of the following matter.

%s

LEGAL QUESTION:
%s

Provide a thorough analysis from your perspective as %s. Focus on your areas of expertise: %s.

Structure your analysis clearly with headings and be specific in your recommendations. Cite relevant authority where applicable.`,
		contextSection, question, persona.DisplayName, strings.Join(persona.FocusAreas, ", "))

	return persona.SystemPrompt, userPrompt, nil
}

// Stage2SystemPrompt is the evaluator persona for blind peer review.
const Stage2SystemPrompt = `You are a senior litigation partner reviewing associate memos for quality and strategic value.

Your task is to evaluate multiple legal analyses on the following criteria:
1. **Legal Accuracy** - Is the analysis legally sound? Are citations and legal principles correct?
2. **Strategic Merit** - Does this analysis advance the client's position effectively?
3. **Risk Assessment** - Are risks and weaknesses properly identified and addressed?
4. **Practical Viability** - Can these recommendations be executed effectively?
5. **Persuasiveness** - Would this analysis convince a judge, jury, or opposing counsel?

Be critical but fair. Identify both strengths and weaknesses in each analysis. Your evaluation will help determine which strategies to prioritize.`

// BuildStage2Prompt builds the peer-assessment prompts. Analyses are
// rendered in label order; the evaluator never sees who wrote what.
func BuildStage2Prompt(question string, labeled []LabeledAnalysis, caseContext string) (systemPrompt, userPrompt string) {
	ordered := make([]LabeledAnalysis, len(labeled))
	copy(ordered, labeled)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Label < ordered[j].Label })

	var analysesText strings.Builder
	banner := strings.Repeat("=", 60)
	for _, la := range ordered {
		fmt.Fprintf(&analysesText, "\n%s\nANALYSIS %s\n%s\n%s\n", banner, la.Label, banner, la.Content)
	}

	contextSection := ""
	if caseContext != "" {
		contextSection = "\nCase Context:\n" + caseContext + "\n"
	}

	userPrompt = fmt.Sprintf(`Please evaluate the following anonymized legal analyses for this matter.

LEGAL QUESTION:
%s
%s
%s

For each analysis, provide:
1. A brief evaluation of its strengths and weaknesses
2. Assessment on the five criteria (Legal Accuracy, Strategic Merit, Risk Assessment, Practical Viability, Persuasiveness)
3. Notable insights or concerns

After evaluating all analyses, provide your ranking from best to worst.

End your response with a clearly formatted ranking:

FINAL RANKING:
1. Analysis [X] - Best overall (brief reason)
2. Analysis [Y] - (brief reason)
3. Analysis [Z] - (brief reason)
... and so on for all analyses`, question, contextSection, analysesText.String())

	return Stage2SystemPrompt, userPrompt
}

// BuildStage3Prompt builds the Lead Counsel synthesis prompts. Stage 3 is
// not blind: analyses are attributed to their authors, and the aggregate
// peer ranking is included alongside every individual assessment.
func BuildStage3Prompt(question string, stage1 map[string]Analysis, stage2 map[string]Assessment, aggregate []AggregateRanking, caseContext, practiceArea, jurisdiction string) (systemPrompt, userPrompt string) {
	var analysesSection strings.Builder
	analysesSection.WriteString("\n## LEGAL TEAM ANALYSES\n")
	for _, role := range sortedKeys(stage1) {
		a := stage1[role]
		icon := ""
		if p, ok := GetPersona(role); ok {
			icon = p.Icon
		}
		fmt.Fprintf(&analysesSection, "\n### %s %s\n*Model: %s*\n\n%s\n\n---\n",
			icon, PersonaDisplayName(role), a.Model, a.Content)
	}

	var rankingsSection strings.Builder
	rankingsSection.WriteString("\n## AGGREGATE PEER RANKINGS\n")
	rankingsSection.WriteString("Based on peer assessments, the analyses rank as follows:\n\n")
	for i, entry := range aggregate {
		fmt.Fprintf(&rankingsSection, "%d. **%s** (avg. position: %.2f)\n",
			i+1, PersonaDisplayName(entry.Role), entry.AvgPosition)
	}

	var assessmentsSection strings.Builder
	assessmentsSection.WriteString("\n## INDIVIDUAL PEER ASSESSMENTS\n")
	for _, role := range sortedKeys(stage2) {
		fmt.Fprintf(&assessmentsSection, "\n### Assessment by %s\n\n%s\n\n---\n",
			PersonaDisplayName(role), stage2[role].Evaluation)
	}

	var contextParts []string
	if practiceArea != "" {
		contextParts = append(contextParts, "**Practice Area:** "+practiceArea)
	}
	if jurisdiction != "" {
		contextParts = append(contextParts, "**Jurisdiction:** "+FormatJurisdiction(jurisdiction))
	}
	if caseContext != "" {
		contextParts = append(contextParts, "\n**Case Context:**\n"+caseContext)
	}
	contextSection := strings.Join(contextParts, "\n")

	userPrompt = fmt.Sprintf(`# MATTER FOR STRATEGIC SYNTHESIS

%s

## LEGAL QUESTION
%s

%s

%s

%s

---

## YOUR TASK

As Lead Counsel, synthesize the above analyses and assessments into a comprehensive Legal Strategy Memorandum.

Your memorandum should include:

1. **EXECUTIVE SUMMARY** - Key conclusions and recommended course of action (2-3 paragraphs)

2. **CASE ASSESSMENT**
   - Strengths of our position
   - Weaknesses and risks
   - Likely outcome range

3. **RECOMMENDED STRATEGY**
   - Primary legal theories/defenses to pursue
   - Key arguments synthesized from team analyses
   - Areas of team consensus
   - Resolution of any team disagreements

4. **ACTION ITEMS**
   - Immediate next steps (with specificity)
   - Discovery priorities
   - Motion strategy
   - Settlement considerations

5. **OPEN ISSUES**
   - Areas requiring further research
   - Questions for client
   - Expert consultation needs

Format the memorandum professionally. Be direct and actionable. The client is relying on this guidance.`,
		contextSection, question,
		analysesSection.String(), rankingsSection.String(), assessmentsSection.String())

	return LeadCounselPrompt, userPrompt
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
