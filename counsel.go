package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrAllCounselFailed reports that every model call in a stage failed. The
// deliberation terminates early rather than proceeding with an empty bundle
// or returning an empty success.
var ErrAllCounselFailed = errors.New("all counsel members failed to respond")

// Per-stage sampling configuration. Stage 2 runs cooler: ranking wants
// consistency, not creativity.
var (
	stage1Options = GenerateOptions{Temperature: 0.7, MaxTokens: 4096}
	stage2Options = GenerateOptions{Temperature: 0.5, MaxTokens: 3000}
	stage3Options = GenerateOptions{Temperature: 0.7, MaxTokens: 6000}
)

// Deliberation orchestrates the 3-stage legal deliberation process:
// independent analyses, blind peer assessment, Lead Counsel synthesis.
// The team snapshot is read-only once constructed.
type Deliberation struct {
	team      []CounselMember
	leadModel string
	client    Generator
}

// NewDeliberation creates a deliberation engine over an immutable team
// snapshot. The Generator is shared by all concurrent calls and must be
// safe for concurrent use.
func NewDeliberation(team []CounselMember, leadModel string, client Generator) *Deliberation {
	snapshot := make([]CounselMember, len(team))
	copy(snapshot, team)
	return &Deliberation{
		team:      snapshot,
		leadModel: leadModel,
		client:    client,
	}
}

// Run executes all three stages and returns the complete result once Stage 3
// has finished. A single member's failure excludes that member from the
// stage; only a whole-stage failure or a Lead Counsel failure aborts the
// deliberation. The optional progress callback on req observes the same
// event sequence the streaming mode emits.
func (d *Deliberation) Run(ctx context.Context, req DeliberationRequest) (*DeliberationResult, error) {
	emit := func(eventType string, data any) {
		if req.OnEvent == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				log.Printf("progress callback panicked on %s: %v", eventType, r)
			}
		}()
		req.OnEvent(eventType, data)
	}

	emit("stage1_start", nil)
	stage1, err := d.stage1CollectAnalyses(ctx, req,
		func(role string, a Analysis) { emit("stage1_analysis", map[string]any{"role": role, "analysis": a}) },
		func(role string, err error) { emit("stage1_error", map[string]any{"role": role, "error": err.Error()}) },
	)
	if err != nil {
		return nil, err
	}
	emit("stage1_complete", stage1)

	emit("stage2_start", nil)
	stage2, err := d.stage2CollectAssessments(ctx, req, stage1,
		func(role string, a Assessment) { emit("stage2_assessment", map[string]any{"role": role, "assessment": a}) },
		func(role string, err error) { emit("stage2_error", map[string]any{"role": role, "error": err.Error()}) },
	)
	if err != nil {
		return nil, err
	}
	emit("stage2_complete", stage2)

	emit("stage3_start", nil)
	stage3, err := d.stage3LeadSynthesis(ctx, req, stage1, stage2)
	if err != nil {
		return nil, err
	}
	emit("stage3_complete", stage3)

	return &DeliberationResult{
		Stage1: stage1,
		Stage2: stage2,
		Stage3: stage3,
	}, nil
}

// RunStream executes the deliberation and emits progress as a lazy, finite
// sequence of events. Stage 1 and 2 items arrive in completion order, not
// team order; Stage 3 text arrives chunk by chunk in gateway order. The
// channel closes after exactly one terminal event: stage3_complete on
// success, "error" on abort. Cancelling ctx abandons all in-flight calls.
func (d *Deliberation) RunStream(ctx context.Context, req DeliberationRequest) <-chan DeliberationEvent {
	events := make(chan DeliberationEvent, 16)

	send := func(ev DeliberationEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	sendErr := func(err error) {
		send(DeliberationEvent{Type: "error", Data: map[string]any{"message": err.Error()}})
	}

	go func() {
		defer close(events)

		// Stage 1: items forwarded as members finish.
		if !send(DeliberationEvent{Type: "stage1_start"}) {
			return
		}
		stage1, err := d.stage1CollectAnalyses(ctx, req,
			func(role string, a Analysis) {
				send(DeliberationEvent{Type: "stage1_analysis", Data: map[string]any{"role": role, "analysis": a}})
			},
			func(role string, err error) {
				send(DeliberationEvent{Type: "stage1_error", Data: map[string]any{"role": role, "error": err.Error()}})
			},
		)
		if err != nil {
			sendErr(err)
			return
		}
		if !send(DeliberationEvent{Type: "stage1_complete", Data: stage1}) {
			return
		}

		// Stage 2.
		if !send(DeliberationEvent{Type: "stage2_start"}) {
			return
		}
		stage2, err := d.stage2CollectAssessments(ctx, req, stage1,
			func(role string, a Assessment) {
				send(DeliberationEvent{Type: "stage2_assessment", Data: map[string]any{"role": role, "assessment": a}})
			},
			func(role string, err error) {
				send(DeliberationEvent{Type: "stage2_error", Data: map[string]any{"role": role, "error": err.Error()}})
			},
		)
		if err != nil {
			sendErr(err)
			return
		}
		if !send(DeliberationEvent{Type: "stage2_complete", Data: stage2}) {
			return
		}

		// Stage 3: streamed from the gateway.
		if !send(DeliberationEvent{Type: "stage3_start"}) {
			return
		}
		systemPrompt, userPrompt := BuildStage3Prompt(
			req.Question, stage1, stage2.Assessments, stage2.Aggregate,
			req.Context, req.PracticeArea, req.Jurisdiction)

		var content strings.Builder
		err = d.client.GenerateStream(ctx, d.leadModel, systemPrompt, userPrompt, stage3Options,
			func(chunk string) error {
				content.WriteString(chunk)
				if !send(DeliberationEvent{Type: "stage3_chunk", Data: chunk}) {
					return ctx.Err()
				}
				return nil
			})
		if err != nil {
			// Chunks already emitted stand; the consumer sees partial
			// content followed by a terminal error, never a silent cut.
			sendErr(fmt.Errorf("lead counsel synthesis failed: %w", err))
			return
		}

		result := Stage3Result{
			Model:     d.leadModel,
			Content:   content.String(),
			Citations: ExtractCitationsFromText(content.String()),
		}
		send(DeliberationEvent{Type: "stage3_complete", Data: result})
	}()

	return events
}

// stage1CollectAnalyses fans the question out to every counsel member
// concurrently and collects the successful analyses keyed by role. Item
// callbacks fire in completion order as each member finishes; they are
// serialized, never concurrent.
func (d *Deliberation) stage1CollectAnalyses(
	ctx context.Context,
	req DeliberationRequest,
	onAnalysis func(role string, a Analysis),
	onError func(role string, err error),
) (map[string]Analysis, error) {
	g, ctx := errgroup.WithContext(ctx)

	results := make(map[string]Analysis, len(d.team))
	var mu sync.Mutex

	for _, member := range d.team {
		member := member
		g.Go(func() error {
			systemPrompt, userPrompt, err := BuildStage1Prompt(
				member.Role, req.Question, req.Context, req.PracticeArea, req.Jurisdiction)
			if err == nil {
				var content string
				content, err = d.client.Generate(ctx, member.Model, systemPrompt, userPrompt, stage1Options)
				if err == nil {
					analysis := Analysis{
						Role:        member.Role,
						Model:       member.Model,
						DisplayName: PersonaDisplayName(member.Role),
						Content:     content,
					}
					mu.Lock()
					results[member.Role] = analysis
					if onAnalysis != nil {
						onAnalysis(member.Role, analysis)
					}
					mu.Unlock()
					return nil
				}
			}

			// One member's failure never aborts the stage.
			log.Printf("stage 1: counsel member %s (%s) failed: %v", member.Role, member.Model, err)
			mu.Lock()
			if onError != nil {
				onError(member.Role, err)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("stage 1: %w", ErrAllCounselFailed)
	}
	return results, nil
}

// stage2CollectAssessments anonymizes the Stage 1 analyses, has every
// counsel member rank them concurrently, and aggregates the rankings into a
// consensus ordering.
func (d *Deliberation) stage2CollectAssessments(
	ctx context.Context,
	req DeliberationRequest,
	stage1 map[string]Analysis,
	onAssessment func(role string, a Assessment),
	onError func(role string, err error),
) (Stage2Result, error) {
	// Labels follow configured team order, not completion order, so the
	// assignment is reproducible for a given team.
	analyses := make([]Analysis, 0, len(stage1))
	for _, member := range d.team {
		if a, ok := stage1[member.Role]; ok {
			analyses = append(analyses, a)
		}
	}

	labeled, labelToRole, err := CreateAnonymousLabels(analyses)
	if err != nil {
		return Stage2Result{}, fmt.Errorf("stage 2: %w", err)
	}

	validLabels := make([]string, len(labeled))
	for i, la := range labeled {
		validLabels[i] = la.Label
	}

	systemPrompt, userPrompt := BuildStage2Prompt(req.Question, labeled, req.Context)

	g, ctx := errgroup.WithContext(ctx)
	assessments := make(map[string]Assessment, len(d.team))
	var mu sync.Mutex

	for _, member := range d.team {
		member := member
		g.Go(func() error {
			evaluation, err := d.client.Generate(ctx, member.Model, systemPrompt, userPrompt, stage2Options)
			if err != nil {
				log.Printf("stage 2: counsel member %s (%s) failed: %v", member.Role, member.Model, err)
				mu.Lock()
				if onError != nil {
					onError(member.Role, err)
				}
				mu.Unlock()
				return nil
			}

			assessment := Assessment{
				Role:       member.Role,
				Model:      member.Model,
				Evaluation: evaluation,
				Ranking:    ExtractRankingFromText(evaluation, validLabels),
			}
			mu.Lock()
			assessments[member.Role] = assessment
			if onAssessment != nil {
				onAssessment(member.Role, assessment)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Stage2Result{}, err
	}
	if len(assessments) == 0 {
		return Stage2Result{}, fmt.Errorf("stage 2: %w", ErrAllCounselFailed)
	}

	return Stage2Result{
		Assessments:  assessments,
		Aggregate:    CalculateAggregateRankings(assessments, labelToRole),
		LabelMapping: labelToRole,
	}, nil
}

// stage3LeadSynthesis sends one attributed synthesis request to the Lead
// Counsel model. There is no fallback synthesizer; failure here is fatal
// for the deliberation.
func (d *Deliberation) stage3LeadSynthesis(
	ctx context.Context,
	req DeliberationRequest,
	stage1 map[string]Analysis,
	stage2 Stage2Result,
) (Stage3Result, error) {
	systemPrompt, userPrompt := BuildStage3Prompt(
		req.Question, stage1, stage2.Assessments, stage2.Aggregate,
		req.Context, req.PracticeArea, req.Jurisdiction)

	content, err := d.client.Generate(ctx, d.leadModel, systemPrompt, userPrompt, stage3Options)
	if err != nil {
		return Stage3Result{}, fmt.Errorf("lead counsel synthesis failed: %w", err)
	}

	return Stage3Result{
		Model:     d.leadModel,
		Content:   content,
		Citations: ExtractCitationsFromText(content),
	}, nil
}
