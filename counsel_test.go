package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubGenerator is a scriptable Generator for orchestrator tests. Responses
// and failures are keyed by model; stage 2 calls are told apart from stage 1
// by their prompt content.
type stubGenerator struct {
	mu sync.Mutex

	// responses maps model -> reply for stage 1 and 3 calls.
	responses map[string]string
	// rankings maps model -> reply for stage 2 calls.
	rankings map[string]string
	// failures maps model -> error returned for every call.
	failures map[string]error
	// streamChunks is the stage 3 streaming script.
	streamChunks []string
	// streamErr, when set, is returned after streamChunks are delivered.
	streamErr error

	calls []string
}

func (s *stubGenerator) record(model string) {
	s.mu.Lock()
	s.calls = append(s.calls, model)
	s.mu.Unlock()
}

func (s *stubGenerator) Generate(ctx context.Context, model, systemPrompt, userPrompt string, opts GenerateOptions) (string, error) {
	s.record(model)
	if err := s.failures[model]; err != nil {
		return "", err
	}
	if strings.Contains(userPrompt, "anonymized legal analyses") {
		if r, ok := s.rankings[model]; ok {
			return r, nil
		}
	}
	if r, ok := s.responses[model]; ok {
		return r, nil
	}
	return "stub response from " + model, nil
}

func (s *stubGenerator) GenerateStream(ctx context.Context, model, systemPrompt, userPrompt string, opts GenerateOptions, fn func(chunk string) error) error {
	s.record(model)
	if err := s.failures[model]; err != nil {
		return err
	}
	for _, chunk := range s.streamChunks {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return s.streamErr
}

func testTeam() []CounselMember {
	return []CounselMember{
		{Role: "plaintiff_strategist", Model: "test/model-1"},
		{Role: "defense_analyst", Model: "test/model-2"},
		{Role: "evidence_counsel", Model: "test/model-3"},
	}
}

// TestDeliberationRun tests the full batch pipeline with all members healthy
func TestDeliberationRun(t *testing.T) {
	stub := &stubGenerator{
		responses: map[string]string{
			"test/model-1": "plaintiff analysis",
			"test/model-2": "defense analysis",
			"test/model-3": "evidence analysis",
			"test/lead":    "MEMORANDUM\nSee Brown v. Board of Education, 347 U.S. 483 (1954).",
		},
		rankings: map[string]string{
			"test/model-1": "FINAL RANKING:\n1. B\n2. A\n3. C",
			"test/model-2": "FINAL RANKING:\n1. B\n2. A\n3. C",
			"test/model-3": "FINAL RANKING:\n1. B\n2. A\n3. C",
		},
	}

	d := NewDeliberation(testTeam(), "test/lead", stub)
	result, err := d.Run(context.Background(), DeliberationRequest{
		Question: "Should we move for summary judgment?",
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(result.Stage1) != 3 {
		t.Errorf("expected 3 stage 1 analyses, got %d", len(result.Stage1))
	}
	if result.Stage1["plaintiff_strategist"].Content != "plaintiff analysis" {
		t.Errorf("unexpected stage 1 content: %q", result.Stage1["plaintiff_strategist"].Content)
	}
	if result.Stage1["plaintiff_strategist"].DisplayName == "" {
		t.Error("stage 1 analysis missing display name")
	}

	if len(result.Stage2.Assessments) != 3 {
		t.Errorf("expected 3 assessments, got %d", len(result.Stage2.Assessments))
	}
	// Labels follow team order: A=plaintiff, B=defense, C=evidence.
	if result.Stage2.LabelMapping["B"] != "defense_analyst" {
		t.Errorf("label B maps to %s, expected defense_analyst", result.Stage2.LabelMapping["B"])
	}
	if len(result.Stage2.Aggregate) != 3 {
		t.Fatalf("expected 3 aggregate entries, got %d", len(result.Stage2.Aggregate))
	}
	if result.Stage2.Aggregate[0].Label != "B" {
		t.Errorf("unanimous winner is %s, expected B", result.Stage2.Aggregate[0].Label)
	}

	if result.Stage3.Model != "test/lead" {
		t.Errorf("stage 3 model = %s, expected test/lead", result.Stage3.Model)
	}
	if !strings.Contains(result.Stage3.Content, "MEMORANDUM") {
		t.Errorf("unexpected stage 3 content: %q", result.Stage3.Content)
	}
	if len(result.Stage3.Citations) != 1 || !strings.Contains(result.Stage3.Citations[0], "Brown v. Board") {
		t.Errorf("expected Brown citation extracted, got %v", result.Stage3.Citations)
	}
}

// TestDeliberationMemberFailureIsolated tests that one failing member is
// excluded without aborting the deliberation
func TestDeliberationMemberFailureIsolated(t *testing.T) {
	stub := &stubGenerator{
		failures: map[string]error{
			"test/model-2": errors.New("rate limited"),
		},
		rankings: map[string]string{
			"test/model-1": "FINAL RANKING:\n1. A\n2. B",
			"test/model-3": "FINAL RANKING:\n1. A\n2. B",
		},
	}

	var errorRoles []string
	d := NewDeliberation(testTeam(), "test/lead", stub)
	result, err := d.Run(context.Background(), DeliberationRequest{
		Question: "test question",
		OnEvent: func(eventType string, data any) {
			if eventType == "stage1_error" {
				errorRoles = append(errorRoles, data.(map[string]any)["role"].(string))
			}
		},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(result.Stage1) != 2 {
		t.Errorf("expected 2 surviving analyses, got %d", len(result.Stage1))
	}
	if _, ok := result.Stage1["defense_analyst"]; ok {
		t.Error("failed member's analysis should be excluded")
	}
	if len(errorRoles) != 1 || errorRoles[0] != "defense_analyst" {
		t.Errorf("stage1_error roles = %v, expected [defense_analyst]", errorRoles)
	}

	// The failed member also sat out stage 2, so only 2 labels exist.
	if len(result.Stage2.LabelMapping) != 2 {
		t.Errorf("expected 2 labels, got %d", len(result.Stage2.LabelMapping))
	}
}

// TestDeliberationAllMembersFail tests the whole-stage failure abort
func TestDeliberationAllMembersFail(t *testing.T) {
	stub := &stubGenerator{
		failures: map[string]error{
			"test/model-1": errors.New("down"),
			"test/model-2": errors.New("down"),
			"test/model-3": errors.New("down"),
		},
	}

	d := NewDeliberation(testTeam(), "test/lead", stub)
	_, err := d.Run(context.Background(), DeliberationRequest{Question: "test"})
	if !errors.Is(err, ErrAllCounselFailed) {
		t.Errorf("expected ErrAllCounselFailed, got %v", err)
	}
}

// TestDeliberationLeadFailureFatal tests that a stage 3 failure aborts
func TestDeliberationLeadFailureFatal(t *testing.T) {
	stub := &stubGenerator{
		failures: map[string]error{
			"test/lead": errors.New("lead model unavailable"),
		},
		rankings: map[string]string{
			"test/model-1": "FINAL RANKING:\n1. A\n2. B\n3. C",
			"test/model-2": "FINAL RANKING:\n1. A\n2. B\n3. C",
			"test/model-3": "FINAL RANKING:\n1. A\n2. B\n3. C",
		},
	}

	d := NewDeliberation(testTeam(), "test/lead", stub)
	_, err := d.Run(context.Background(), DeliberationRequest{Question: "test"})
	if err == nil || !strings.Contains(err.Error(), "lead counsel synthesis failed") {
		t.Errorf("expected lead synthesis failure, got %v", err)
	}
}

// TestDeliberationCallbackPanicTolerated tests that a panicking progress
// callback does not abort the run
func TestDeliberationCallbackPanicTolerated(t *testing.T) {
	stub := &stubGenerator{}

	d := NewDeliberation(testTeam(), "test/lead", stub)
	result, err := d.Run(context.Background(), DeliberationRequest{
		Question: "test",
		OnEvent: func(eventType string, data any) {
			panic("observer bug")
		},
	})
	if err != nil {
		t.Fatalf("Run() error despite panicking callback: %v", err)
	}
	if result == nil || result.Stage3.Content == "" {
		t.Error("expected a complete result despite panicking callback")
	}
}

// TestRunStreamEventSequence tests the streaming event ordering contract
func TestRunStreamEventSequence(t *testing.T) {
	stub := &stubGenerator{
		rankings: map[string]string{
			"test/model-1": "FINAL RANKING:\n1. C\n2. B\n3. A",
			"test/model-2": "FINAL RANKING:\n1. C\n2. B\n3. A",
			"test/model-3": "FINAL RANKING:\n1. C\n2. B\n3. A",
		},
		streamChunks: []string{"Legal ", "Strategy ", "Memorandum"},
	}

	d := NewDeliberation(testTeam(), "test/lead", stub)
	var events []DeliberationEvent
	for ev := range d.RunStream(context.Background(), DeliberationRequest{Question: "test"}) {
		events = append(events, ev)
	}

	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}

	// Marker events must appear exactly once each, in stage order.
	markers := []string{"stage1_start", "stage1_complete", "stage2_start", "stage2_complete", "stage3_start", "stage3_complete"}
	lastIdx := -1
	for _, marker := range markers {
		count := 0
		idx := -1
		for i, typ := range types {
			if typ == marker {
				count++
				idx = i
			}
		}
		if count != 1 {
			t.Errorf("event %s appeared %d times, expected exactly once (sequence: %v)", marker, count, types)
		}
		if idx <= lastIdx {
			t.Errorf("event %s out of order (sequence: %v)", marker, types)
		}
		lastIdx = idx
	}

	// Item events stay inside their stage's bracket.
	stage1Complete := indexOf(types, "stage1_complete")
	for i, typ := range types {
		if typ == "stage1_analysis" && i > stage1Complete {
			t.Errorf("stage1_analysis after stage1_complete (sequence: %v)", types)
		}
	}

	// Chunks accumulate into the final content.
	var chunks strings.Builder
	for _, ev := range events {
		if ev.Type == "stage3_chunk" {
			chunks.WriteString(ev.Data.(string))
		}
	}
	if chunks.String() != "Legal Strategy Memorandum" {
		t.Errorf("accumulated chunks = %q", chunks.String())
	}

	final := events[len(events)-1]
	if final.Type != "stage3_complete" {
		t.Errorf("terminal event = %s, expected stage3_complete", final.Type)
	}
	if result, ok := final.Data.(Stage3Result); !ok || result.Content != "Legal Strategy Memorandum" {
		t.Errorf("stage3_complete payload = %#v", final.Data)
	}

	for _, typ := range types {
		if typ == "error" {
			t.Errorf("unexpected error event in successful run (sequence: %v)", types)
		}
	}
}

// TestRunStreamMidStreamFailure tests partial chunks followed by a terminal
// error event
func TestRunStreamMidStreamFailure(t *testing.T) {
	stub := &stubGenerator{
		streamChunks: []string{"partial "},
		streamErr:    errors.New("connection reset"),
	}

	d := NewDeliberation(testTeam(), "test/lead", stub)
	var events []DeliberationEvent
	for ev := range d.RunStream(context.Background(), DeliberationRequest{Question: "test"}) {
		events = append(events, ev)
	}

	sawChunk := false
	for _, ev := range events {
		if ev.Type == "stage3_chunk" {
			sawChunk = true
		}
		if ev.Type == "stage3_complete" {
			t.Error("stage3_complete emitted despite mid-stream failure")
		}
	}
	if !sawChunk {
		t.Error("expected the partial chunk to be delivered before the error")
	}

	final := events[len(events)-1]
	if final.Type != "error" {
		t.Fatalf("terminal event = %s, expected error", final.Type)
	}
	msg := final.Data.(map[string]any)["message"].(string)
	if !strings.Contains(msg, "lead counsel synthesis failed") {
		t.Errorf("terminal error message = %q", msg)
	}
}

// TestRunStreamAllFail tests the terminal error event on a whole-stage
// failure
func TestRunStreamAllFail(t *testing.T) {
	stub := &stubGenerator{
		failures: map[string]error{
			"test/model-1": errors.New("down"),
			"test/model-2": errors.New("down"),
			"test/model-3": errors.New("down"),
		},
	}

	d := NewDeliberation(testTeam(), "test/lead", stub)
	var events []DeliberationEvent
	for ev := range d.RunStream(context.Background(), DeliberationRequest{Question: "test"}) {
		events = append(events, ev)
	}

	errorEvents := 0
	for _, ev := range events {
		if ev.Type == "error" {
			errorEvents++
		}
	}
	if errorEvents != 1 {
		t.Fatalf("expected exactly 1 terminal error event, got %d", errorEvents)
	}
	if events[len(events)-1].Type != "error" {
		t.Errorf("terminal event = %s, expected error", events[len(events)-1].Type)
	}

	// Per-member errors were still reported before the abort.
	memberErrors := 0
	for _, ev := range events {
		if ev.Type == "stage1_error" {
			memberErrors++
		}
	}
	if memberErrors != 3 {
		t.Errorf("expected 3 stage1_error events, got %d", memberErrors)
	}
}

// blockingGenerator hangs every call until its context is cancelled.
type blockingGenerator struct{}

func (b *blockingGenerator) Generate(ctx context.Context, model, systemPrompt, userPrompt string, opts GenerateOptions) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *blockingGenerator) GenerateStream(ctx context.Context, model, systemPrompt, userPrompt string, opts GenerateOptions, fn func(chunk string) error) error {
	<-ctx.Done()
	return ctx.Err()
}

// TestRunStreamCancellation tests that cancelling the context abandons
// in-flight calls and closes the event channel
func TestRunStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	d := NewDeliberation(testTeam(), "test/lead", &blockingGenerator{})
	events := d.RunStream(ctx, DeliberationRequest{Question: "test"})

	// Let the stage 1 calls start blocking, then cancel.
	time.Sleep(10 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		for range events {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event channel did not close after cancellation")
	}
}

// TestDeliberationTeamSnapshot tests that mutating the caller's team slice
// after construction has no effect
func TestDeliberationTeamSnapshot(t *testing.T) {
	team := testTeam()
	stub := &stubGenerator{}
	d := NewDeliberation(team, "test/lead", stub)

	team[0].Model = "mutated/model"

	result, err := d.Run(context.Background(), DeliberationRequest{Question: "test"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Stage1["plaintiff_strategist"].Model != "test/model-1" {
		t.Errorf("deliberation used mutated model %s", result.Stage1["plaintiff_strategist"].Model)
	}

	for _, call := range stub.calls {
		if call == "mutated/model" {
			t.Fatal("gateway called with mutated model")
		}
	}
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}
