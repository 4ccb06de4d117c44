package main

import "time"

// CounselMember is one configured participant in a deliberation: a persona
// role bound to an underlying model. The team is loaded once at startup and
// treated as read-only for the lifetime of a deliberation.
type CounselMember struct {
	Role        string `json:"role" yaml:"role"`
	Model       string `json:"model" yaml:"model"`
	DisplayName string `json:"display_name" yaml:"-"`
}

// Analysis is one counsel member's Stage 1 output.
type Analysis struct {
	Role        string `json:"role"`
	Model       string `json:"model"`
	DisplayName string `json:"display_name"`
	Content     string `json:"content"`
}

// LabeledAnalysis is an Analysis with its anonymous label attached, as
// presented to the Stage 2 evaluators.
type LabeledAnalysis struct {
	Label   string `json:"label"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content string `json:"content"`
}

// Assessment is one counsel member's Stage 2 output: the raw evaluation text
// plus the ranking extracted from it (best to worst, always a permutation of
// the anonymous labels).
type Assessment struct {
	Role       string   `json:"role"`
	Model      string   `json:"model"`
	Evaluation string   `json:"evaluation"`
	Ranking    []string `json:"ranking"`
}

// AggregateRanking is one label's consensus standing across all assessments.
// Positions are 1-based; lower average is better.
type AggregateRanking struct {
	Label       string  `json:"label"`
	Role        string  `json:"role"`
	AvgPosition float64 `json:"avg_position"`
	Positions   []int   `json:"positions"`
}

// Stage2Result bundles the peer assessments with the derived consensus.
type Stage2Result struct {
	Assessments  map[string]Assessment `json:"assessments"`
	Aggregate    []AggregateRanking    `json:"aggregate_rankings"`
	LabelMapping map[string]string     `json:"label_mapping"`
}

// Stage3Result is the Lead Counsel's synthesis memorandum.
type Stage3Result struct {
	Model     string   `json:"model"`
	Content   string   `json:"content"`
	Citations []string `json:"citations,omitempty"`
}

// DeliberationRequest carries the question and optional matter context into
// the orchestrator. Context fields are substituted verbatim into prompts.
type DeliberationRequest struct {
	Question     string
	Context      string
	PracticeArea string
	Jurisdiction string

	// OnEvent, when set, is invoked synchronously at stage and item
	// boundaries during a batch run. It is a side channel: a panic inside
	// the callback is recovered and does not affect the deliberation.
	OnEvent func(eventType string, data any)
}

// DeliberationResult is the terminal aggregate of all three stages.
type DeliberationResult struct {
	Stage1 map[string]Analysis `json:"stage1"`
	Stage2 Stage2Result        `json:"stage2"`
	Stage3 Stage3Result        `json:"stage3"`
}

// DeliberationEvent is one unit of the streaming sequence. Types, in order:
// stage1_start, stage1_analysis*, stage1_error*, stage1_complete,
// stage2_start, stage2_assessment*, stage2_error*, stage2_complete,
// stage3_start, stage3_chunk*, stage3_complete, or a terminal "error".
type DeliberationEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Matter is a persisted legal matter: metadata plus the message history of
// every deliberation run against it.
type Matter struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  MatterMetadata `json:"metadata"`
	Messages  []Message      `json:"messages"`
}

// MatterMetadata is the mutable descriptive portion of a matter.
type MatterMetadata struct {
	MatterName   string `json:"matter_name"`
	PracticeArea string `json:"practice_area"`
	Jurisdiction string `json:"jurisdiction"`
	Client       string `json:"client,omitempty"`
}

// Message is a single entry in a matter's history. User messages carry
// content and optional context; assistant messages carry the three stages.
type Message struct {
	Role      string              `json:"role"`
	Timestamp time.Time           `json:"timestamp"`
	Content   string              `json:"content,omitempty"`
	Context   string              `json:"context,omitempty"`
	Stage1    map[string]Analysis `json:"stage1,omitempty"`
	Stage2    *Stage2Result       `json:"stage2,omitempty"`
	Stage3    *Stage3Result       `json:"stage3,omitempty"`
}

// MatterSummary is the listing view of a matter.
type MatterSummary struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Metadata     MatterMetadata `json:"metadata"`
	MessageCount int            `json:"message_count"`
}

// CreateMatterRequest is the body for POST /api/matters.
type CreateMatterRequest struct {
	MatterName   string `json:"matter_name"`
	PracticeArea string `json:"practice_area"`
	Jurisdiction string `json:"jurisdiction"`
	Client       string `json:"client"`
}

// UpdateMatterRequest is the body for PUT /api/matters/:id. Pointer fields
// distinguish "leave unchanged" from "set to empty".
type UpdateMatterRequest struct {
	MatterName   *string `json:"matter_name"`
	PracticeArea *string `json:"practice_area"`
	Jurisdiction *string `json:"jurisdiction"`
	Client       *string `json:"client"`
}

// SubmitQuestionRequest is the body for POST /api/matters/:id/messages and
// POST /api/deliberate.
type SubmitQuestionRequest struct {
	Content      string `json:"content" binding:"required"`
	Context      string `json:"context"`
	PracticeArea string `json:"practice_area"`
	Jurisdiction string `json:"jurisdiction"`
	Stream       bool   `json:"stream"`
}

// OpenRouterMessage is one chat message in an OpenRouter request.
type OpenRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenRouterRequest is the chat-completions request payload.
type OpenRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []OpenRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

// OpenRouterAPIResponse is the non-streaming chat-completions response.
type OpenRouterAPIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenRouterStreamChunk is one SSE data payload of a streaming response.
type OpenRouterStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}
