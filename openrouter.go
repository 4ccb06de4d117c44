package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GenerateOptions carries per-call sampling configuration.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator is the model gateway capability the deliberation engine
// consumes: given a model and prompts, produce text either whole or as an
// ordered sequence of fragments. Implementations must be safe for
// concurrent use; the engine shares one instance across all in-flight
// calls of a stage.
type Generator interface {
	Generate(ctx context.Context, model, systemPrompt, userPrompt string, opts GenerateOptions) (string, error)
	// GenerateStream invokes fn for each text fragment in arrival order.
	// A mid-stream failure surfaces as an error after the fragments already
	// delivered; fn returning an error aborts the stream.
	GenerateStream(ctx context.Context, model, systemPrompt, userPrompt string, opts GenerateOptions, fn func(chunk string) error) error
}

// OpenRouterClient implements Generator against the OpenRouter
// chat-completions API.
type OpenRouterClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewOpenRouterClient creates a client with the given per-call timeout.
// Timeouts are a gateway concern; callers treat a timed-out call like any
// other failed call.
func NewOpenRouterClient(apiURL, apiKey string, timeout time.Duration) *OpenRouterClient {
	return &OpenRouterClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OpenRouterClient) newRequest(ctx context.Context, payload OpenRouterRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "LLM-Counsel Legal Deliberation")
	return req, nil
}

func chatMessages(systemPrompt, userPrompt string) []OpenRouterMessage {
	return []OpenRouterMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
}

// Generate sends a single non-streaming completion request and returns the
// generated text.
func (c *OpenRouterClient) Generate(ctx context.Context, model, systemPrompt, userPrompt string, opts GenerateOptions) (string, error) {
	req, err := c.newRequest(ctx, OpenRouterRequest{
		Model:       model,
		Messages:    chatMessages(systemPrompt, userPrompt),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model %s: request failed: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model %s: API returned status %d: %s", model, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("model %s: failed to read response body: %w", model, err)
	}

	var apiResponse OpenRouterAPIResponse
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("model %s: failed to parse response: %w", model, err)
	}
	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("model %s: no choices in response", model)
	}

	return apiResponse.Choices[0].Message.Content, nil
}

// GenerateStream sends a streaming completion request and forwards content
// deltas to fn as they arrive. The SSE stream ends at a "[DONE]" sentinel;
// malformed data lines are skipped, matching the tolerant read the API's
// own clients use.
func (c *OpenRouterClient) GenerateStream(ctx context.Context, model, systemPrompt, userPrompt string, opts GenerateOptions, fn func(chunk string) error) error {
	req, err := c.newRequest(ctx, OpenRouterRequest{
		Model:       model,
		Messages:    chatMessages(systemPrompt, userPrompt),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model %s: stream request failed: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("model %s: API returned status %d: %s", model, resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil
		}

		var chunk OpenRouterStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			if err := fn(content); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		// Partial content has already been delivered through fn; the
		// caller sees "partial content, then error".
		return fmt.Errorf("model %s: stream interrupted: %w", model, err)
	}
	return nil
}
