package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newMockAPIServer returns a test server that replies to chat-completions
// requests with the given content, capturing the decoded request.
func newMockAPIServer(t *testing.T, content string, captured *OpenRouterRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req OpenRouterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if captured != nil {
			*captured = req
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
}

// TestGenerate tests a successful non-streaming completion
func TestGenerate(t *testing.T) {
	var captured OpenRouterRequest
	server := newMockAPIServer(t, "generated analysis", &captured)
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", 10*time.Second)
	content, err := client.Generate(context.Background(), "test/model", "system prompt", "user prompt",
		GenerateOptions{Temperature: 0.7, MaxTokens: 4096})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if content != "generated analysis" {
		t.Errorf("content = %q, expected %q", content, "generated analysis")
	}

	if captured.Model != "test/model" {
		t.Errorf("request model = %s, expected test/model", captured.Model)
	}
	if captured.Temperature != 0.7 || captured.MaxTokens != 4096 {
		t.Errorf("sampling options not forwarded: temp=%.1f max=%d", captured.Temperature, captured.MaxTokens)
	}
	if captured.Stream {
		t.Error("non-streaming request has stream=true")
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Errorf("unexpected messages: %+v", captured.Messages)
	}
}

// TestGenerateAuthHeader tests that the API key is sent as a bearer token
func TestGenerateAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "secret-key", 10*time.Second)
	if _, err := client.Generate(context.Background(), "m", "s", "u", GenerateOptions{}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q, expected Bearer secret-key", gotAuth)
	}
}

// TestGenerateErrorStatus tests non-200 handling
func TestGenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", 10*time.Second)
	_, err := client.Generate(context.Background(), "test/model", "s", "u", GenerateOptions{})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should mention status code: %v", err)
	}
	if !strings.Contains(err.Error(), "test/model") {
		t.Errorf("error should identify the model: %v", err)
	}
}

// TestGenerateEmptyChoices tests a structurally valid but empty response
func TestGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", 10*time.Second)
	_, err := client.Generate(context.Background(), "test/model", "s", "u", GenerateOptions{})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("expected no-choices error, got %v", err)
	}
}

// TestGenerateTimeout tests that a slow server surfaces as an error
func TestGenerateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"late"}}]}`)
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", 50*time.Millisecond)
	_, err := client.Generate(context.Background(), "test/model", "s", "u", GenerateOptions{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

// TestGenerateStream tests SSE chunk delivery and the [DONE] sentinel
func TestGenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req OpenRouterRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("streaming request has stream=false")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: not json at all\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"after done\"}}]}\n\n")
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", 10*time.Second)
	var chunks []string
	err := client.GenerateStream(context.Background(), "test/model", "s", "u", GenerateOptions{},
		func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})
	if err != nil {
		t.Fatalf("GenerateStream() error: %v", err)
	}

	if strings.Join(chunks, "") != "Hello world" {
		t.Errorf("chunks = %v, expected [Hello,  world]", chunks)
	}
}

// TestGenerateStreamCallbackError tests that fn's error aborts the stream
func TestGenerateStreamCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"one\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"two\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", 10*time.Second)
	calls := 0
	err := client.GenerateStream(context.Background(), "test/model", "s", "u", GenerateOptions{},
		func(chunk string) error {
			calls++
			return fmt.Errorf("consumer gave up")
		})
	if err == nil || !strings.Contains(err.Error(), "consumer gave up") {
		t.Errorf("expected callback error to surface, got %v", err)
	}
	if calls != 1 {
		t.Errorf("callback called %d times after aborting, expected 1", calls)
	}
}

// TestGenerateStreamErrorStatus tests non-200 handling on the stream path
func TestGenerateStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", 10*time.Second)
	err := client.GenerateStream(context.Background(), "test/model", "s", "u", GenerateOptions{},
		func(chunk string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status error, got %v", err)
	}
}

// TestGenerateStreamInterrupted tests a connection cut mid-stream: delivered
// chunks stand and an error follows
func TestGenerateStreamInterrupted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096") // promise more than is sent
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Handler returns without fulfilling Content-Length; the client
		// sees an unexpected EOF.
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", 10*time.Second)
	var chunks []string
	err := client.GenerateStream(context.Background(), "test/model", "s", "u", GenerateOptions{},
		func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})
	if err == nil || !strings.Contains(err.Error(), "stream interrupted") {
		t.Fatalf("expected stream interrupted error, got %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "partial" {
		t.Errorf("chunks before interruption = %v, expected [partial]", chunks)
	}
}
