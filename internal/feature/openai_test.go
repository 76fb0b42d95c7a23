package feature

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func mockOpenAI(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-123",
			Object: "chat.completion",
			Model:  "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Index:        0,
					Message:      openai.ChatCompletionMessage{Role: "assistant", Content: content},
					FinishReason: "stop",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIScorerRequiresKey(t *testing.T) {
	if _, err := NewOpenAIScorer(OpenAIConfig{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestOpenAIScorerParsesScore(t *testing.T) {
	server := mockOpenAI(t, "0.75")
	defer server.Close()

	s, err := NewOpenAIScorer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "openai" {
		t.Errorf("Name = %q", s.Name())
	}

	score, err := s.Score(context.Background(), "Blessed are the merciful.")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 0.75 {
		t.Errorf("score = %v, want 0.75", score)
	}
}

func TestOpenAIScorerClampsScore(t *testing.T) {
	server := mockOpenAI(t, "1.8")
	defer server.Close()

	s, err := NewOpenAIScorer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	score, err := s.Score(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if score != 1 {
		t.Errorf("score = %v, want clamped to 1", score)
	}
}

func TestOpenAIScorerUnparseableReply(t *testing.T) {
	server := mockOpenAI(t, "quite positive")
	defer server.Close()

	s, err := NewOpenAIScorer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Score(context.Background(), "text"); err == nil {
		t.Error("expected error for unparseable reply")
	}
}

func TestOpenAIScorerServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	defer server.Close()

	s, err := NewOpenAIScorer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Score(context.Background(), "text"); err == nil {
		t.Error("expected error for server failure")
	}
}
