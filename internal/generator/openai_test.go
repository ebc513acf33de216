package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quiz-room-service/internal/domain"
)

func fakeCompletions(t *testing.T, content string, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		*calls++
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, `"World War 2"`) {
			t.Errorf("unexpected prompt %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestGenerateParsesReply(t *testing.T) {
	calls := 0
	server := fakeCompletions(t, "```json\n[{\"question\": \"When did WW2 begin?\", \"options\": [\"1939\", \"1941\", \"1914\", \"1945\"], \"correctAnswerIndex\": 0}]\n```", &calls)
	defer server.Close()

	gen := NewOpenAIGenerator(Config{BaseURL: server.URL + "/v1", APIKey: "test", Model: "test-model"})
	questions, err := gen.Generate(context.Background(), "World War 2", 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
	if len(questions) != 1 || questions[0].CorrectIndex != 0 {
		t.Fatalf("unexpected questions %+v", questions)
	}
}

func TestGenerateMalformedReply(t *testing.T) {
	calls := 0
	server := fakeCompletions(t, "I cannot do that.", &calls)
	defer server.Close()

	gen := NewOpenAIGenerator(Config{BaseURL: server.URL + "/v1", APIKey: "test"})
	if _, err := gen.Generate(context.Background(), "World War 2", 3); !errors.Is(err, domain.ErrMalformedContent) {
		t.Fatalf("expected malformed content, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry, got %d calls", calls)
	}
}
