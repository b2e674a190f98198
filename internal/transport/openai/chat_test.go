package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, content string, choices int, gotReq *chatRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if gotReq != nil {
			_ = json.NewDecoder(r.Body).Decode(gotReq)
		}

		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "test-chat",
			"choices": []any{},
			"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
		}
		list := make([]any, 0, choices)
		for i := range choices {
			list = append(list, map[string]any{
				"index":         i,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			})
		}
		resp["choices"] = list

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestChat(baseURL string) *Chat {
	return NewChat(&Config{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "test-chat",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestChat_Complete(t *testing.T) {
	var req chatRequest
	server := chatServer(t, "Try the Trailblazer boots.", 1, &req)

	res, err := newTestChat(server.URL).Complete(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "You are a camping assistant."},
		{Role: domain.RoleUser, Content: "boots?"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != "Try the Trailblazer boots." {
		t.Errorf("unexpected text: %q", res.Text)
	}
	if res.PromptTokens != 12 || res.CompletionTokens != 5 {
		t.Errorf("unexpected usage: %+v", res)
	}
	if req.Model != "test-chat" || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestChat_NoChoices(t *testing.T) {
	server := chatServer(t, "", 0, nil)

	_, err := newTestChat(server.URL).Complete(context.Background(), []domain.ChatMessage{{Role: "user", Content: "hi"}})
	if !errors.Is(err, domain.ErrChatProviderError) || !errors.Is(err, domain.ErrDeserialization) {
		t.Fatalf("expected chat + deserialization errors, got %v", err)
	}
}

func TestChat_QuotaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota","type":"insufficient_quota"}}`))
	}))
	defer server.Close()

	_, err := newTestChat(server.URL).Complete(context.Background(), []domain.ChatMessage{{Role: "user", Content: "hi"}})
	if !errors.Is(err, domain.ErrChatProviderError) {
		t.Fatalf("expected ErrChatProviderError, got %v", err)
	}
	if !errors.Is(err, domain.ErrProviderQuotaOrAuth) {
		t.Errorf("expected ErrProviderQuotaOrAuth, got %v", err)
	}
}

func TestChat_CancelledContext(t *testing.T) {
	server := chatServer(t, "late", 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestChat(server.URL).Complete(ctx, []domain.ChatMessage{{Role: "user", Content: "hi"}})
	if !errors.Is(err, domain.ErrProviderTransport) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected transport + canceled, got %v", err)
	}
}
