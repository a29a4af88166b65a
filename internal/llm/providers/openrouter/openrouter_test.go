// internal/llm/providers/openrouter/openrouter_test.go
package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Corphon/ShortsArchitect/internal/llm"
)

func TestInitializeRequiresAPIKey(t *testing.T) {
	if _, err := llm.GetProvider("openrouter", map[string]string{}); err == nil {
		t.Fatal("缺少API密钥时应初始化失败")
	}
}

func TestCompleteTextSendsSystemAndUserMessages(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"r1","model":"openai/gpt-4.1-mini","choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	provider, err := llm.GetProvider("openrouter", map[string]string{
		"api_key":  "test-key",
		"base_url": server.URL + "/",
	})
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}

	resp, err := provider.CompleteText(context.Background(), llm.CompletionRequest{
		SystemPrompt: "system rules",
		Prompt:       "user brief",
		MaxTokens:    1400,
		Temperature:  0.9,
	})
	if err != nil {
		t.Fatalf("CompleteText: %v", err)
	}

	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.MaxTokens != 1400 {
		t.Errorf("max_tokens = %d", got.MaxTokens)
	}
	if got.Temperature < 0.89 || got.Temperature > 0.91 {
		t.Errorf("temperature = %v", got.Temperature)
	}
	if resp.Text != `{"ok":true}` || resp.TokensUsed != 15 || resp.ProviderName != "OpenRouter" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCompleteTextReportsStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider, err := llm.GetProvider("openrouter", map[string]string{"api_key": "k", "base_url": server.URL})
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}

	_, err = provider.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("非200响应应返回错误")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "upstream overloaded") {
		t.Errorf("错误信息应包含状态码和响应体: %v", err)
	}
}

func TestCompleteTextWithoutChoicesReturnsEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"r2","choices":[]}`))
	}))
	defer server.Close()

	provider, _ := llm.GetProvider("openrouter", map[string]string{"api_key": "k", "base_url": server.URL})
	resp, err := provider.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("CompleteText: %v", err)
	}
	if resp.Text != "" {
		t.Errorf("expected empty text, got %q", resp.Text)
	}
}
