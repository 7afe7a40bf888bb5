package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/config"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Which bill is it?"}}]}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{
		APIURL:      ts.URL,
		APIKey:      "test-key",
		Model:       "llama-3.1-70b-versatile",
		Temperature: 0.7,
		MaxTokens:   140,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.Complete(ctx, []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "Which bill is it?" {
		t.Fatalf("unexpected output: %q", out)
	}
	if gotBody["model"] != "llama-3.1-70b-versatile" {
		t.Fatalf("unexpected model in request: %v", gotBody["model"])
	}
	if _, hasFormat := gotBody["response_format"]; hasFormat {
		t.Fatalf("response_format must be absent without a schema")
	}
}

func TestOpenAIClient_CompleteWithSchema(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		format, ok := body["response_format"].(map[string]any)
		if !ok || format["type"] != "json_schema" {
			t.Errorf("expected json_schema response_format, got %v", body["response_format"])
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"intent\":\"bills\"}"}}]}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "k", Model: "m"})

	out, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, &JSONSchema{
		Name:   "nlu_result",
		Schema: map[string]any{"type": "object"},
		Strict: true,
	})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != `{"intent":"bills"}` {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "k", Model: "m"})

	if _, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}

func TestAnthropicClient_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "test-key" {
			t.Errorf("unexpected api key header: %s", key)
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		// system message 必须从 messages 里分离出来
		if body["system"] != "sys" {
			t.Errorf("expected separated system message, got %v", body["system"])
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"All set."}]}`))
	}))
	defer ts.Close()

	client := NewAnthropicClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "test-key", Model: "m", MaxTokens: 100})

	out, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
	}, nil)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "All set." {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestNewClient_ProviderSwitch(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = "groq"
	if _, err := NewClient(cfg); err != nil {
		t.Fatalf("groq provider: %v", err)
	}

	cfg.LLM.Provider = "anthropic"
	if _, err := NewClient(cfg); err != nil {
		t.Fatalf("anthropic provider: %v", err)
	}

	cfg.LLM.Provider = "llamacpp"
	if _, err := NewClient(cfg); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}
