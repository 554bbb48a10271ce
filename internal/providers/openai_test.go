package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIProviderGenerate(t *testing.T) {
	var payload map[string]any
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [
				{
					"index": 0,
					"message": {"role": "assistant", "content": "[{\"selector\":\"#email\",\"value\":\"a@b.c\"}]"},
					"finish_reason": "stop"
				}
			],
			"usage": {"prompt_tokens": 12, "completion_tokens": 24, "total_tokens": 36}
		}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	result, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "fill the login form"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer key", gotAuth)
	}
	if got, _ := payload["model"].(string); got != openAIDefaultModel {
		t.Errorf("request model = %q, want %q", got, openAIDefaultModel)
	}
	if result.RawOutput != `[{"selector":"#email","value":"a@b.c"}]` {
		t.Errorf("RawOutput = %q", result.RawOutput)
	}
	if result.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", result.Provider)
	}
	if result.RequestID == "" {
		t.Error("RequestID not assigned")
	}

	messages, _ := payload["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("request messages = %v, want one user message", payload["messages"])
	}
	msg, _ := messages[0].(map[string]any)
	if msg["role"] != "user" {
		t.Errorf("message role = %v, want user", msg["role"])
	}
	if msg["content"] != "fill the login form" {
		t.Errorf("message content = %v, want prompt", msg["content"])
	}

	format, _ := payload["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("response_format type = %v, want json_schema", format["type"])
	}
	schema, _ := format["json_schema"].(map[string]any)
	if schema["name"] != "fill_instructions" {
		t.Errorf("schema name = %v, want fill_instructions", schema["name"])
	}
}

func TestOpenAIProviderGenerateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "bad-key",
		BaseURL: server.URL,
	})

	_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "go"})
	if err == nil {
		t.Fatal("Generate() should fail on 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want status code", err)
	}
}

func TestOpenAIProviderRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: 1,
	})

	_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "go"})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestOpenAIProviderValidation(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key"})
	if _, err := p.Generate(context.Background(), &GenerateRequest{Prompt: ""}); err == nil {
		t.Fatal("Generate() with empty prompt should fail")
	}
}
