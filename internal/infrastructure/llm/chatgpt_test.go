package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vanities/techslop/internal/config"
	"github.com/vanities/techslop/internal/domain"
)

func testClient(endpoint string) *ChatGPTClient {
	return NewChatGPTClient(config.ChatGPTConfig{
		Endpoint: endpoint,
		Model:    "gpt-test",
		APIKey:   "key",
	})
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	reply := "```json\n" +
		`{"hook": "Big news!", "body": [{"text": "It happened.", "screen_text": "IT HAPPENED", "duration_hint": 3.5}], "cta": "Follow for more."}` +
		"\n```"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("missing auth header: %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": reply}},
			},
		})
	}))
	defer server.Close()

	story := domain.Story{ID: "abc", Title: "Title", URL: "https://example.com", Source: "hackernews"}

	script, err := testClient(server.URL).Generate(context.Background(), story)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if script.StoryID != "abc" {
		t.Fatalf("story id not set: %s", script.StoryID)
	}
	if script.Hook != "Big news!" {
		t.Fatalf("unexpected hook: %q", script.Hook)
	}
	if script.FullText != "Big news! It happened. Follow for more." {
		t.Fatalf("unexpected full text: %q", script.FullText)
	}
}

func TestGenerateAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Generate(context.Background(), domain.Story{ID: "x"})
	if err == nil {
		t.Fatal("expected error on API failure")
	}
}

func TestGenerateMisconfigured(t *testing.T) {
	t.Parallel()

	client := NewChatGPTClient(config.ChatGPTConfig{})
	if _, err := client.Generate(context.Background(), domain.Story{}); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestParseScriptPlainJSON(t *testing.T) {
	t.Parallel()

	script, err := parseScript(`{"hook": "H", "body": [{"text": "B"}], "cta": "C"}`)
	if err != nil {
		t.Fatalf("parseScript error: %v", err)
	}
	if script.FullText != "H B C" {
		t.Fatalf("unexpected full text: %q", script.FullText)
	}
}

func TestParseScriptGarbage(t *testing.T) {
	t.Parallel()

	if _, err := parseScript("sorry, I cannot do that"); err == nil {
		t.Fatal("expected error on non-JSON reply")
	}
}
