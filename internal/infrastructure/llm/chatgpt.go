package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vanities/techslop/internal/config"
	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/ports"
)

// ChatGPTClient implements ports.ScriptGenerator backed by
// OpenAI-compatible chat-completion APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.ScriptGenerator = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Generate asks the completion API for a script and parses the reply.
func (c *ChatGPTClient) Generate(ctx context.Context, story domain.Story) (domain.Script, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Script{}, fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": buildPrompt(story)},
		},
	})
	if err != nil {
		return domain.Script{}, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Script{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Script{}, fmt.Errorf("generate script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Script{}, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return domain.Script{}, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return domain.Script{}, fmt.Errorf("completion returned no choices")
	}

	script, err := parseScript(completion.Choices[0].Message.Content)
	if err != nil {
		return domain.Script{}, err
	}
	script.StoryID = story.ID
	return script, nil
}

// buildPrompt flattens the story and its context bag into the user message.
func buildPrompt(story domain.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nSource: %s\nURL: %s\n", story.Title, story.Source, story.URL)

	if comments := stringList(story.Context["comments"]); len(comments) > 0 {
		b.WriteString("\nTop comments:\n")
		for _, c := range comments {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	if tweet, ok := story.Context["tweet_text"].(string); ok && tweet != "" {
		fmt.Fprintf(&b, "\nTweet: %s\n", tweet)
	}
	if summary, ok := story.Context["summary"].(string); ok && summary != "" {
		fmt.Fprintf(&b, "\nSummary: %s\n", summary)
	}

	b.WriteString("\nRespond with JSON: {\"hook\": str, \"body\": [{\"text\": str, \"screen_text\": str, \"duration_hint\": float}], \"cta\": str}")
	return b.String()
}

// parseScript decodes the model reply, tolerating markdown code fences.
func parseScript(content string) (domain.Script, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var script domain.Script
	if err := json.Unmarshal([]byte(content), &script); err != nil {
		return domain.Script{}, fmt.Errorf("parse script reply: %w", err)
	}

	parts := []string{script.Hook}
	for _, section := range script.Body {
		parts = append(parts, section.Text)
	}
	parts = append(parts, script.CTA)
	script.FullText = strings.TrimSpace(strings.Join(parts, " "))

	return script, nil
}

// stringList tolerates both []string (fresh from a fetcher) and []any
// (a context bag round-tripped through JSONB).
func stringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You write short narration scripts for tech news videos."
	}
	return prompt
}
