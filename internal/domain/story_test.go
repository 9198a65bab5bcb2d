package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStoryID(t *testing.T) {
	t.Parallel()

	a := StoryID("https://example.com/article")
	b := StoryID("https://example.com/article")
	c := StoryID("https://example.com/other")

	if a != b {
		t.Fatal("same url must hash to the same id")
	}
	if a == c {
		t.Fatal("different urls must hash differently")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha-256 length 64, got %d", len(a))
	}
}

func TestStoryJSONRoundTrip(t *testing.T) {
	t.Parallel()

	in := Story{
		ID:          StoryID("https://example.com/a"),
		Title:       "A Story",
		URL:         "https://example.com/a",
		Source:      "hackernews",
		Score:       0.87,
		PublishedAt: time.Date(2025, time.August, 25, 12, 0, 0, 0, time.UTC),
		Context: map[string]any{
			"author":   "pg",
			"comments": []any{"one", "two"},
		},
		Status:    StatusNew,
		CreatedAt: time.Date(2025, time.August, 25, 12, 5, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Story
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.ID != in.ID || out.Title != in.Title || out.Status != in.Status {
		t.Fatalf("fields lost: %+v", out)
	}
	if !out.PublishedAt.Equal(in.PublishedAt) {
		t.Fatalf("published_at changed: %v", out.PublishedAt)
	}
	if out.Context["author"] != "pg" {
		t.Fatalf("context bag lost: %v", out.Context)
	}
}
