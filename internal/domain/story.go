package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Status tracks how far a story has progressed through the pipeline.
type Status string

const (
	StatusNew       Status = "new"
	StatusScripted  Status = "scripted"
	StatusVoiced    Status = "voiced"
	StatusRendered  Status = "rendered"
	StatusPublished Status = "published"
)

// Story is the canonical record every source fetcher produces.
// ID is derived from the URL alone, so the same link surfaced by two
// sources collapses into one story.
type Story struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Source      string         `json:"source"`
	Score       float64        `json:"score"`
	PublishedAt time.Time      `json:"published_at"`
	Context     map[string]any `json:"context,omitempty"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// StoryID returns the stable identifier for a canonical URL: the hex
// SHA-256 of the URL string. Fetch time and score never feed the hash.
func StoryID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// ScriptSection is one spoken beat of a generated script.
type ScriptSection struct {
	Text         string  `json:"text"`
	ScreenText   string  `json:"screen_text"`
	DurationHint float64 `json:"duration_hint"`
}

// Script is the generated narration for a single story.
type Script struct {
	StoryID  string          `json:"story_id"`
	Hook     string          `json:"hook"`
	Body     []ScriptSection `json:"body"`
	CTA      string          `json:"cta"`
	FullText string          `json:"full_text"`
}

// VideoJob associates a story with its current artifact set. At most one
// job per story is active; artifact paths fill in as the job advances.
type VideoJob struct {
	ID             int64      `json:"id"`
	StoryID        string     `json:"story_id"`
	Script         *Script    `json:"script,omitempty"`
	AudioPath      string     `json:"audio_path,omitempty"`
	TimestampsPath string     `json:"timestamps_path,omitempty"`
	VideoPath      string     `json:"video_path,omitempty"`
	YouTubeID      string     `json:"youtube_id,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}
