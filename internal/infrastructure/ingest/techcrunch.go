package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/source"
)

const (
	techcrunchDefaultFeedURL = "https://techcrunch.com/feed/"
	techcrunchClientTimeout  = 15 * time.Second
)

// TechCrunchFetcher reads the main TechCrunch RSS feed. The feed is
// ordered by recency and editorial prominence, so stories get a
// position-based score like the other chronological feeds.
type TechCrunchFetcher struct {
	feedURL string
	parser  *gofeed.Parser
	logger  *slog.Logger
}

var _ source.Fetcher = (*TechCrunchFetcher)(nil)

// NewTechCrunchFetcher wires an HTTP client; nil gets a default with timeout.
func NewTechCrunchFetcher(client *http.Client, logger *slog.Logger) *TechCrunchFetcher {
	if client == nil {
		client = &http.Client{Timeout: techcrunchClientTimeout}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	return &TechCrunchFetcher{feedURL: techcrunchDefaultFeedURL, parser: parser, logger: logger}
}

// Name identifies the fetcher inside the registry.
func (t *TechCrunchFetcher) Name() string {
	return "techcrunch"
}

// Fetch parses the feed into stories; a download or parse failure fails
// the whole source since there is only one request.
func (t *TechCrunchFetcher) Fetch(ctx context.Context) ([]domain.Story, error) {
	feed, err := t.parser.ParseURLWithContext(t.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	total := len(feed.Items)
	stories := make([]domain.Story, 0, total)

	for rank, item := range feed.Items {
		if item.Link == "" || item.Title == "" {
			continue
		}

		stories = append(stories, domain.Story{
			ID:          domain.StoryID(item.Link),
			Title:       item.Title,
			URL:         item.Link,
			Source:      t.Name(),
			Score:       float64(total - rank),
			PublishedAt: feedTime(item),
			Status:      domain.StatusNew,
			Context: map[string]any{
				"summary": stripHTML(item.Description),
			},
		})
	}

	t.log().Info("fetched feed", "source", t.Name(), "count", len(stories))
	return stories, nil
}

func (t *TechCrunchFetcher) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}
