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
	redditDefaultBaseURL = "https://www.reddit.com"
	redditClientTimeout  = 15 * time.Second
)

// RedditFetcher reads the public RSS feed of each configured subreddit.
// Feeds are chronological/"hot"-ordered with no native score, so stories
// get a position-based score: first entry N, last entry 1.
type RedditFetcher struct {
	subreddits []string
	baseURL    string
	parser     *gofeed.Parser
	logger     *slog.Logger
}

var _ source.Fetcher = (*RedditFetcher)(nil)

// NewRedditFetcher wires the subreddit list from configuration.
func NewRedditFetcher(subreddits []string, client *http.Client, logger *slog.Logger) *RedditFetcher {
	if client == nil {
		client = &http.Client{Timeout: redditClientTimeout}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	return &RedditFetcher{
		subreddits: subreddits,
		baseURL:    redditDefaultBaseURL,
		parser:     parser,
		logger:     logger,
	}
}

// Name identifies the fetcher inside the registry.
func (r *RedditFetcher) Name() string {
	return "reddit"
}

// Fetch aggregates stories across all configured subreddits. A feed that
// fails to download or parse is logged and skipped; the remaining
// subreddits still contribute.
func (r *RedditFetcher) Fetch(ctx context.Context) ([]domain.Story, error) {
	if len(r.subreddits) == 0 {
		r.log().Warn("no subreddits configured; skipping source", "source", r.Name())
		return nil, nil
	}

	var all []domain.Story
	for _, sub := range r.subreddits {
		feedURL := fmt.Sprintf("%s/r/%s/.rss", r.baseURL, sub)
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			r.log().Warn("failed to parse subreddit feed", "source", r.Name(), "subreddit", sub, "error", err)
			continue
		}

		stories := r.feedStories(feed, sub)
		r.log().Info("fetched subreddit", "source", r.Name(), "subreddit", sub, "count", len(stories))
		all = append(all, stories...)
	}
	return all, nil
}

func (r *RedditFetcher) feedStories(feed *gofeed.Feed, sub string) []domain.Story {
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
			Source:      r.Name(),
			Score:       float64(total - rank),
			PublishedAt: feedTime(item),
			Status:      domain.StatusNew,
			Context: map[string]any{
				"subreddit": sub,
				"summary":   stripHTML(item.Description),
			},
		})
	}
	return stories
}

func (r *RedditFetcher) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// feedTime prefers the published timestamp, then updated, then now.
func feedTime(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return time.Now().UTC()
	}
}
