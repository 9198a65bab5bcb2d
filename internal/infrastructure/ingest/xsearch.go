package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/source"
)

const (
	xDefaultBaseURL = "https://nitter.net"
	xClientTimeout  = 30 * time.Second
	xTitleMaxRunes  = 200
	xMaxBytes       = 2 << 20
)

// XSearchFetcher polls Nitter search RSS, one request per configured
// keyword. Results across keyword queries are deduplicated by story id
// before they leave the fetcher.
type XSearchFetcher struct {
	keywords []string
	baseURL  string
	client   *http.Client
	parser   *gofeed.Parser
	logger   *slog.Logger
}

var _ source.Fetcher = (*XSearchFetcher)(nil)

// NewXSearchFetcher wires the search keywords from configuration.
func NewXSearchFetcher(keywords []string, client *http.Client, logger *slog.Logger) *XSearchFetcher {
	if client == nil {
		client = &http.Client{Timeout: xClientTimeout}
	}
	return &XSearchFetcher{
		keywords: keywords,
		baseURL:  xDefaultBaseURL,
		client:   client,
		parser:   gofeed.NewParser(),
		logger:   logger,
	}
}

// Name identifies the fetcher inside the registry.
func (x *XSearchFetcher) Name() string {
	return "x"
}

// Fetch runs every keyword search and merges the results. Each keyword
// request is scoped: a failing search is logged and skipped while the
// remaining keywords still contribute.
func (x *XSearchFetcher) Fetch(ctx context.Context) ([]domain.Story, error) {
	if len(x.keywords) == 0 {
		x.log().Warn("no keywords configured; skipping source", "source", x.Name())
		return nil, nil
	}

	seen := map[string]struct{}{}
	var all []domain.Story

	for _, keyword := range x.keywords {
		stories, err := x.searchKeyword(ctx, keyword)
		if err != nil {
			x.log().Warn("keyword search failed", "source", x.Name(), "keyword", keyword, "error", err)
			continue
		}

		fresh := 0
		for _, story := range stories {
			if _, dup := seen[story.ID]; dup {
				continue
			}
			seen[story.ID] = struct{}{}
			all = append(all, story)
			fresh++
		}
		x.log().Debug("keyword search done", "source", x.Name(), "keyword", keyword, "tweets", len(stories), "new", fresh)
	}
	return all, nil
}

func (x *XSearchFetcher) searchKeyword(ctx context.Context, keyword string) ([]domain.Story, error) {
	searchURL := fmt.Sprintf("%s/search/rss?f=tweets&q=%s", x.baseURL, url.QueryEscape(keyword))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	feed, err := x.parser.Parse(io.LimitReader(resp.Body, xMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	total := len(feed.Items)
	stories := make([]domain.Story, 0, total)

	for rank, item := range feed.Items {
		if item.Link == "" {
			continue
		}

		title := truncateRunes(item.Title, xTitleMaxRunes)
		if title == "" {
			title = item.Link
		}

		tweetText := item.Description
		if tweetText == "" {
			tweetText = item.Title
		}

		stories = append(stories, domain.Story{
			ID:          domain.StoryID(item.Link),
			Title:       title,
			URL:         item.Link,
			Source:      x.Name(),
			Score:       float64(total - rank),
			PublishedAt: feedTime(item),
			Status:      domain.StatusNew,
			Context: map[string]any{
				"tweet_text": stripHTML(tweetText),
				"keyword":    keyword,
			},
		})
	}
	return stories, nil
}

func (x *XSearchFetcher) log() *slog.Logger {
	if x.logger != nil {
		return x.logger
	}
	return slog.Default()
}
