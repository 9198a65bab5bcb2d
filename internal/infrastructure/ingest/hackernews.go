package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/source"
)

const (
	hnDefaultBaseURL   = "https://hacker-news.firebaseio.com/v0"
	hnItemPageURL      = "https://news.ycombinator.com/item?id=%d"
	hnTopN             = 30
	hnTopComments      = 3
	hnSubFetchInFlight = 10
	hnMaxResponseBytes = 1 << 20
	hnClientTimeout    = 30 * time.Second
)

// HackerNewsFetcher pulls top stories from the official Firebase API.
// Each story needs one item sub-request plus up to hnTopComments comment
// sub-requests; those run with bounded concurrency after the top-N cut.
type HackerNewsFetcher struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ source.Fetcher = (*HackerNewsFetcher)(nil)

// NewHackerNewsFetcher wires an HTTP client; nil gets a default with timeout.
func NewHackerNewsFetcher(client *http.Client, logger *slog.Logger) *HackerNewsFetcher {
	if client == nil {
		client = &http.Client{Timeout: hnClientTimeout}
	}
	return &HackerNewsFetcher{baseURL: hnDefaultBaseURL, client: client, logger: logger}
}

// Name identifies the fetcher inside the registry.
func (h *HackerNewsFetcher) Name() string {
	return "hackernews"
}

type hnItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
	Text        string `json:"text"`
	Kids        []int  `json:"kids"`
}

// Fetch returns up to hnTopN stories in front-page order. Individual item
// failures are logged and skipped; only a failed top-stories listing
// fails the whole source.
func (h *HackerNewsFetcher) Fetch(ctx context.Context) ([]domain.Story, error) {
	var ids []int
	if err := h.getJSON(ctx, h.baseURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("top stories: %w", err)
	}
	if len(ids) > hnTopN {
		ids = ids[:hnTopN]
	}

	type indexed struct {
		idx   int
		story domain.Story
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, hnSubFetchInFlight)
		stories = make([]indexed, 0, len(ids))
	)

	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx, id int) {
			defer wg.Done()
			defer func() { <-sem }()

			item, err := h.fetchItem(ctx, id)
			if err != nil {
				h.log().Warn("failed to fetch item", "source", h.Name(), "item", id, "error", err)
				return
			}
			story, ok := h.makeStory(ctx, item)
			if !ok {
				return
			}

			mu.Lock()
			stories = append(stories, indexed{idx: idx, story: story})
			mu.Unlock()
		}(i, id)
	}
	wg.Wait()

	// Restore front-page order lost to concurrent completion.
	sort.Slice(stories, func(i, j int) bool { return stories[i].idx < stories[j].idx })

	ordered := make([]domain.Story, 0, len(stories))
	for _, s := range stories {
		ordered = append(ordered, s.story)
	}
	return ordered, nil
}

func (h *HackerNewsFetcher) makeStory(ctx context.Context, item hnItem) (domain.Story, bool) {
	if item.Title == "" || item.Type != "story" {
		return domain.Story{}, false
	}

	// Self-posts carry no external link; point at the HN comments page.
	itemURL := item.URL
	if itemURL == "" {
		itemURL = fmt.Sprintf(hnItemPageURL, item.ID)
	}

	publishedAt := time.Now().UTC()
	if item.Time > 0 {
		publishedAt = time.Unix(item.Time, 0).UTC()
	}

	comments := h.fetchComments(ctx, item.Kids)

	return domain.Story{
		ID:          domain.StoryID(itemURL),
		Title:       item.Title,
		URL:         itemURL,
		Source:      h.Name(),
		Score:       float64(item.Score),
		PublishedAt: publishedAt,
		Status:      domain.StatusNew,
		Context: map[string]any{
			"hn_id":          item.ID,
			"author":         item.By,
			"comments_count": item.Descendants,
			"comments":       comments,
		},
	}, true
}

// fetchComments grabs up to hnTopComments top-level reply texts. Failures
// degrade to fewer comments, never to a dropped story.
func (h *HackerNewsFetcher) fetchComments(ctx context.Context, kids []int) []string {
	if len(kids) > hnTopComments {
		kids = kids[:hnTopComments]
	}

	comments := make([]string, 0, len(kids))
	for _, id := range kids {
		item, err := h.fetchItem(ctx, id)
		if err != nil {
			h.log().Warn("failed to fetch comment", "source", h.Name(), "item", id, "error", err)
			continue
		}
		if item.Type != "comment" {
			continue
		}
		if text := stripHTML(item.Text); text != "" {
			comments = append(comments, text)
		}
	}
	return comments
}

func (h *HackerNewsFetcher) fetchItem(ctx context.Context, id int) (hnItem, error) {
	var item hnItem
	err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.baseURL, id), &item)
	return item, err
}

func (h *HackerNewsFetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (h *HackerNewsFetcher) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
