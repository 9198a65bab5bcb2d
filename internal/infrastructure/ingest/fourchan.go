package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/source"
)

const (
	fourchanDefaultAPIURL   = "https://a.4cdn.org"
	fourchanDefaultBoardURL = "https://boards.4chan.org"
	fourchanBoard           = "g"
	fourchanTopN            = 20
	fourchanTopReplies      = 5
	fourchanClientTimeout   = 30 * time.Second
	fourchanMaxBytes        = 4 << 20
)

// FourchanFetcher scans the /g/ catalog for threads matching configured
// keywords. The catalog is cheap listing data; the per-thread detail
// requests happen only for the top-N matches, sequentially.
type FourchanFetcher struct {
	keywords []string
	apiURL   string
	boardURL string
	client   *http.Client
	logger   *slog.Logger
}

var _ source.Fetcher = (*FourchanFetcher)(nil)

// NewFourchanFetcher wires the keyword filter from configuration.
func NewFourchanFetcher(keywords []string, client *http.Client, logger *slog.Logger) *FourchanFetcher {
	if client == nil {
		client = &http.Client{Timeout: fourchanClientTimeout}
	}
	return &FourchanFetcher{
		keywords: lowerAll(keywords),
		apiURL:   fourchanDefaultAPIURL,
		boardURL: fourchanDefaultBoardURL,
		client:   client,
		logger:   logger,
	}
}

// Name identifies the fetcher inside the registry.
func (f *FourchanFetcher) Name() string {
	return "fourchan"
}

type fourchanThread struct {
	No      int    `json:"no"`
	Sub     string `json:"sub"`
	Com     string `json:"com"`
	Time    int64  `json:"time"`
	Replies int    `json:"replies"`
}

type fourchanPage struct {
	Threads []fourchanThread `json:"threads"`
}

type fourchanPost struct {
	No  int    `json:"no"`
	Com string `json:"com"`
}

// Fetch returns keyword-matching threads ordered by reply count. An
// unconfigured keyword list skips the source entirely; a failed thread
// detail request degrades to a story without reply context.
func (f *FourchanFetcher) Fetch(ctx context.Context) ([]domain.Story, error) {
	if len(f.keywords) == 0 {
		f.log().Warn("no keywords configured; skipping source", "source", f.Name())
		return nil, nil
	}

	var catalog []fourchanPage
	if err := f.getJSON(ctx, fmt.Sprintf("%s/%s/catalog.json", f.apiURL, fourchanBoard), &catalog); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var matching []fourchanThread
	for _, page := range catalog {
		for _, thread := range page.Threads {
			combined := stripHTML(thread.Sub) + " " + stripHTML(thread.Com)
			if matchesAny(combined, f.keywords) {
				matching = append(matching, thread)
			}
		}
	}

	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Replies > matching[j].Replies
	})
	if len(matching) > fourchanTopN {
		matching = matching[:fourchanTopN]
	}

	stories := make([]domain.Story, 0, len(matching))
	for _, thread := range matching {
		stories = append(stories, f.makeStory(ctx, thread))
	}
	return stories, nil
}

func (f *FourchanFetcher) makeStory(ctx context.Context, thread fourchanThread) domain.Story {
	threadURL := fmt.Sprintf("%s/%s/thread/%d", f.boardURL, fourchanBoard, thread.No)

	publishedAt := time.Now().UTC()
	if thread.Time > 0 {
		publishedAt = time.Unix(thread.Time, 0).UTC()
	}

	return domain.Story{
		ID:          domain.StoryID(threadURL),
		Title:       f.makeTitle(thread),
		URL:         threadURL,
		Source:      f.Name(),
		Score:       float64(thread.Replies),
		PublishedAt: publishedAt,
		Status:      domain.StatusNew,
		Context: map[string]any{
			"thread_no":     thread.No,
			"subject":       stripHTML(thread.Sub),
			"comment":       stripHTML(thread.Com),
			"replies_count": thread.Replies,
			"comments":      f.fetchReplies(ctx, thread.No),
		},
	}
}

// makeTitle derives a title from the subject, falling back to the OP
// comment since most threads carry no subject line.
func (f *FourchanFetcher) makeTitle(thread fourchanThread) string {
	if subject := stripHTML(thread.Sub); subject != "" {
		return subject
	}
	if comment := stripHTML(thread.Com); comment != "" {
		return truncateRunes(comment, 100)
	}
	return "(no subject)"
}

// fetchReplies pulls the thread detail and returns the first few reply
// texts after the OP. Failures degrade to no replies.
func (f *FourchanFetcher) fetchReplies(ctx context.Context, threadNo int) []string {
	var detail struct {
		Posts []fourchanPost `json:"posts"`
	}
	url := fmt.Sprintf("%s/%s/thread/%d.json", f.apiURL, fourchanBoard, threadNo)
	if err := f.getJSON(ctx, url, &detail); err != nil {
		f.log().Warn("failed to fetch thread", "source", f.Name(), "thread", threadNo, "error", err)
		return nil
	}

	posts := detail.Posts
	if len(posts) == 0 {
		return nil
	}
	posts = posts[1:] // skip the OP
	if len(posts) > fourchanTopReplies {
		posts = posts[:fourchanTopReplies]
	}

	replies := make([]string, 0, len(posts))
	for _, post := range posts {
		if text := stripHTML(post.Com); text != "" {
			replies = append(replies, text)
		}
	}
	return replies
}

func (f *FourchanFetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, fourchanMaxBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (f *FourchanFetcher) log() *slog.Logger {
	if f.logger != nil {
		return f.logger
	}
	return slog.Default()
}
