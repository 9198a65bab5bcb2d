package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/metrics"
	"github.com/vanities/techslop/internal/ports"
	"github.com/vanities/techslop/internal/scoring"
	"github.com/vanities/techslop/internal/source"
)

type fakeRunner struct {
	results []source.Result
}

func (f *fakeRunner) FetchAll(context.Context) []source.Result {
	return f.results
}

type memStore struct {
	stories   map[string]domain.Story
	jobs      map[int64]domain.VideoJob
	nextJob   int64
	upsertErr error
}

var _ ports.StoryStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{stories: map[string]domain.Story{}, jobs: map[int64]domain.VideoJob{}, nextJob: 1}
}

func (m *memStore) Upsert(_ context.Context, story domain.Story) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if existing, ok := m.stories[story.ID]; ok {
		existing.Score = story.Score
		existing.Context = story.Context
		m.stories[story.ID] = existing
		return nil
	}
	if story.Status == "" {
		story.Status = domain.StatusNew
	}
	m.stories[story.ID] = story
	return nil
}

func (m *memStore) TopNew(_ context.Context, limit int) ([]domain.Story, error) {
	var out []domain.Story
	for _, s := range m.stories {
		if s.Status == domain.StatusNew {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) All(context.Context) ([]domain.Story, error) {
	out := make([]domain.Story, 0, len(m.stories))
	for _, s := range m.stories {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) SetStatus(_ context.Context, id string, status domain.Status) error {
	s, ok := m.stories[id]
	if !ok {
		return fmt.Errorf("story %s not found", id)
	}
	s.Status = status
	m.stories[id] = s
	return nil
}

func (m *memStore) CreateJob(_ context.Context, job domain.VideoJob) (int64, error) {
	id := m.nextJob
	m.nextJob++
	job.ID = id
	m.jobs[id] = job
	return id, nil
}

func (m *memStore) UpdateJob(_ context.Context, job domain.VideoJob) error {
	if _, ok := m.jobs[job.ID]; !ok {
		return fmt.Errorf("job %d not found", job.ID)
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memStore) GetJob(_ context.Context, id int64) (domain.VideoJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return domain.VideoJob{}, fmt.Errorf("job %d not found", id)
	}
	return job, nil
}

type fakeScriptGen struct {
	err error
}

func (f *fakeScriptGen) Generate(_ context.Context, story domain.Story) (domain.Script, error) {
	if f.err != nil {
		return domain.Script{}, f.err
	}
	return domain.Script{Hook: "hook for " + story.Title, FullText: "full text"}, nil
}

type fakeVoice struct{}

func (fakeVoice) Synthesize(_ context.Context, _ domain.Script, outDir string) (string, error) {
	return outDir + "/voice.mp3", nil
}

func testStory(id, src string, raw float64) domain.Story {
	return domain.Story{
		ID:          id,
		Title:       "story " + id,
		URL:         "https://example.com/" + id,
		Source:      src,
		Score:       raw,
		PublishedAt: time.Now().Add(-24 * time.Hour),
		Status:      domain.StatusNew,
	}
}

func newTestPipeline(runner SourceRunner, store ports.StoryStore) *Pipeline {
	return NewPipeline(PipelineDeps{
		Sources:   runner,
		Scorer:    scoring.New(scoring.DefaultParams(), nil),
		Store:     store,
		ScriptGen: &fakeScriptGen{},
		Voice:     fakeVoice{},
		Metrics:   metrics.New(),
		OutputDir: "out",
	})
}

func TestIngestSurvivesFailedSource(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []source.Result{
		{Source: "hackernews", Stories: []domain.Story{testStory("a", "hackernews", 100), testStory("b", "hackernews", 50)}},
		{Source: "reddit", Err: errors.New("upstream down")},
	}}
	store := newMemStore()

	ranked, err := newTestPipeline(runner, store).Ingest(context.Background())
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked stories, got %d", len(ranked))
	}
	if ranked[0].ID != "a" {
		t.Fatalf("expected highest raw score first, got %s", ranked[0].ID)
	}
	if len(store.stories) != 2 {
		t.Fatalf("expected 2 persisted stories, got %d", len(store.stories))
	}
}

func TestIngestDeduplicatesAcrossSources(t *testing.T) {
	t.Parallel()

	dup := testStory("dup", "reddit", 10)
	dupHN := testStory("dup", "hackernews", 10)

	runner := &fakeRunner{results: []source.Result{
		{Source: "hackernews", Stories: []domain.Story{dupHN}},
		{Source: "reddit", Stories: []domain.Story{dup}},
	}}
	store := newMemStore()

	ranked, err := newTestPipeline(runner, store).Ingest(context.Background())
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("expected 1 story after dedup, got %d", len(ranked))
	}
	if ranked[0].Source != "hackernews" {
		t.Fatalf("expected the higher-weighted copy kept, got %s", ranked[0].Source)
	}
}

func TestIngestFailsOnStoreError(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []source.Result{
		{Source: "hackernews", Stories: []domain.Story{testStory("a", "hackernews", 1)}},
	}}
	store := newMemStore()
	store.upsertErr = errors.New("connection lost")

	if _, err := newTestPipeline(runner, store).Ingest(context.Background()); err == nil {
		t.Fatal("expected error when persistence fails")
	}
}

func TestIngestWithoutStore(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []source.Result{
		{Source: "hackernews", Stories: []domain.Story{testStory("a", "hackernews", 1)}},
	}}

	ranked, err := newTestPipeline(runner, nil).Ingest(context.Background())
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("expected ranked output without a store, got %d", len(ranked))
	}
}

func TestGenerateScript(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	story := testStory("abcdef123456", "hackernews", 1)
	if err := store.Upsert(context.Background(), story); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	p := newTestPipeline(&fakeRunner{}, store)

	job, err := p.GenerateScript(context.Background(), "abcdef")
	if err != nil {
		t.Fatalf("GenerateScript error: %v", err)
	}
	if job.ID == 0 || job.Script == nil {
		t.Fatalf("incomplete job: %+v", job)
	}
	if !strings.HasPrefix(job.Script.Hook, "hook for") {
		t.Fatalf("unexpected hook: %q", job.Script.Hook)
	}
	if store.stories[story.ID].Status != domain.StatusScripted {
		t.Fatalf("story status not advanced: %s", store.stories[story.ID].Status)
	}
}

func TestSynthesizeVoice(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	story := testStory("abc", "hackernews", 1)
	if err := store.Upsert(context.Background(), story); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	p := newTestPipeline(&fakeRunner{}, store)
	job, err := p.GenerateScript(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GenerateScript error: %v", err)
	}

	voiced, err := p.SynthesizeVoice(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("SynthesizeVoice error: %v", err)
	}
	if voiced.AudioPath != "out/abc/voice.mp3" {
		t.Fatalf("unexpected audio path: %s", voiced.AudioPath)
	}
	if store.stories[story.ID].Status != domain.StatusVoiced {
		t.Fatalf("story status not advanced: %s", store.stories[story.ID].Status)
	}
}

func TestFindStoryPrefixMatching(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	for _, id := range []string{"aa11", "aa22", "bb33"} {
		if err := store.Upsert(context.Background(), testStory(id, "hackernews", 1)); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}

	p := newTestPipeline(&fakeRunner{}, store)

	if _, err := p.FindStory(context.Background(), "aa"); err == nil {
		t.Fatal("expected ambiguous prefix to error")
	}
	if _, err := p.FindStory(context.Background(), "zz"); err == nil {
		t.Fatal("expected missing prefix to error")
	}
	story, err := p.FindStory(context.Background(), "bb")
	if err != nil {
		t.Fatalf("FindStory error: %v", err)
	}
	if story.ID != "bb33" {
		t.Fatalf("wrong story: %s", story.ID)
	}
}
