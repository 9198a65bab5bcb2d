package source

import (
	"context"
	"errors"
	"testing"

	"github.com/vanities/techslop/internal/domain"
)

type stubFetcher struct {
	name    string
	stories []domain.Story
	err     error
	panics  bool
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(context.Context) ([]domain.Story, error) {
	if s.panics {
		panic("fetcher exploded")
	}
	return s.stories, s.err
}

func TestResolveUnknownSource(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	r.Register(&stubFetcher{name: "hackernews"})

	if _, err := r.Resolve("hackernews"); err != nil {
		t.Fatalf("known source: %v", err)
	}
	if _, err := r.Resolve("myspace"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	healthy := []domain.Story{{ID: "a", Title: "ok", Source: "good"}}

	r := NewRegistry(nil)
	r.Register(&stubFetcher{name: "good", stories: healthy})
	r.Register(&stubFetcher{name: "broken", err: errors.New("upstream 500")})
	r.Register(&stubFetcher{name: "panicky", panics: true})

	results := r.FetchAll(context.Background())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	byName := map[string]Result{}
	for _, res := range results {
		byName[res.Source] = res
	}

	if res := byName["good"]; res.Err != nil || len(res.Stories) != 1 {
		t.Fatalf("healthy source degraded: %+v", res)
	}
	if res := byName["broken"]; res.Err == nil {
		t.Fatal("expected error result for broken source")
	}
	if res := byName["panicky"]; res.Err == nil || res.Stories != nil {
		t.Fatalf("panic not captured as error: %+v", res)
	}
}

func TestFetchAllPreservesRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	for _, name := range []string{"one", "two", "three"} {
		r.Register(&stubFetcher{name: name})
	}

	results := r.FetchAll(context.Background())
	for i, want := range []string{"one", "two", "three"} {
		if results[i].Source != want {
			t.Fatalf("position %d: want %s, got %s", i, want, results[i].Source)
		}
	}
}

func TestRegisterReplacesByName(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	r.Register(&stubFetcher{name: "dup"})
	r.Register(&stubFetcher{name: "dup", stories: []domain.Story{{ID: "x"}}})

	if got := len(r.Names()); got != 1 {
		t.Fatalf("expected 1 registered name, got %d", got)
	}

	f, err := r.Resolve("dup")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	stories, _ := f.Fetch(context.Background())
	if len(stories) != 1 {
		t.Fatal("expected the replacement fetcher to win")
	}
}
