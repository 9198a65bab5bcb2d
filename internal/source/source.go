package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vanities/techslop/internal/domain"
)

// Fetcher captures a single ingestion source (Hacker News, Reddit, etc.).
//
// Fetch returns as many valid stories as it could parse; sub-request
// failures are scoped and logged inside the fetcher. A non-nil error
// means the whole source failed and contributed nothing this run.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Story, error)
}

// Result is the structured outcome of one source's fetch.
type Result struct {
	Source  string
	Stories []domain.Story
	Err     error
	Elapsed time.Duration
}

// Registry keeps a closed mapping from source names to their fetchers,
// populated once during wiring.
type Registry struct {
	fetchers map[string]Fetcher
	order    []string
	logger   *slog.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{fetchers: map[string]Fetcher{}, logger: logger}
}

// Register adds or replaces a fetcher implementation.
func (r *Registry) Register(f Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]Fetcher{}
	}
	if _, exists := r.fetchers[f.Name()]; !exists {
		r.order = append(r.order, f.Name())
	}
	r.fetchers[f.Name()] = f
}

// Resolve returns a fetcher by name or an error if it is absent. Wiring
// calls this for every configured source name, so unknown names fail at
// startup rather than at fetch time.
func (r *Registry) Resolve(name string) (Fetcher, error) {
	if f, ok := r.fetchers[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// Names lists registered sources in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FetchAll runs every registered fetcher concurrently and joins when all
// have finished. One misbehaving source never aborts the others: errors
// and panics are captured into that source's Result, and the remaining
// sources still contribute their stories. Results come back in
// registration order.
func (r *Registry) FetchAll(ctx context.Context) []Result {
	results := make([]Result, len(r.order))

	var wg sync.WaitGroup
	for i, name := range r.order {
		wg.Add(1)
		go func(i int, f Fetcher) {
			defer wg.Done()
			results[i] = r.runOne(ctx, f)
		}(i, r.fetchers[name])
	}
	wg.Wait()

	return results
}

func (r *Registry) runOne(ctx context.Context, f Fetcher) (res Result) {
	res.Source = f.Name()
	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
		if rec := recover(); rec != nil {
			res.Stories = nil
			res.Err = fmt.Errorf("source %s panicked: %v", res.Source, rec)
		}
		if res.Err != nil {
			r.log().Error("source failed", "source", res.Source, "error", res.Err)
		} else {
			r.log().Info("source returned stories", "source", res.Source, "count", len(res.Stories), "elapsed", res.Elapsed)
		}
	}()

	res.Stories, res.Err = f.Fetch(ctx)
	return res
}

func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
