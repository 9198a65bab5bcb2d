package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vanities/techslop/internal/config"
	"github.com/vanities/techslop/internal/infrastructure/ingest"
	"github.com/vanities/techslop/internal/infrastructure/llm"
	"github.com/vanities/techslop/internal/infrastructure/scheduler"
	"github.com/vanities/techslop/internal/infrastructure/storage"
	"github.com/vanities/techslop/internal/infrastructure/voice"
	"github.com/vanities/techslop/internal/logging"
	"github.com/vanities/techslop/internal/metrics"
	"github.com/vanities/techslop/internal/ports"
	"github.com/vanities/techslop/internal/scoring"
	"github.com/vanities/techslop/internal/source"
	"github.com/vanities/techslop/internal/usecase"
)

// Application wires configuration to adapters, use cases, and lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.PostgresStore
	metrics  *metrics.Metrics
	pipeline *usecase.Pipeline
}

// New builds a runnable application. Unknown source names in the config
// are rejected here, before anything fetches.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	catalog := buildCatalog(cfg, baseLogger)
	enabled := source.NewRegistry(baseLogger.With("component", "source"))
	for _, name := range cfg.Ingest.Sources {
		f, err := catalog.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("configure sources: %w", err)
		}
		enabled.Register(f)
	}

	var store *storage.PostgresStore
	if cfg.Database.DSN != "" {
		var err error
		store, err = storage.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	var scriptGen ports.ScriptGenerator
	if cfg.ChatGPT.APIKey != "" {
		scriptGen = llm.NewChatGPTClient(cfg.ChatGPT)
	}

	var synth ports.VoiceSynthesizer
	if cfg.Voice.Endpoint != "" {
		synth = voice.NewClient(cfg.Voice)
	}

	m := metrics.New()
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:       enabled,
		Scorer:        scoring.New(scoringParams(cfg.Scoring), baseLogger.With("component", "scorer")),
		Store:         storeOrNil(store),
		ScriptGen:     scriptGen,
		Voice:         synth,
		Metrics:       m,
		Logger:        baseLogger.With("component", "pipeline"),
		IngestTimeout: cfg.Ingest.TimeoutDuration(),
		OutputDir:     cfg.Output.Dir,
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		metrics:  m,
		pipeline: pipeline,
	}, nil
}

// Pipeline exposes the orchestration use case to the CLI.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Store returns the persistence adapter, or nil when no DSN is set.
func (a *Application) Store() ports.StoryStore { return storeOrNil(a.store) }

// Close releases held resources.
func (a *Application) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Serve runs scheduled ingestion plus the monitoring endpoints until ctx
// is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression)
	sched := usecase.NewScheduler(driver, a.pipeline)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		status := http.StatusOK
		if !a.metrics.Healthy() {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]bool{"healthy": a.metrics.Healthy()})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.metrics.Stats())
	})

	server := &http.Server{
		Addr:    net.JoinHostPort("", a.cfg.Scheduler.MonitorPort),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("monitoring endpoints listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = sched.Stop(context.Background())
		return fmt.Errorf("monitoring server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		a.logger.Error("monitoring server shutdown", "error", err)
	}
	return sched.Stop(shutdownCtx)
}

// buildCatalog registers every fetcher this build knows about, keyed by
// the names accepted in the ingest.sources config list.
func buildCatalog(cfg config.Config, logger *slog.Logger) *source.Registry {
	client := &http.Client{Timeout: 30 * time.Second}

	catalog := source.NewRegistry(logger.With("component", "source.catalog"))
	catalog.Register(ingest.NewHackerNewsFetcher(client, logger.With("component", "source.hackernews")))
	catalog.Register(ingest.NewRedditFetcher(config.SplitList(cfg.Ingest.RedditSubreddits), client, logger.With("component", "source.reddit")))
	catalog.Register(ingest.NewTechCrunchFetcher(client, logger.With("component", "source.techcrunch")))
	catalog.Register(ingest.NewFourchanFetcher(config.SplitList(cfg.Ingest.FourchanKeywords), client, logger.With("component", "source.fourchan")))
	catalog.Register(ingest.NewXSearchFetcher(config.SplitList(cfg.Ingest.XKeywords), client, logger.With("component", "source.x")))
	return catalog
}

func scoringParams(cfg config.ScoringConfig) scoring.Params {
	params := scoring.DefaultParams()
	if len(cfg.Weights) > 0 {
		params.Weights = cfg.Weights
	}
	if cfg.RecencyHours > 0 {
		params.RecencyWindow = time.Duration(cfg.RecencyHours * float64(time.Hour))
	}
	if cfg.RecencyBoost > 0 {
		params.RecencyBoost = cfg.RecencyBoost
	}
	return params
}

// storeOrNil avoids handing a typed-nil interface to the pipeline.
func storeOrNil(store *storage.PostgresStore) ports.StoryStore {
	if store == nil {
		return nil
	}
	return store
}
