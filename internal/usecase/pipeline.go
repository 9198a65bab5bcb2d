package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/metrics"
	"github.com/vanities/techslop/internal/ports"
	"github.com/vanities/techslop/internal/scoring"
	"github.com/vanities/techslop/internal/source"
)

// SourceRunner is the fan-out entry point the pipeline drives.
type SourceRunner interface {
	FetchAll(ctx context.Context) []source.Result
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Sources   SourceRunner
	Scorer    *scoring.Scorer
	Store     ports.StoryStore
	ScriptGen ports.ScriptGenerator
	Voice     ports.VoiceSynthesizer
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// IngestTimeout bounds one complete fan-out; zero disables the budget.
	IngestTimeout time.Duration
	OutputDir     string
}

// Pipeline implements the story-ingestion workflow and the downstream
// step sequencing around it.
type Pipeline struct {
	sources   SourceRunner
	scorer    *scoring.Scorer
	store     ports.StoryStore
	scriptGen ports.ScriptGenerator
	voice     ports.VoiceSynthesizer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	timeout   time.Duration
	outputDir string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		sources:   deps.Sources,
		scorer:    deps.Scorer,
		store:     deps.Store,
		scriptGen: deps.ScriptGen,
		voice:     deps.Voice,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		timeout:   deps.IngestTimeout,
		outputDir: deps.OutputDir,
	}
}

// Ingest runs every source concurrently, scores the combined list, and
// upserts the ranked stories. Individual source failures surface only as
// reduced counts and log entries; Ingest itself fails only when it
// cannot run at all or cannot persist.
func (p *Pipeline) Ingest(ctx context.Context) ([]domain.Story, error) {
	if p.sources == nil {
		return nil, fmt.Errorf("no sources configured")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	results := p.sources.FetchAll(ctx)

	var collected []domain.Story
	failures := 0
	for _, res := range results {
		if res.Err != nil {
			failures++
			continue
		}
		collected = append(collected, res.Stories...)
	}
	p.log().Info("collected raw stories", "count", len(collected), "sources", len(results), "failed_sources", failures)

	ranked := p.scorer.Rank(collected)
	duplicates := len(collected) - len(ranked)

	if p.store != nil {
		for _, story := range ranked {
			if err := p.store.Upsert(ctx, story); err != nil {
				if p.metrics != nil {
					p.metrics.RecordError(err)
				}
				return nil, fmt.Errorf("persist story %s: %w", story.ID, err)
			}
		}
	}

	if p.metrics != nil {
		p.metrics.RecordRun(len(ranked), duplicates, failures, time.Since(start))
	}
	return ranked, nil
}

// GenerateScript produces a narration script for the story matching the
// id prefix, records a video job, and advances the story's status.
func (p *Pipeline) GenerateScript(ctx context.Context, idPrefix string) (domain.VideoJob, error) {
	if p.store == nil {
		return domain.VideoJob{}, fmt.Errorf("no store configured")
	}
	if p.scriptGen == nil {
		return domain.VideoJob{}, fmt.Errorf("no script generator configured")
	}

	story, err := p.FindStory(ctx, idPrefix)
	if err != nil {
		return domain.VideoJob{}, err
	}

	script, err := p.scriptGen.Generate(ctx, story)
	if err != nil {
		return domain.VideoJob{}, fmt.Errorf("generate script for %s: %w", story.ID, err)
	}

	job := domain.VideoJob{
		StoryID: story.ID,
		Script:  &script,
		Status:  "scripted",
	}
	job.ID, err = p.store.CreateJob(ctx, job)
	if err != nil {
		return domain.VideoJob{}, fmt.Errorf("create job: %w", err)
	}

	if err := p.store.SetStatus(ctx, story.ID, domain.StatusScripted); err != nil {
		return domain.VideoJob{}, fmt.Errorf("mark scripted: %w", err)
	}
	return job, nil
}

// SynthesizeVoice renders a job's script to audio and records the path.
func (p *Pipeline) SynthesizeVoice(ctx context.Context, jobID int64) (domain.VideoJob, error) {
	if p.store == nil {
		return domain.VideoJob{}, fmt.Errorf("no store configured")
	}
	if p.voice == nil {
		return domain.VideoJob{}, fmt.Errorf("no voice synthesizer configured")
	}

	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.VideoJob{}, err
	}
	if job.Script == nil {
		return domain.VideoJob{}, fmt.Errorf("job %d has no script", jobID)
	}

	audioPath, err := p.voice.Synthesize(ctx, *job.Script, filepath.Join(p.outputDir, job.StoryID))
	if err != nil {
		return domain.VideoJob{}, fmt.Errorf("synthesize job %d: %w", jobID, err)
	}

	job.AudioPath = audioPath
	job.Status = "voiced"
	if err := p.store.UpdateJob(ctx, job); err != nil {
		return domain.VideoJob{}, fmt.Errorf("update job: %w", err)
	}
	if err := p.store.SetStatus(ctx, job.StoryID, domain.StatusVoiced); err != nil {
		return domain.VideoJob{}, fmt.Errorf("mark voiced: %w", err)
	}
	return job, nil
}

// FindStory resolves a story by id prefix, erroring on zero or multiple
// matches.
func (p *Pipeline) FindStory(ctx context.Context, idPrefix string) (domain.Story, error) {
	if idPrefix == "" {
		return domain.Story{}, fmt.Errorf("empty story id")
	}

	stories, err := p.store.All(ctx)
	if err != nil {
		return domain.Story{}, fmt.Errorf("load stories: %w", err)
	}

	var matches []domain.Story
	for _, story := range stories {
		if strings.HasPrefix(story.ID, idPrefix) {
			matches = append(matches, story)
		}
	}

	switch len(matches) {
	case 0:
		return domain.Story{}, fmt.Errorf("no story matches id %q", idPrefix)
	case 1:
		return matches[0], nil
	default:
		return domain.Story{}, fmt.Errorf("id %q matches %d stories; use a longer prefix", idPrefix, len(matches))
	}
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}
