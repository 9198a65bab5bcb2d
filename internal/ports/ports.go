package ports

import (
	"context"
	"time"

	"github.com/vanities/techslop/internal/domain"
)

// StoryStore persists canonical stories and their video jobs.
type StoryStore interface {
	// Upsert inserts a story or, when the id already exists, updates its
	// score and context while keeping the stored status and created_at.
	Upsert(ctx context.Context, story domain.Story) error
	// TopNew returns up to limit stories with status "new", ordered by
	// stored score descending.
	TopNew(ctx context.Context, limit int) ([]domain.Story, error)
	// All returns every stored story, most recently created first.
	All(ctx context.Context) ([]domain.Story, error)
	// SetStatus overwrites a story's status. Transition legality is the
	// caller's concern.
	SetStatus(ctx context.Context, id string, status domain.Status) error

	CreateJob(ctx context.Context, job domain.VideoJob) (int64, error)
	UpdateJob(ctx context.Context, job domain.VideoJob) error
	GetJob(ctx context.Context, id int64) (domain.VideoJob, error)
}

// ScriptGenerator turns a story plus its context bag into a narration
// script via an external completion service.
type ScriptGenerator interface {
	Generate(ctx context.Context, story domain.Story) (domain.Script, error)
}

// VoiceSynthesizer renders a script to an audio file and returns its path.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, script domain.Script, outDir string) (string, error)
}

// VideoAssembler composes audio, captions, and assets into a final video.
type VideoAssembler interface {
	Assemble(ctx context.Context, job domain.VideoJob, outDir string) (string, error)
}

// Publisher uploads a rendered video to one platform.
type Publisher interface {
	Publish(ctx context.Context, job domain.VideoJob) (string, error)
}

// Scheduler controls when recurring ingestion runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
