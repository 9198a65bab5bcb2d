package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS stories (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT UNIQUE NOT NULL,
	source TEXT NOT NULL,
	score DOUBLE PRECISION,
	published_at TIMESTAMPTZ,
	context JSONB,
	status TEXT NOT NULL DEFAULT 'new',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS video_jobs (
	id SERIAL PRIMARY KEY,
	story_id TEXT REFERENCES stories(id),
	script JSONB,
	audio_path TEXT,
	timestamps_path TEXT,
	video_path TEXT,
	youtube_id TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_stories_status_score ON stories(status, score DESC);
CREATE INDEX IF NOT EXISTS idx_video_jobs_story ON video_jobs(story_id);
`

// PostgresStore persists stories and video jobs into Postgres.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.StoryStore = (*PostgresStore)(nil)

// Open connects to Postgres, verifies the connection, and ensures the schema.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgresStore(db)
}

// NewPostgresStore wires an existing sql.DB and ensures the schema.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Upsert inserts a story or refreshes the mutable fields of an existing
// one. Status and created_at are set only on first insert, so
// re-ingesting a story never resets its pipeline progress.
func (s *PostgresStore) Upsert(ctx context.Context, story domain.Story) error {
	contextJSON, err := json.Marshal(story.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	status := story.Status
	if status == "" {
		status = domain.StatusNew
	}
	createdAt := story.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query, args, err := s.builder.
		Insert("stories").
		Columns("id", "title", "url", "source", "score", "published_at", "context", "status", "created_at").
		Values(story.ID, story.Title, story.URL, story.Source, story.Score, story.PublishedAt, contextJSON, status, createdAt).
		Suffix(`ON CONFLICT (id) DO UPDATE
			SET score = EXCLUDED.score,
			    context = EXCLUDED.context`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert story: %w", err)
	}
	return nil
}

// TopNew returns up to limit unprocessed stories, best score first.
func (s *PostgresStore) TopNew(ctx context.Context, limit int) ([]domain.Story, error) {
	if limit <= 0 {
		limit = 5
	}

	query, args, err := s.storySelect().
		Where(sq.Eq{"status": domain.StatusNew}).
		OrderBy("score DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return s.queryStories(ctx, query, args...)
}

// All returns every stored story, most recently created first.
func (s *PostgresStore) All(ctx context.Context) ([]domain.Story, error) {
	query, args, err := s.storySelect().
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return s.queryStories(ctx, query, args...)
}

// SetStatus overwrites a story's status unconditionally.
func (s *PostgresStore) SetStatus(ctx context.Context, id string, status domain.Status) error {
	query, args, err := s.builder.
		Update("stories").
		Set("status", status).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("story %s not found", id)
	}
	return nil
}

// CreateJob inserts a new video job and returns its generated id.
func (s *PostgresStore) CreateJob(ctx context.Context, job domain.VideoJob) (int64, error) {
	scriptJSON, err := marshalScript(job.Script)
	if err != nil {
		return 0, err
	}

	status := job.Status
	if status == "" {
		status = "pending"
	}

	query, args, err := s.builder.
		Insert("video_jobs").
		Columns("story_id", "script", "audio_path", "timestamps_path", "video_path", "youtube_id", "status").
		Values(job.StoryID, scriptJSON, nullable(job.AudioPath), nullable(job.TimestampsPath), nullable(job.VideoPath), nullable(job.YouTubeID), status).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	return id, nil
}

// UpdateJob rewrites a job's artifact paths, script, and status.
func (s *PostgresStore) UpdateJob(ctx context.Context, job domain.VideoJob) error {
	scriptJSON, err := marshalScript(job.Script)
	if err != nil {
		return err
	}

	update := s.builder.
		Update("video_jobs").
		Set("script", scriptJSON).
		Set("audio_path", nullable(job.AudioPath)).
		Set("timestamps_path", nullable(job.TimestampsPath)).
		Set("video_path", nullable(job.VideoPath)).
		Set("youtube_id", nullable(job.YouTubeID)).
		Set("status", job.Status).
		Where(sq.Eq{"id": job.ID})
	if job.PublishedAt != nil {
		update = update.Set("published_at", *job.PublishedAt)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// GetJob loads a video job by id.
func (s *PostgresStore) GetJob(ctx context.Context, id int64) (domain.VideoJob, error) {
	query, args, err := s.builder.
		Select("id", "story_id", "script", "audio_path", "timestamps_path", "video_path", "youtube_id", "status", "created_at", "published_at").
		From("video_jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.VideoJob{}, fmt.Errorf("build query: %w", err)
	}

	var (
		job         domain.VideoJob
		scriptJSON  []byte
		audio       sql.NullString
		timestamps  sql.NullString
		video       sql.NullString
		youtubeID   sql.NullString
		publishedAt sql.NullTime
	)

	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&job.ID, &job.StoryID, &scriptJSON, &audio, &timestamps, &video, &youtubeID, &job.Status, &job.CreatedAt, &publishedAt); err != nil {
		return domain.VideoJob{}, fmt.Errorf("get job %d: %w", id, err)
	}

	if len(scriptJSON) > 0 {
		var script domain.Script
		if err := json.Unmarshal(scriptJSON, &script); err != nil {
			return domain.VideoJob{}, fmt.Errorf("unmarshal script: %w", err)
		}
		job.Script = &script
	}
	job.AudioPath = audio.String
	job.TimestampsPath = timestamps.String
	job.VideoPath = video.String
	job.YouTubeID = youtubeID.String
	if publishedAt.Valid {
		t := publishedAt.Time
		job.PublishedAt = &t
	}
	return job, nil
}

func (s *PostgresStore) storySelect() sq.SelectBuilder {
	return s.builder.
		Select("id", "title", "url", "source", "score", "published_at", "context", "status", "created_at").
		From("stories")
}

func (s *PostgresStore) queryStories(ctx context.Context, query string, args ...any) ([]domain.Story, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()

	var stories []domain.Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return stories, nil
}

func scanStory(rows *sql.Rows) (domain.Story, error) {
	var (
		story       domain.Story
		score       sql.NullFloat64
		publishedAt sql.NullTime
		contextJSON []byte
	)

	if err := rows.Scan(&story.ID, &story.Title, &story.URL, &story.Source, &score, &publishedAt, &contextJSON, &story.Status, &story.CreatedAt); err != nil {
		return domain.Story{}, fmt.Errorf("scan story: %w", err)
	}

	story.Score = score.Float64
	if publishedAt.Valid {
		story.PublishedAt = publishedAt.Time
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &story.Context); err != nil {
			return domain.Story{}, fmt.Errorf("unmarshal context: %w", err)
		}
	}
	return story, nil
}

func marshalScript(script *domain.Script) ([]byte, error) {
	if script == nil {
		return nil, nil
	}
	data, err := json.Marshal(script)
	if err != nil {
		return nil, fmt.Errorf("marshal script: %w", err)
	}
	return data, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
