package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/vanities/techslop/internal/app"
	"github.com/vanities/techslop/internal/config"
	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/logging"
)

const usage = `Usage: techslop <command> [flags]

Commands:
  ingest                    fetch, score, and store stories from all sources
  list                      print stored stories (--status, --source, --limit)
  show <id-prefix>          print one story as JSON
  script <id-prefix>        generate a narration script and record a video job
  voice <job-id>            synthesize audio for a scripted job
  status <id-prefix> <status>  set a story's status
  serve                     run scheduled ingestion with monitoring endpoints
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("wiring failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	command, args := os.Args[1], os.Args[2:]
	if err := run(ctx, application, command, args); err != nil {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, application *app.Application, command string, args []string) error {
	switch command {
	case "ingest":
		return runIngest(ctx, application)
	case "list":
		return runList(ctx, application, args)
	case "show":
		return runShow(ctx, application, args)
	case "script":
		return runScript(ctx, application, args)
	case "voice":
		return runVoice(ctx, application, args)
	case "status":
		return runStatus(ctx, application, args)
	case "serve":
		return application.Serve(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// runIngest performs one complete fan-out. Individual source failures
// are logged inside the pipeline; the command still succeeds with
// whatever the healthy sources returned.
func runIngest(ctx context.Context, application *app.Application) error {
	ranked, err := application.Pipeline().Ingest(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d stories.\n", len(ranked))
	for i, story := range ranked {
		if i == 5 {
			break
		}
		printStory(story)
	}
	return nil
}

func runList(ctx context.Context, application *app.Application, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	statusFilter := fs.String("status", "", "only stories with this status")
	sourceFilter := fs.String("source", "", "only stories from this source")
	limit := fs.Int("limit", 20, "maximum stories to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store := application.Store()
	if store == nil {
		return fmt.Errorf("no database configured; set DATABASE_DSN")
	}

	stories, err := store.All(ctx)
	if err != nil {
		return err
	}

	printed := 0
	for _, story := range stories {
		if *statusFilter != "" && string(story.Status) != *statusFilter {
			continue
		}
		if *sourceFilter != "" && story.Source != *sourceFilter {
			continue
		}
		printStory(story)
		printed++
		if *limit > 0 && printed >= *limit {
			break
		}
	}
	if printed == 0 {
		fmt.Println("No matching stories.")
	}
	return nil
}

func runShow(ctx context.Context, application *app.Application, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: techslop show <id-prefix>")
	}

	story, err := application.Pipeline().FindStory(ctx, args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(story, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runScript(ctx context.Context, application *app.Application, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: techslop script <id-prefix>")
	}

	job, err := application.Pipeline().GenerateScript(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Created job %d for story %s.\n", job.ID, shortID(job.StoryID))
	if job.Script != nil {
		fmt.Printf("Hook: %s\n", job.Script.Hook)
	}
	return nil
}

func runVoice(ctx context.Context, application *app.Application, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: techslop voice <job-id>")
	}
	jobID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}

	job, err := application.Pipeline().SynthesizeVoice(ctx, jobID)
	if err != nil {
		return err
	}

	fmt.Printf("Audio written to %s.\n", job.AudioPath)
	return nil
}

func runStatus(ctx context.Context, application *app.Application, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: techslop status <id-prefix> <status>")
	}

	status, err := parseStatus(args[1])
	if err != nil {
		return err
	}

	store := application.Store()
	if store == nil {
		return fmt.Errorf("no database configured; set DATABASE_DSN")
	}

	story, err := application.Pipeline().FindStory(ctx, args[0])
	if err != nil {
		return err
	}
	if err := store.SetStatus(ctx, story.ID, status); err != nil {
		return err
	}

	fmt.Printf("Story %s is now %s.\n", shortID(story.ID), status)
	return nil
}

func parseStatus(raw string) (domain.Status, error) {
	statuses := []domain.Status{
		domain.StatusNew,
		domain.StatusScripted,
		domain.StatusVoiced,
		domain.StatusRendered,
		domain.StatusPublished,
	}
	for _, s := range statuses {
		if string(s) == raw {
			return s, nil
		}
	}

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return "", fmt.Errorf("unknown status %q (expected one of %s)", raw, strings.Join(names, ", "))
}

func printStory(story domain.Story) {
	fmt.Printf("%s  %.3f  %-10s  %s\n", shortID(story.ID), story.Score, story.Source, story.Title)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
