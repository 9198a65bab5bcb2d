package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartInvalidExpression(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a cron spec")
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartRunsJobImmediately(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan struct{})

	s := NewCronScheduler("0 */6 * * *")
	err := s.Start(ctx, func(time.Time) {
		if runs.Add(1) == 1 {
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("immediate run never fired")
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}

func TestRestartAfterStop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewCronScheduler("0 */6 * * *")

	for round := 0; round < 2; round++ {
		done := make(chan struct{})
		var once atomic.Bool
		err := s.Start(ctx, func(time.Time) {
			if once.CompareAndSwap(false, true) {
				close(done)
			}
		})
		if err != nil {
			t.Fatalf("round %d Start error: %v", round, err)
		}

		// Start while a loop is already running must be a no-op.
		if err := s.Start(ctx, func(time.Time) { t.Error("second loop spawned") }); err != nil {
			t.Fatalf("round %d redundant Start error: %v", round, err)
		}

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d immediate run never fired", round)
		}

		if err := s.Stop(context.Background()); err != nil {
			t.Fatalf("round %d Stop error: %v", round, err)
		}
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("0 */6 * * *")
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}
