package tasks

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/shared"
	tu "github.com/desertthunder/fmx/internal/testing"
)

func TestScheduler(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("Runs On Every Tick", func(t *testing.T) {
		var count atomic.Int64
		task := func(ctx context.Context) { count.Add(1) }
		s := NewScheduler(5*time.Millisecond, task, false, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
		defer cancel()

		if err := s.Run(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count.Load() < 2 {
			t.Errorf("expected several runs, got %d", count.Load())
		}
		if s.Runs() != count.Load() {
			t.Errorf("expected Runs() %d to match task count %d", s.Runs(), count.Load())
		}
	})

	t.Run("Immediate", func(t *testing.T) {
		started := make(chan struct{}, 1)
		task := func(ctx context.Context) {
			select {
			case started <- struct{}{}:
			default:
			}
		}
		s := NewScheduler(time.Hour, task, true, logger)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() { done <- s.Run(ctx) }()

		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("expected task to run before the first tick")
		}

		cancel()
		if err := <-done; err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Skips Overlapping Runs", func(t *testing.T) {
		release := make(chan struct{})
		var count atomic.Int64
		task := func(ctx context.Context) {
			count.Add(1)
			<-release
		}
		s := NewScheduler(time.Hour, task, false, logger)

		if !s.Trigger(context.Background()) {
			t.Fatal("first trigger should start a run")
		}
		if s.Trigger(context.Background()) {
			t.Error("second trigger should be skipped while the first is running")
		}

		close(release)
		s.Wait()

		if count.Load() != 1 || s.Skipped() != 1 {
			t.Errorf("expected 1 run and 1 skip, got %d and %d", count.Load(), s.Skipped())
		}
		if !s.Trigger(context.Background()) {
			t.Error("trigger should start a run once the previous one finished")
		}
		s.Wait()
	})

	t.Run("Teardown Waits For In-Flight Run", func(t *testing.T) {
		var finished atomic.Bool
		task := func(ctx context.Context) {
			<-ctx.Done()
			time.Sleep(5 * time.Millisecond)
			finished.Store(true)
		}
		s := NewScheduler(time.Hour, task, true, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		s.Run(ctx)
		if !finished.Load() {
			t.Error("Run should return only after the in-flight task returns")
		}
	})

	t.Run("Invalid Interval", func(t *testing.T) {
		s := NewScheduler(0, func(ctx context.Context) {}, false, logger)
		if err := s.Run(context.Background()); err == nil {
			t.Error("expected error for zero interval")
		}
	})
}

func TestSyncTask(t *testing.T) {
	fake := &fakeScrobbler{}
	fake.tracks = []models.Track{mbidTrack(fake, "Revolver")}
	store := tu.NewMemoryStore()
	engine := newTestEngine(t, fake, store, nil)

	SyncTask(engine, shared.NewLogger(io.Discard))(context.Background())

	if store.Saves() != 1 {
		t.Errorf("expected one saved snapshot, got %d", store.Saves())
	}

	fake.feedErr = shared.ErrFeedUnavailable
	SyncTask(engine, shared.NewLogger(io.Discard))(context.Background())

	if store.Saves() != 1 {
		t.Error("failed pass must not save")
	}
}
