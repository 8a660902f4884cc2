package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/tasks"
	"github.com/urfave/cli/v3"
)

type syncRunOutput struct {
	RunID      string           `json:"id"`
	Status     models.RunStatus `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	TracksSeen int              `json:"tracks_seen"`
	Skipped    int              `json:"skipped"`
	Dropped    int              `json:"dropped"`
	Saved      bool             `json:"saved"`
	Albums     []models.Album   `json:"albums"`
	Error      string           `json:"error,omitempty"`
}

func newSyncRunOutput(result *tasks.SyncResult, err error) syncRunOutput {
	out := syncRunOutput{
		RunID:      result.RunID,
		Status:     result.Status,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		TracksSeen: result.TracksSeen,
		Skipped:    result.Skipped,
		Dropped:    result.Dropped,
		Saved:      result.Saved,
		Albums:     result.Albums,
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// SyncRun performs a single pass and prints its outcome.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine()
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	quiet := asJSON || cmd.Bool("quiet")

	var progressCh chan tasks.ProgressUpdate
	done := make(chan struct{})
	if quiet {
		close(done)
	} else {
		progressCh = make(chan tasks.ProgressUpdate, 50)
		go func() {
			defer close(done)
			for update := range progressCh {
				switch update.Phase {
				case tasks.FetchFeed:
					r.writePlain("📥 %s\n", update.Message)
				case tasks.ResolveAlbums:
					r.writePlain("   %s\n", update.Message)
				case tasks.SaveSnapshot:
					r.writePlain("\n💾 %s\n", update.Message)
				}
			}
		}()
	}

	result, err := engine.Sync(ctx, progressCh)
	if progressCh != nil {
		close(progressCh)
	}
	<-done

	if asJSON && result != nil {
		if jsonErr := r.writeJSON(newSyncRunOutput(result, err), true); jsonErr != nil {
			return jsonErr
		}
	}
	if err != nil {
		return err
	}
	if asJSON {
		return nil
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	r.writePlain("Run: %s (%s)\n", result.RunID, result.Status)
	r.writePlain("Tracks: %d seen, %d skipped, %d dropped\n", result.TracksSeen, result.Skipped, result.Dropped)
	r.writePlain("Albums: %d\n", len(result.Albums))
	for i, album := range result.Albums {
		r.writePlain("  %s\n", albumLine(i, album))
	}
	if !result.Saved {
		r.writePlain("\nNo albums resolved, the previous snapshot was kept\n")
	}
	return nil
}

// SyncSchedule runs passes on an interval until SIGINT or SIGTERM.
func (r *Runner) SyncSchedule(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine()
	if err != nil {
		return err
	}

	interval := r.cfg().Sync.Interval
	if cmd.IsSet("interval") {
		interval = cmd.Duration("interval")
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := tasks.NewScheduler(interval, tasks.SyncTask(engine, r.logger), cmd.Bool("immediate"), r.logger)
	r.writePlain("Syncing every %s, press Ctrl+C to stop\n", interval)

	if err := scheduler.Run(ctx); err != nil {
		return err
	}

	r.writePlain("Stopped after %d runs (%d skipped)\n", scheduler.Runs(), scheduler.Skipped())
	return nil
}
