package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/fmx/internal/formatter"
	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/repositories"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func (r *Runner) snapshots() (*repositories.SnapshotRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewSnapshotRepository(db), nil
}

// Albums renders the stored snapshot to stdout, a file, or a Markdown export directory.
func (r *Runner) Albums(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, err := r.snapshots()
	if err != nil {
		return err
	}

	snapshot, err := repo.Load()
	if err != nil {
		return err
	}

	if dir := cmd.String("export-dir"); dir != "" {
		result, err := formatter.WriteMarkdownExport(snapshot, dir, cmd.Bool("covers"), int(cmd.Int("cover-size")))
		if err != nil {
			return err
		}
		for _, title := range result.Failed {
			r.logger.Warn("failed to save cover", "album", title)
		}
		r.writePlain("✓ Exported %d albums to %s (%d covers)\n", snapshot.Len(), result.Directory, result.Covers)
		return nil
	}

	heading := cmd.String("heading")
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(snapshot, format, path, heading); err != nil {
			return err
		}
		r.logger.Info("albums exported", "path", path, "format", format, "albums", snapshot.Len())
		return nil
	}

	return formatter.Render(r.output, snapshot, format, heading)
}

// Status prints the most recent sync runs, newest first.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		limit = 5
	}

	runs, err := repositories.NewSyncRunRepository(db).List(limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if runs == nil {
			runs = []*models.SyncRun{}
		}
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		r.writePlain("No sync runs recorded. Run 'fmx sync run' first.\n")
		return nil
	}

	r.writePlainHeader("Sync Runs")
	for _, run := range runs {
		r.writePlain("%s (%s)  %-9s  %s  tracks=%d albums=%d dropped=%d\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			humanize.Time(run.StartedAt),
			run.Status,
			run.Duration().Round(time.Millisecond),
			run.TracksSeen, run.Albums, run.Dropped,
		)
		if run.Error != "" {
			r.writePlain("    error: %s\n", run.Error)
		}
	}
	return nil
}

func albumLine(i int, a models.Album) string {
	if a.URI == "" {
		return fmt.Sprintf("%d. %s", i+1, a.Title)
	}
	return fmt.Sprintf("%d. %s <%s>", i+1, a.Title, a.URI)
}
