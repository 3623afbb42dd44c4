package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/stash/internal/auth"
	"github.com/desertthunder/stash/internal/formatter"
	"github.com/desertthunder/stash/internal/models"
	"github.com/desertthunder/stash/internal/repositories"
	"github.com/desertthunder/stash/internal/shared"
	"github.com/desertthunder/stash/internal/tasks"
	"github.com/desertthunder/stash/internal/ui"
	"github.com/urfave/cli/v3"
)

// Copy copies the user's saved tracks into a playlist and records the run.
func (r *Runner) Copy(ctx context.Context, cmd *cli.Command) error {
	opts, err := copyOptions(cmd)
	if err != nil {
		return err
	}

	svc, tokens, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	if !opts.DryRun && !tokens.CanModifyPlaylists() {
		return fmt.Errorf("%w: granted scopes %q include neither %s nor %s; add one to scopes and run 'stash auth login'",
			shared.ErrAuthFailed, tokens.Scope, auth.ScopeModifyPublic, auth.ScopeModifyPrivate)
	}

	var recorder tasks.Recorder
	if db, err := shared.OpenDatabase(r.config.Database); err != nil {
		r.logger.Warn("run history unavailable", "error", err)
	} else {
		defer db.Close()
		recorder = repositories.NewTransferRepository(db)
	}

	engine := tasks.NewCopyEngine(svc, r.prompter, recorder, svc.ChunkSize(), r.logger)

	progressCh := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchTracks, tasks.FetchPlaylists:
				fmt.Fprintf(r.prompts, "📥 %s\n", update.Message)
			case tasks.PlanWrite, tasks.WriteTracks:
				fmt.Fprintf(r.prompts, "📝 %s\n", update.Message)
			default:
				r.logger.Debug(update.Message, "phase", update.Phase)
			}
		}
	}()

	result, err := engine.Run(ctx, progressCh, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if result.DryRun {
		r.writePlainHeader("Dry run: nothing written")
	} else {
		r.writePlainHeader("Copy complete!")
	}
	r.writePlain("Playlist: %s (%s)\n", result.Playlist.Name, result.Playlist.ID)
	r.writePlain("Tracks:   %d of %d saved\n", result.Planned, result.Saved)
	r.writePlain("Requests: %d\n", result.Chunks)
	if result.TransferID != "" {
		r.writePlain("Run:      %s\n", result.TransferID)
	}

	if result.DryRun {
		r.writePlain("\n")
		for i, t := range result.Tracks {
			r.writePlain("%d. %s - %s [%s]\n", i+1, t.Artist, t.Title, formatter.FormatDuration(t.Duration))
		}
	}
	return nil
}

// History lists recorded copy runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if raw := cmd.String("status"); raw != "" {
		status := models.TransferStatus(raw)
		if !status.Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, raw)
		}
		criteria["status"] = status
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	transfers, err := repositories.NewTransferRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(historyRecords(transfers), true)
	}

	if len(transfers) == 0 {
		return r.writePlain("No copy runs recorded.\n")
	}

	for _, t := range transfers {
		r.writePlain("%s  %s  %-10s %s (%d/%d tracks, %d requests)\n",
			t.StartedAt().Local().Format("2006-01-02 15:04"), shortID(t.ID()), statusLabel(t.Status()),
			t.PlaylistName(), t.PlannedCount(), t.SavedCount(), t.ChunkCount())
		if t.ErrorMessage() != "" {
			r.writePlain("    %s\n", ui.Styles.Err(t.ErrorMessage()))
		}
	}
	return nil
}

// copyOptions reads and checks the copy flags.
func copyOptions(cmd *cli.Command) (tasks.CopyOptions, error) {
	opts := tasks.CopyOptions{
		PlaylistID: cmd.String("playlist"),
		SkipLocal:  cmd.Bool("skip-local"),
		Dedupe:     cmd.Bool("dedupe"),
		Max:        int(cmd.Int("max")),
		DryRun:     cmd.Bool("dry-run"),
	}
	if opts.Max < 0 {
		return opts, fmt.Errorf("%w: --max cannot be negative", shared.ErrInvalidArgument)
	}

	if raw := cmd.String("since"); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			return opts, err
		}
		opts.Since = since
	}
	return opts, nil
}

// parseSince accepts a calendar date (UTC midnight) or an RFC 3339 timestamp.
func parseSince(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: --since %q is not YYYY-MM-DD or RFC 3339", shared.ErrInvalidArgument, raw)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusLabel(s models.TransferStatus) string {
	switch s {
	case models.TransferSucceeded:
		return ui.Styles.OK(string(s))
	case models.TransferFailed:
		return ui.Styles.Err(string(s))
	default:
		return ui.Styles.Warn(string(s))
	}
}

type historyRecord struct {
	ID           string     `json:"id"`
	PlaylistID   string     `json:"playlist_id"`
	PlaylistName string     `json:"playlist_name"`
	Saved        int        `json:"saved"`
	Planned      int        `json:"planned"`
	Chunks       int        `json:"chunks"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func historyRecords(transfers []*models.Transfer) []historyRecord {
	records := make([]historyRecord, len(transfers))
	for i, t := range transfers {
		records[i] = historyRecord{
			ID:           t.ID(),
			PlaylistID:   t.PlaylistID(),
			PlaylistName: t.PlaylistName(),
			Saved:        t.SavedCount(),
			Planned:      t.PlannedCount(),
			Chunks:       t.ChunkCount(),
			Status:       string(t.Status()),
			Error:        t.ErrorMessage(),
			StartedAt:    t.StartedAt(),
			FinishedAt:   t.FinishedAt(),
		}
	}
	return records
}
