// package tasks implements the saved-tracks to playlist copy.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stash/internal/models"
	"github.com/desertthunder/stash/internal/services"
	"github.com/desertthunder/stash/internal/shared"
)

// CopyOptions narrows and targets a copy.
type CopyOptions struct {
	PlaylistID string    // Target playlist; the [Selector] is asked when empty
	Since      time.Time // Only tracks saved at or after Since
	SkipLocal  bool      // Leave out local files
	Dedupe     bool      // Keep the first of tracks sharing an ISRC or URI
	Max        int       // At most Max tracks, zero for all
	DryRun     bool      // Plan without writing
}

// CopyResult describes a finished copy.
type CopyResult struct {
	Playlist   services.Playlist
	Saved      int // Saved tracks fetched
	Planned    int // Tracks written, or that would be written on a dry run
	Chunks     int
	DryRun     bool
	TransferID string
	Tracks     []services.Track
}

// Selector picks the target playlist when none was given.
type Selector interface {
	SelectPlaylist(ctx context.Context, playlists []services.Playlist) (*services.Playlist, error)
}

// Recorder stores copy runs.
type Recorder interface {
	Create(transfer *models.Transfer) error
	Finish(transfer *models.Transfer, status models.TransferStatus, err error) error
}

// CopyEngine fetches saved tracks and playlists, picks a playlist and writes the tracks to it.
type CopyEngine struct {
	library   services.Library
	selector  Selector
	recorder  Recorder
	chunkSize int
	logger    *log.Logger
}

// NewCopyEngine creates a [CopyEngine]. selector and recorder may be nil.
func NewCopyEngine(library services.Library, selector Selector, recorder Recorder, chunkSize int, logger *log.Logger) *CopyEngine {
	if chunkSize <= 0 || chunkSize > services.MaxChunkSize {
		chunkSize = services.MaxChunkSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &CopyEngine{library: library, selector: selector, recorder: recorder, chunkSize: chunkSize, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *CopyEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run copies the user's saved tracks into a playlist.
//
// The first failure ends the run. A write that fails part way leaves earlier chunks in the playlist.
func (e *CopyEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts CopyOptions) (*CopyResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrInvalidConfig)
	}

	e.sendProgress(progress, fetchingTracksUpdate())
	tracks, err := e.library.SavedTracks(ctx)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, fetchedTracksUpdate(len(tracks)))

	e.sendProgress(progress, fetchingPlaylistsUpdate())
	playlists, err := e.library.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	target, err := e.selectPlaylist(ctx, playlists, opts.PlaylistID)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, selectedPlaylistUpdate(target))

	subset := Derive(tracks, opts)
	result := &CopyResult{
		Playlist: *target,
		Saved:    len(tracks),
		Planned:  len(subset),
		Chunks:   len(services.Chunk(services.URIs(subset), e.chunkSize)),
		DryRun:   opts.DryRun,
		Tracks:   subset,
	}
	e.sendProgress(progress, planUpdate(result.Planned, result.Saved, result.Chunks))

	transfer := e.startTransfer(result)

	if opts.DryRun {
		e.finishTransfer(transfer, models.TransferDryRun, nil)
		e.sendProgress(progress, completedUpdate(result))
		return result, nil
	}

	e.sendProgress(progress, writingUpdate(result.Chunks))
	err = e.library.AddTracks(ctx, target.ID, services.URIs(subset))
	e.finishTransfer(transfer, models.TransferSucceeded, err)
	if err != nil {
		return nil, err
	}

	e.logger.Info("copy finished", "playlist", target.ID, "tracks", result.Planned, "chunks", result.Chunks)
	e.sendProgress(progress, completedUpdate(result))
	return result, nil
}

func (e *CopyEngine) selectPlaylist(ctx context.Context, playlists []services.Playlist, id string) (*services.Playlist, error) {
	if id != "" {
		return services.FindPlaylist(playlists, id)
	}
	if e.selector == nil {
		return nil, fmt.Errorf("%w: no playlist given and no way to ask for one", shared.ErrMissingArgument)
	}
	return e.selector.SelectPlaylist(ctx, playlists)
}

func (e *CopyEngine) startTransfer(result *CopyResult) *models.Transfer {
	if e.recorder == nil {
		return nil
	}
	transfer := models.NewTransfer(result.Playlist.ID, result.Playlist.Name)
	transfer.SetCounts(result.Saved, result.Planned, result.Chunks)
	if err := e.recorder.Create(transfer); err != nil {
		e.logger.Warn("could not record transfer", "error", err)
		return nil
	}
	result.TransferID = transfer.ID()
	return transfer
}

func (e *CopyEngine) finishTransfer(transfer *models.Transfer, status models.TransferStatus, runErr error) {
	if transfer == nil {
		return
	}
	if err := e.recorder.Finish(transfer, status, runErr); err != nil {
		e.logger.Warn("could not record transfer outcome", "id", transfer.ID(), "error", err)
	}
}

// Derive picks the tracks to write, in library order: the Since and SkipLocal filters first,
// then Dedupe, then the Max cap.
func Derive(tracks []services.Track, opts CopyOptions) []services.Track {
	seen := make(map[string]bool)
	out := make([]services.Track, 0, len(tracks))

	for _, t := range tracks {
		if opts.Max > 0 && len(out) >= opts.Max {
			break
		}
		if !opts.Since.IsZero() && (t.AddedAt.IsZero() || t.AddedAt.Before(opts.Since)) {
			continue
		}
		if opts.SkipLocal && t.IsLocal {
			continue
		}
		if opts.Dedupe {
			key := dedupeKey(t)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, t)
	}
	return out
}

func dedupeKey(t services.Track) string {
	if t.ISRC != "" {
		return "isrc:" + t.ISRC
	}
	return "uri:" + t.URI
}
