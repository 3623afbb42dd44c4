package tasks

import (
	"fmt"

	"github.com/desertthunder/stash/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchTracks Phase = iota
	FetchPlaylists
	SelectPlaylist
	PlanWrite
	WriteTracks
	Completed
)

func (p Phase) String() string {
	switch p {
	case FetchTracks:
		return "fetch_tracks"
	case FetchPlaylists:
		return "fetch_playlists"
	case SelectPlaylist:
		return "select_playlist"
	case PlanWrite:
		return "plan_write"
	case WriteTracks:
		return "write_tracks"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

func fetchingTracksUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchTracks, Step: 0, Total: 1, Message: "Fetching saved tracks..."}
}

func fetchedTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d saved tracks", count),
	}
}

func fetchingPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchPlaylists, Step: 0, Total: 1, Message: "Fetching playlists..."}
}

func selectedPlaylistUpdate(pl *services.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SelectPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Target playlist: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func planUpdate(planned, saved, chunks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlanWrite,
		Step:    planned,
		Total:   saved,
		Message: fmt.Sprintf("Writing %d of %d saved tracks in %d chunk(s)", planned, saved, chunks),
	}
}

func writingUpdate(chunks int) ProgressUpdate {
	return ProgressUpdate{Phase: WriteTracks, Step: 0, Total: chunks, Message: "Adding tracks to playlist..."}
}

func completedUpdate(result *CopyResult) ProgressUpdate {
	msg := fmt.Sprintf("✓ Added %d tracks to %s", result.Planned, result.Playlist.Name)
	if result.DryRun {
		msg = fmt.Sprintf("Dry run: %d tracks would be added to %s", result.Planned, result.Playlist.Name)
	}
	return ProgressUpdate{
		Phase:   Completed,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    result,
	}
}
