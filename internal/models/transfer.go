package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/stash/internal/shared"
)

// TransferStatus is the outcome of a copy run.
type TransferStatus string

const (
	TransferRunning   TransferStatus = "running"
	TransferSucceeded TransferStatus = "succeeded"
	TransferFailed    TransferStatus = "failed"
	TransferDryRun    TransferStatus = "dry_run"
)

// Valid reports whether s is a known status.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferRunning, TransferSucceeded, TransferFailed, TransferDryRun:
		return true
	default:
		return false
	}
}

// Finished reports whether the run has ended.
func (s TransferStatus) Finished() bool {
	return s != TransferRunning
}

// Transfer records one copy of saved tracks into a playlist.
//
// A failed transfer may still have written some chunks; ChunkCount is the number planned, not sent.
type Transfer struct {
	id           string
	playlistID   string
	playlistName string
	savedCount   int
	plannedCount int
	chunkCount   int
	status       TransferStatus
	errMsg       string
	startedAt    time.Time
	finishedAt   *time.Time
}

// NewTransfer starts a running transfer into the given playlist.
func NewTransfer(playlistID, playlistName string) *Transfer {
	return &Transfer{
		playlistID:   playlistID,
		playlistName: playlistName,
		status:       TransferRunning,
		startedAt:    time.Now().UTC(),
	}
}

// RestoreTransfer rebuilds a transfer read from storage.
func RestoreTransfer(id, playlistID, playlistName string, saved, planned, chunks int, status TransferStatus, errMsg string, startedAt time.Time, finishedAt *time.Time) *Transfer {
	return &Transfer{
		id:           id,
		playlistID:   playlistID,
		playlistName: playlistName,
		savedCount:   saved,
		plannedCount: planned,
		chunkCount:   chunks,
		status:       status,
		errMsg:       errMsg,
		startedAt:    startedAt,
		finishedAt:   finishedAt,
	}
}

func (t *Transfer) ID() string              { return t.id }
func (t *Transfer) PlaylistID() string      { return t.playlistID }
func (t *Transfer) PlaylistName() string    { return t.playlistName }
func (t *Transfer) SavedCount() int         { return t.savedCount }
func (t *Transfer) PlannedCount() int       { return t.plannedCount }
func (t *Transfer) ChunkCount() int         { return t.chunkCount }
func (t *Transfer) Status() TransferStatus  { return t.status }
func (t *Transfer) ErrorMessage() string    { return t.errMsg }
func (t *Transfer) StartedAt() time.Time    { return t.startedAt }
func (t *Transfer) FinishedAt() *time.Time  { return t.finishedAt }

// CreatedAt is the start time.
func (t *Transfer) CreatedAt() time.Time { return t.startedAt }

// UpdatedAt is the finish time, or the start time while running.
func (t *Transfer) UpdatedAt() time.Time {
	if t.finishedAt != nil {
		return *t.finishedAt
	}
	return t.startedAt
}

func (t *Transfer) SetID(id string) { t.id = id }

// SetCounts records how many tracks were saved, how many were planned for writing and in how many chunks.
func (t *Transfer) SetCounts(saved, planned, chunks int) {
	t.savedCount, t.plannedCount, t.chunkCount = saved, planned, chunks
}

// Finish ends the transfer. A non-nil err marks it failed whatever status says.
func (t *Transfer) Finish(status TransferStatus, err error) {
	now := time.Now().UTC()
	t.finishedAt = &now
	t.status = status
	if err != nil {
		t.status = TransferFailed
		t.errMsg = err.Error()
	}
}

// Duration is how long the run took, or zero while running.
func (t *Transfer) Duration() time.Duration {
	if t.finishedAt == nil {
		return 0
	}
	return t.finishedAt.Sub(t.startedAt)
}

func (t *Transfer) Validate() error {
	if t.playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	if !t.status.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidInput, t.status)
	}
	if t.savedCount < 0 || t.plannedCount < 0 || t.chunkCount < 0 {
		return fmt.Errorf("%w: counts cannot be negative", shared.ErrInvalidInput)
	}
	if t.plannedCount > t.savedCount {
		return fmt.Errorf("%w: planned %d of only %d saved tracks", shared.ErrInvalidInput, t.plannedCount, t.savedCount)
	}
	if t.status.Finished() && t.finishedAt == nil {
		return fmt.Errorf("%w: %s transfer has no finish time", shared.ErrInvalidInput, t.status)
	}
	return nil
}
