package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/stash/internal/models"
	"github.com/desertthunder/stash/internal/shared"
)

const transferColumns = `id, playlist_id, playlist_name, saved_count, planned_count, chunk_count, status, error, started_at, finished_at`

// TransferRepository implements models.Repository[*models.Transfer] for copy run history.
type TransferRepository struct {
	db *sql.DB
}

// NewTransferRepository creates a new TransferRepository with the given database connection
func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create inserts a new transfer with a generated ID
func (r *TransferRepository) Create(transfer *models.Transfer) error {
	if transfer.ID() == "" {
		transfer.SetID(shared.GenerateID())
	}

	if err := transfer.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		transfer.ID(),
		transfer.PlaylistID(),
		transfer.PlaylistName(),
		transfer.SavedCount(),
		transfer.PlannedCount(),
		transfer.ChunkCount(),
		string(transfer.Status()),
		transfer.ErrorMessage(),
		transfer.StartedAt(),
		nullTime(transfer),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	return nil
}

// Get retrieves a transfer by ID
func (r *TransferRepository) Get(id string) (*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = ?`

	transfer, err := scanTransfer(r.db.QueryRow(query, id))
	if err != nil {
		return nil, notFound(err, "transfer", id)
	}
	return transfer, nil
}

// Update writes the counts and outcome of an existing transfer
func (r *TransferRepository) Update(transfer *models.Transfer) error {
	if err := transfer.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE transfers
		SET saved_count = ?, planned_count = ?, chunk_count = ?, status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		transfer.SavedCount(),
		transfer.PlannedCount(),
		transfer.ChunkCount(),
		string(transfer.Status()),
		transfer.ErrorMessage(),
		nullTime(transfer),
		transfer.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	return requireAffected(result, "transfer", transfer.ID())
}

// Finish marks the transfer finished with status (or failed when err is set) and stores it.
func (r *TransferRepository) Finish(transfer *models.Transfer, status models.TransferStatus, err error) error {
	transfer.Finish(status, err)
	return r.Update(transfer)
}

// Delete removes a transfer by ID
func (r *TransferRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM transfers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}
	return requireAffected(result, "transfer", id)
}

// List retrieves transfers, newest first.
//
// Supported criteria: "status" ([models.TransferStatus]), "playlist_id" (string) and "limit" (int).
func (r *TransferRepository) List(criteria map[string]any) ([]*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE 1 = 1`
	args := []any{}

	if status, ok := criteria["status"].(models.TransferStatus); ok && status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY started_at DESC, id ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return transfers, nil
}

func scanTransfer(row scanner) (*models.Transfer, error) {
	var (
		id           string
		playlistID   string
		playlistName string
		saved        int
		planned      int
		chunks       int
		status       string
		errMsg       string
		startedAt    sql.NullTime
		finishedAt   sql.NullTime
	)

	err := row.Scan(&id, &playlistID, &playlistName, &saved, &planned, &chunks, &status, &errMsg, &startedAt, &finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}

	var finished *time.Time
	if finishedAt.Valid {
		finished = &finishedAt.Time
	}
	return models.RestoreTransfer(id, playlistID, playlistName, saved, planned, chunks,
		models.TransferStatus(status), errMsg, startedAt.Time, finished), nil
}

func nullTime(t *models.Transfer) sql.NullTime {
	if f := t.FinishedAt(); f != nil {
		return sql.NullTime{Time: *f, Valid: true}
	}
	return sql.NullTime{}
}
