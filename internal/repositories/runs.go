package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotetl/internal/models"
	"github.com/desertthunder/spotetl/internal/shared"
)

const runColumns = `
	id, sequence, kind, status, objects_read, objects_written, album_rows, artist_rows, song_rows,
	error_message, started_at, completed_at, created_at, updated_at, deleted_at`

// RunRepository implements models.Repository[*models.Run] for the pipeline run ledger.
//
// Also records the object keys each run read, wrote and archived.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	counts := run.Counts()
	_, err = r.db.Exec(query,
		id,
		sequence,
		run.Kind(),
		run.Status(),
		counts.ObjectsRead,
		counts.ObjectsWritten,
		counts.AlbumRows,
		counts.ArtistRows,
		counts.SongRows,
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? AND deleted_at IS NULL`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return run, err
}

// Update persists a run's status, counts and completion time
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET status = ?, objects_read = ?, objects_written = ?, album_rows = ?, artist_rows = ?, song_rows = ?,
			error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	counts := run.Counts()
	result, err := r.db.Exec(query,
		run.Status(),
		counts.ObjectsRead,
		counts.ObjectsWritten,
		counts.AlbumRows,
		counts.ArtistRows,
		counts.SongRows,
		nullString(run.ErrorMessage()),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return affectedOne(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return affectedOne(result, id)
}

// List retrieves runs matching the given criteria, newest first, excluding soft-deleted runs.
//
// Supported criteria: "kind" (string), "status" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE deleted_at IS NULL`

	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// RecordObject stores that a run performed action on key. Recording the same triple twice is a no-op.
func (r *RunRepository) RecordObject(runID string, action models.ObjectAction, key string) error {
	query := `
		INSERT OR IGNORE INTO run_objects (run_id, action, object_key, created_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, runID, action, key, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record run object: %w", err)
	}
	return nil
}

// Objects lists the object keys recorded for a run, in recording order.
func (r *RunRepository) Objects(runID string) ([]models.RunObject, error) {
	query := `
		SELECT run_id, action, object_key, created_at
		FROM run_objects
		WHERE run_id = ?
		ORDER BY rowid ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run objects: %w", err)
	}
	defer rows.Close()

	var objects []models.RunObject
	for rows.Next() {
		var (
			o      models.RunObject
			action string
		)
		if err := rows.Scan(&o.RunID, &action, &o.Key, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run object: %w", err)
		}
		o.Action = models.ObjectAction(action)
		objects = append(objects, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return objects, nil
}

// scanner is satisfied by [sql.Row] and [sql.Rows]
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a [models.Run]
func scanRun(row scanner) (*models.Run, error) {
	var (
		id           string
		sequence     int
		kind         string
		status       string
		counts       models.RunCounts
		errorMessage sql.NullString
		startedAt    time.Time
		completedAt  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &kind, &status,
		&counts.ObjectsRead, &counts.ObjectsWritten, &counts.AlbumRows, &counts.ArtistRows, &counts.SongRows,
		&errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return models.HydrateRun(
		id, sequence, models.RunKind(kind), models.RunStatus(status), counts, errorMessage.String,
		startedAt, nullTime(completedAt), createdAt, updatedAt, nullTime(deletedAt),
	), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func affectedOne(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted", shared.ErrRunNotFound, id)
	}
	return nil
}
