package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"equirect/internal/config"
)

// Store manages conversion request persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.QueueDatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add enqueues a conversion request.
func (s *Store) Add(ctx context.Context, inputPath, outputDir string, fov int) (*Item, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	requestID := uuid.NewString()

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO conversion_requests (
            request_id, input_path, output_dir, fov, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		requestID,
		inputPath,
		outputDir,
		fov,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a request by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM conversion_requests WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return item, nil
}

// List returns requests filtered by status set, oldest first. With no status
// provided it returns everything.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM conversion_requests`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ClaimNextPending atomically moves the oldest pending request to converting
// and returns it. Returns nil with no error when the queue is drained.
func (s *Store) ClaimNextPending(ctx context.Context) (*Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM conversion_requests WHERE status = ? ORDER BY created_at, id LIMIT 1`,
		StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}

	item.Status = StatusConverting
	item.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversion_requests SET status = ?, updated_at = ? WHERE id = ?`,
		item.Status, item.UpdatedAt.Format(time.RFC3339Nano), item.ID,
	); err != nil {
		return nil, fmt.Errorf("claim request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return item, nil
}

// SetJobDir records the conversion directory of an in-flight request so a
// later run can resume it.
func (s *Store) SetJobDir(ctx context.Context, id int64, jobDir string) error {
	return s.update(ctx, id,
		`UPDATE conversion_requests SET job_dir = ?, updated_at = ? WHERE id = ?`,
		jobDir)
}

// MarkCompleted finalizes a request after its output exists.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	return s.update(ctx, id,
		`UPDATE conversion_requests SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
		StatusCompleted)
}

// MarkFailed records a request failure along with its cause.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.update(ctx, id,
		`UPDATE conversion_requests SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, message)
}

// ResetStuckConverting returns requests left converting by an interrupted run
// back to pending. Their recorded conversion directories are kept so the
// pipeline resumes them instead of starting over.
func (s *Store) ResetStuckConverting(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversion_requests SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusConverting,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck requests: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes a request by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversion_requests WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all requests from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversion_requests`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of requests grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM conversion_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (s *Store) update(ctx context.Context, id int64, query string, args ...any) error {
	all := append(args, time.Now().UTC().Format(time.RFC3339Nano), id)
	if _, err := s.db.ExecContext(ctx, query, all...); err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	return nil
}

const itemColumns = "id, request_id, input_path, output_dir, fov, status, job_dir, error_message, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           int64
		requestID    string
		inputPath    string
		outputDir    string
		fov          int
		statusStr    string
		jobDir       sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&requestID,
		&inputPath,
		&outputDir,
		&fov,
		&statusStr,
		&jobDir,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:           id,
		RequestID:    requestID,
		InputPath:    inputPath,
		OutputDir:    outputDir,
		FOV:          fov,
		Status:       Status(statusStr),
		JobDir:       jobDir.String,
		ErrorMessage: errorMessage.String,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
