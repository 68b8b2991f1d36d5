// Package sqlite stores dashboard settings in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/attendance-dashboard/internal/database"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	database.RegisterSettingsBackend(func(path string) (database.SettingsStore, error) {
		return Open(path)
	})
}

// Store is the SQLite-backed settings store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the settings database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate settings database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS class_starts (
		subject_id INTEGER PRIMARY KEY,
		class_start TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS camera_assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slot TEXT NOT NULL,
		source TEXT NOT NULL,
		assigned_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_camera_assignments_assigned_at ON camera_assignments(assigned_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ClassStart returns the stored class start for a subject.
func (s *Store) ClassStart(ctx context.Context, subjectID int) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var start string
	err := s.db.QueryRowContext(ctx, `SELECT class_start FROM class_starts WHERE subject_id = ?`, subjectID).Scan(&start)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query class start: %w", err)
	}
	return start, true, nil
}

// ClassStarts returns every stored override ordered by subject.
func (s *Store) ClassStarts(ctx context.Context) ([]database.ClassStartOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT subject_id, class_start, updated_at FROM class_starts ORDER BY subject_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query class starts: %w", err)
	}
	defer rows.Close()

	var out []database.ClassStartOverride
	for rows.Next() {
		var o database.ClassStartOverride
		if err := rows.Scan(&o.SubjectID, &o.ClassStart, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan class start: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SetClassStart stores or replaces the override for a subject.
func (s *Store) SetClassStart(ctx context.Context, subjectID int, start string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO class_starts (subject_id, class_start, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			class_start = excluded.class_start,
			updated_at = excluded.updated_at
	`, subjectID, start, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save class start: %w", err)
	}
	return nil
}

// DeleteClassStart removes the override for a subject.
func (s *Store) DeleteClassStart(ctx context.Context, subjectID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM class_starts WHERE subject_id = ?`, subjectID); err != nil {
		return fmt.Errorf("failed to delete class start: %w", err)
	}
	return nil
}

// RecordAssignment appends a camera assignment and trims old history.
func (s *Store) RecordAssignment(ctx context.Context, slot, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO camera_assignments (slot, source, assigned_at) VALUES (?, ?, ?)
	`, slot, source, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM camera_assignments
		WHERE id NOT IN (SELECT id FROM camera_assignments ORDER BY id DESC LIMIT ?)
	`, database.MaxAssignmentHistory); err != nil {
		return fmt.Errorf("failed to trim assignments: %w", err)
	}

	return tx.Commit()
}

// Assignments returns the newest assignments first. A limit of 0 returns all.
func (s *Store) Assignments(ctx context.Context, limit int) ([]database.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, slot, source, assigned_at FROM camera_assignments ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []database.Assignment
	for rows.Next() {
		var a database.Assignment
		if err := rows.Scan(&a.ID, &a.Slot, &a.Source, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
