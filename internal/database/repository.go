package database

import (
	"context"
)

// ClassStartReader provides read access to per-subject class start overrides
type ClassStartReader interface {
	// ClassStart returns the override for a subject; ok is false when none is set
	ClassStart(ctx context.Context, subjectID int) (start string, ok bool, err error)
	// ClassStarts returns all overrides ordered by subject ID
	ClassStarts(ctx context.Context) ([]ClassStartOverride, error)
}

// ClassStartWriter changes per-subject class start overrides
type ClassStartWriter interface {
	// SetClassStart stores or replaces the override for a subject
	SetClassStart(ctx context.Context, subjectID int, start string) error
	// DeleteClassStart removes the override for a subject (no error if missing)
	DeleteClassStart(ctx context.Context, subjectID int) error
}

// AssignmentLog records camera source changes
type AssignmentLog interface {
	// RecordAssignment appends a slot assignment
	RecordAssignment(ctx context.Context, slot, source string) error
	// Assignments returns the most recent assignments, newest first
	Assignments(ctx context.Context, limit int) ([]Assignment, error)
}

// SettingsStore is the dashboard's own persistent state.
type SettingsStore interface {
	ClassStartReader
	ClassStartWriter
	AssignmentLog
	Close() error
}
