package database

import (
	"time"
)

// ClassStartOverride is a per-subject class start time set by an operator.
type ClassStartOverride struct {
	SubjectID  int       `json:"subject_id"`
	ClassStart string    `json:"class_start"` // HH:MM
	UpdatedAt  time.Time `json:"updated_at"`
}

// Assignment records a camera source applied to a slot.
type Assignment struct {
	ID         int64     `json:"id"`
	Slot       string    `json:"slot"`
	Source     string    `json:"source"` // empty when the slot was cleared
	AssignedAt time.Time `json:"assigned_at"`
}
