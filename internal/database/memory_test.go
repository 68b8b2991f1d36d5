package database

import (
	"context"
	"testing"
)

func TestMemoryStore_ClassStart(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, ok, _ := m.ClassStart(ctx, 1); ok {
		t.Fatal("expected no override on an empty store")
	}

	m.SetClassStart(ctx, 2, "13:00")
	m.SetClassStart(ctx, 1, "08:00")
	m.SetClassStart(ctx, 1, "08:15")

	start, ok, err := m.ClassStart(ctx, 1)
	if err != nil || !ok || start != "08:15" {
		t.Errorf("ClassStart(1) = %q, %v, %v; want 08:15", start, ok, err)
	}

	all, _ := m.ClassStarts(ctx)
	if len(all) != 2 || all[0].SubjectID != 1 || all[1].SubjectID != 2 {
		t.Errorf("unexpected overrides: %+v", all)
	}

	m.DeleteClassStart(ctx, 1)
	if _, ok, _ := m.ClassStart(ctx, 1); ok {
		t.Error("expected override to be deleted")
	}
}

func TestMemoryStore_Assignments(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	m.RecordAssignment(ctx, "entrance", "cam0")
	m.RecordAssignment(ctx, "exit", "cam1")
	m.RecordAssignment(ctx, "entrance", "")

	got, _ := m.Assignments(ctx, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(got))
	}
	if got[0].Slot != "entrance" || got[0].Source != "" || got[1].Source != "cam1" {
		t.Errorf("expected newest first, got %+v", got)
	}

	all, _ := m.Assignments(ctx, 0)
	if len(all) != 3 {
		t.Errorf("expected all 3 assignments, got %d", len(all))
	}
}

func TestMemoryStore_AssignmentHistoryCap(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	for i := 0; i < MaxAssignmentHistory+10; i++ {
		m.RecordAssignment(ctx, "entrance", "cam")
	}
	all, _ := m.Assignments(ctx, 0)
	if len(all) != MaxAssignmentHistory {
		t.Errorf("expected history capped at %d, got %d", MaxAssignmentHistory, len(all))
	}
	if all[0].ID != int64(MaxAssignmentHistory+10) {
		t.Errorf("expected newest ID first, got %d", all[0].ID)
	}
}

func TestOpenSettings_EmptyPathIsMemory(t *testing.T) {
	s, err := OpenSettings("")
	if err != nil {
		t.Fatalf("OpenSettings failed: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", s)
	}
}
