package camera

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

// ConfigBackend is the part of the backend the selector needs.
type ConfigBackend interface {
	Discover(ctx context.Context) ([]backend.Device, error)
	GetCameraConfig(ctx context.Context) (backend.Mapping, error)
	SetCameraConfig(ctx context.Context, mapping backend.Mapping) error
}

// AssignmentRecorder is notified after a source assignment succeeded.
type AssignmentRecorder interface {
	RecordAssignment(ctx context.Context, slot, source string) error
}

// ChangeFunc is called with a slot and its new source key.
type ChangeFunc func(slot, key string)

// UnknownSlotError is returned for a slot that is not configured.
type UnknownSlotError struct {
	Slot string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("unknown camera slot %q", e.Slot)
}

// Selector owns the slot to source mapping. The backend is the source of
// truth: local state only changes after the backend accepted the new mapping.
type Selector struct {
	backend  ConfigBackend
	slots    []string
	recorder AssignmentRecorder

	writeMu   sync.Mutex // serializes assignments
	mu        sync.RWMutex
	mapping   backend.Mapping
	listeners []ChangeFunc
}

// NewSelector creates a selector for slots with every slot unassigned.
func NewSelector(b ConfigBackend, slots []string) *Selector {
	if len(slots) == 0 {
		slots = []string{constants.SlotEntrance, constants.SlotExit}
	}
	mapping := make(backend.Mapping, len(slots))
	for _, s := range slots {
		mapping[s] = ""
	}
	return &Selector{backend: b, slots: slices.Clone(slots), mapping: mapping}
}

// SetRecorder attaches an assignment history recorder.
func (s *Selector) SetRecorder(r AssignmentRecorder) {
	s.recorder = r
}

// Slots returns the configured slot names in order.
func (s *Selector) Slots() []string {
	return slices.Clone(s.slots)
}

// HasSlot reports whether slot is configured.
func (s *Selector) HasSlot(slot string) bool {
	return slices.Contains(s.slots, slot)
}

// OnChange registers fn to be called whenever a slot's source changes.
func (s *Selector) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// CurrentSource returns the source key of slot, "" when unassigned.
func (s *Selector) CurrentSource(slot string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapping[slot]
}

// Mapping returns a copy of the current mapping.
func (s *Selector) Mapping() backend.Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapping.Clone()
}

// Load fetches the mapping from the backend. On failure the current mapping
// is kept and the error returned.
func (s *Selector) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	remote, err := s.backend.GetCameraConfig(ctx)
	if err != nil {
		log.Printf("[selector] failed to load camera config: %v", err)
		return err
	}

	next := s.Mapping()
	for _, slot := range s.slots {
		if v, ok := remote[slot]; ok {
			next[slot] = v
		}
	}
	s.apply(next)
	return nil
}

// AssignSource sets slot to key. The full updated mapping is sent to the
// backend first; on failure nothing changes locally.
func (s *Selector) AssignSource(ctx context.Context, slot, key string) error {
	if !s.HasSlot(slot) {
		return &UnknownSlotError{Slot: slot}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Mapping()
	next[slot] = key
	if err := s.backend.SetCameraConfig(ctx, next); err != nil {
		log.Printf("[selector] failed to set source for %s: %v", slot, err)
		return err
	}
	s.apply(next)

	if s.recorder != nil {
		if err := s.recorder.RecordAssignment(ctx, slot, key); err != nil {
			log.Printf("[selector] failed to record assignment for %s: %v", slot, err)
		}
	}
	return nil
}

// apply swaps in next and notifies listeners of changed slots. Callers hold writeMu.
func (s *Selector) apply(next backend.Mapping) {
	s.mu.Lock()
	prev := s.mapping
	s.mapping = next
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, slot := range s.slots {
		if prev[slot] == next[slot] {
			continue
		}
		for _, fn := range listeners {
			fn(slot, next[slot])
		}
	}
}

// Devices lists readable camera sources. The backend is asked on every call;
// any failure yields an empty list.
func (s *Selector) Devices(ctx context.Context) []backend.Device {
	all, err := s.backend.Discover(ctx)
	if err != nil {
		log.Printf("[selector] device discovery failed: %v", err)
		return []backend.Device{}
	}

	readable := make([]backend.Device, 0, len(all))
	for _, d := range all {
		if d.Readable {
			readable = append(readable, d)
		}
	}
	return readable
}
