package attendance

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"

	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

var scheduleClock = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})\b`)

// ScheduleStart extracts the start time from a free-form subject schedule such
// as "Monday 09:00-12:00" and returns it as "HH:MM".
func ScheduleStart(schedule string) (string, bool) {
	for _, m := range scheduleClock.FindAllStringSubmatch(schedule, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			continue
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}
	return "", false
}

// ClassStartStore holds per-subject class start overrides.
type ClassStartStore interface {
	ClassStart(ctx context.Context, subjectID int) (string, bool, error)
}

// StartResolver picks the class start time used for late detection: a stored
// override wins, then the subject schedule, then the configured default.
type StartResolver struct {
	store    ClassStartStore
	fallback string
}

// NewStartResolver creates a resolver. store may be nil.
func NewStartResolver(store ClassStartStore, fallback string) *StartResolver {
	if fallback == "" {
		fallback = constants.DefaultLateAfter
	}
	return &StartResolver{store: store, fallback: fallback}
}

// Default returns the configured default start time.
func (r *StartResolver) Default() string {
	return r.fallback
}

// Resolve returns the class start for subjectID (0 = no subject) whose
// schedule text is schedule.
func (r *StartResolver) Resolve(ctx context.Context, subjectID int, schedule string) string {
	if subjectID > 0 && r.store != nil {
		start, ok, err := r.store.ClassStart(ctx, subjectID)
		if err != nil {
			log.Printf("[attendance] failed to read class start for subject %d: %v", subjectID, err)
		} else if ok {
			return start
		}
	}
	if start, ok := ScheduleStart(schedule); ok {
		return start
	}
	return r.fallback
}
