package analytics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

// summaryCache holds summaries per date range with expiry.
type summaryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	data      *Summary
	expiresAt time.Time
}

func (c *summaryCache) get(key string) (*Summary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

func (c *summaryCache) set(key string, data *Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]cacheEntry)
	}
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{data: data, expiresAt: now.Add(c.ttl)}
}

func (c *summaryCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// Service computes cached summaries.
type Service struct {
	logs     LogSource
	subjects SubjectSource
	loc      *time.Location
	lang     language.Tag
	cache    summaryCache
}

// NewService creates an analytics service. A ttl of 0 disables caching.
func NewService(logs LogSource, subjects SubjectSource, loc *time.Location, ttl time.Duration) *Service {
	return &Service{
		logs:     logs,
		subjects: subjects,
		loc:      loc,
		lang:     language.English,
		cache:    summaryCache{ttl: ttl},
	}
}

// SetLanguage changes the locale used for KPI display strings.
func (s *Service) SetLanguage(tag language.Tag) {
	s.lang = tag
	s.cache.invalidate()
}

// InvalidateCache drops all cached summaries.
func (s *Service) InvalidateCache() {
	s.cache.invalidate()
}

// Summary returns the analytics for the inclusive range from..to.
func (s *Service) Summary(ctx context.Context, from, to string) (*Summary, error) {
	fromDate, err := time.Parse(constants.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("invalid from date %q", from)
	}
	toDate, err := time.Parse(constants.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("invalid to date %q", to)
	}
	if toDate.Before(fromDate) {
		return nil, fmt.Errorf("range end %s is before start %s", to, from)
	}

	key := from + "|" + to
	if s.cache.ttl > 0 {
		if cached, ok := s.cache.get(key); ok {
			return cached, nil
		}
	}

	logs, err := s.logs.Logs(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}
	subjects, err := s.subjects.GetSubjects(ctx)
	if err != nil {
		// labels fall back to "Subject N"
		log.Printf("[analytics] failed to load subjects: %v", err)
		subjects = nil
	}

	summary := Compute(logs, subjects, from, to, s.loc, s.lang)
	if s.cache.ttl > 0 {
		s.cache.set(key, summary)
	}
	return summary, nil
}
