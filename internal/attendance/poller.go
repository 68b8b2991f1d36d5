package attendance

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
	"github.com/kozaktomas/attendance-dashboard/internal/metrics"
)

// PollBackend returns logs recorded since the previous poll.
type PollBackend interface {
	PollLogs(ctx context.Context) ([]backend.LogEntry, error)
}

type subscriber struct {
	subjectID int
	ch        chan []backend.LogEntry
}

// Poller is the single periodic poll of new attendance logs for the whole
// dashboard process. It runs only while at least one subscriber exists and
// fans every batch out to subscribers, filtered by their subject.
type Poller struct {
	backend  PollBackend
	interval time.Duration
	metrics  *metrics.Metrics

	mu     sync.Mutex
	subs   map[uuid.UUID]*subscriber
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates an idle poller.
func NewPoller(b PollBackend, interval time.Duration, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}
	return &Poller{
		backend:  b,
		interval: interval,
		metrics:  m,
		subs:     make(map[uuid.UUID]*subscriber),
	}
}

// Subscribe registers for new logs of subjectID (0 = all subjects). The first
// subscriber starts polling. The returned cancel func unsubscribes; the last
// one to leave stops the poll before it returns.
func (p *Poller) Subscribe(subjectID int) (<-chan []backend.LogEntry, func()) {
	id := uuid.New()
	sub := &subscriber{subjectID: subjectID, ch: make(chan []backend.LogEntry, constants.EventChannelBuffer)}

	p.mu.Lock()
	p.subs[id] = sub
	if p.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.done = make(chan struct{})
		go p.run(ctx, p.done)
	}
	p.metrics.PollSubscribers(len(p.subs))
	p.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { p.unsubscribe(id) })
	}
}

func (p *Poller) unsubscribe(id uuid.UUID) {
	p.mu.Lock()
	sub, ok := p.subs[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.subs, id)
	close(sub.ch)
	p.metrics.PollSubscribers(len(p.subs))

	var done chan struct{}
	if len(p.subs) == 0 && p.cancel != nil {
		p.cancel()
		p.cancel = nil
		done = p.done
		p.done = nil
	}
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Subscribers returns the number of active subscribers.
func (p *Poller) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stop ends polling and closes every subscription.
func (p *Poller) Stop() {
	p.mu.Lock()
	for id, sub := range p.subs {
		close(sub.ch)
		delete(p.subs, id)
	}
	p.metrics.PollSubscribers(0)
	var done chan struct{}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		done = p.done
		p.done = nil
	}
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	logs, err := p.backend.PollLogs(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[poller] failed to poll new logs: %v", err)
		}
		return
	}
	if len(logs) == 0 {
		return
	}
	p.metrics.PolledLogs(len(logs))

	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	for id, sub := range p.subs {
		batch := make([]backend.LogEntry, 0, len(logs))
		for _, entry := range logs {
			if MatchesSubject(entry, sub.subjectID) {
				batch = append(batch, entry)
			}
		}
		if len(batch) == 0 {
			continue
		}
		select {
		case sub.ch <- batch:
		default:
			log.Printf("[poller] subscriber %s is not keeping up, dropping %d logs", id, len(batch))
		}
	}
}
