package camera

import (
	"context"
	"log"
	"sync"

	"github.com/kozaktomas/attendance-dashboard/internal/metrics"
)

// SlotStatus describes one camera slot.
type SlotStatus struct {
	Slot         string       `json:"slot"`
	Source       string       `json:"source"`
	ViewerState  ViewerState  `json:"viewer_state"`
	ChannelState ChannelState `json:"channel_state"`
	Detections   int          `json:"detections"`
}

type slotFeed struct {
	viewer  *Viewer
	channel *Channel
}

// Feed wires the selector to one viewer and one AI channel per slot. A source
// change recreates the slot's viewer and re-points its channel together.
type Feed struct {
	selector *Selector
	opener   StreamOpener
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	slots map[string]*slotFeed
}

// NewFeed creates a feed for every slot of selector. Channels are built from
// channelOpts; nothing connects until Start or a source change.
func NewFeed(selector *Selector, opener StreamOpener, channelOpts ChannelOptions) *Feed {
	f := &Feed{
		selector: selector,
		opener:   opener,
		metrics:  channelOpts.Metrics,
		slots:    make(map[string]*slotFeed),
	}
	for _, slot := range selector.Slots() {
		f.slots[slot] = &slotFeed{
			viewer:  NewViewer(slot, "", opener, f.metrics),
			channel: NewChannel(slot, channelOpts),
		}
	}
	selector.OnChange(f.apply)
	return f
}

// Start loads the mapping from the backend and applies it. A failed load is
// logged and leaves every slot on its current source.
func (f *Feed) Start(ctx context.Context) {
	if err := f.selector.Load(ctx); err != nil {
		log.Printf("[feed] starting without backend camera config: %v", err)
	}
	// apply slots that Load did not report as changed (e.g. already assigned)
	for _, slot := range f.selector.Slots() {
		f.apply(slot, f.selector.CurrentSource(slot))
	}
}

func (f *Feed) apply(slot, key string) {
	f.mu.Lock()
	sf, ok := f.slots[slot]
	if !ok {
		f.mu.Unlock()
		return
	}
	if sf.viewer.Key() == key && sf.channel.Key() == key {
		f.mu.Unlock()
		return
	}
	old := sf.viewer
	sf.viewer = NewViewer(slot, key, f.opener, f.metrics)
	f.mu.Unlock()

	old.retire()

	sf.channel.SetSource(key)
}

// Viewer returns the current viewer of slot.
func (f *Feed) Viewer(slot string) (*Viewer, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sf, ok := f.slots[slot]
	if !ok {
		return nil, false
	}
	return sf.viewer, true
}

// Channel returns the AI channel of slot.
func (f *Feed) Channel(slot string) (*Channel, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sf, ok := f.slots[slot]
	if !ok {
		return nil, false
	}
	return sf.channel, true
}

// Status returns the state of every slot in configured order.
func (f *Feed) Status() []SlotStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]SlotStatus, 0, len(f.slots))
	for _, slot := range f.selector.Slots() {
		sf := f.slots[slot]
		out = append(out, SlotStatus{
			Slot:         slot,
			Source:       f.selector.CurrentSource(slot),
			ViewerState:  sf.viewer.State(),
			ChannelState: sf.channel.State(),
			Detections:   len(sf.channel.Snapshot().Results),
		})
	}
	return out
}

// Close tears down every AI channel and ends open streams.
func (f *Feed) Close() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sf := range f.slots {
		sf.viewer.retire()
		sf.channel.Close()
	}
}
