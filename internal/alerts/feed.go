package alerts

import (
	"sync"

	"iotmon/internal/models"
)

// Sink receives alerts on the channel's delivery goroutine. Implementations
// must return quickly.
type Sink interface {
	Deliver(alert models.Alert)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(models.Alert)

func (f SinkFunc) Deliver(a models.Alert) { f(a) }

// Fanout delivers to each sink in order.
type Fanout []Sink

func (f Fanout) Deliver(a models.Alert) {
	for _, s := range f {
		s.Deliver(a)
	}
}

// Feed is the alert list shown to the user, most recent first.
type Feed struct {
	mu    sync.RWMutex
	items []models.Alert
	limit int
}

// NewFeed returns an empty Feed keeping at most limit alerts (0 = unbounded).
func NewFeed(limit int) *Feed {
	return &Feed{limit: limit}
}

// Deliver prepends a live alert.
func (f *Feed) Deliver(a models.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]models.Alert{a}, f.items...)
	if f.limit > 0 && len(f.items) > f.limit {
		f.items = f.items[:f.limit]
	}
}

// Replace sets the list, e.g. from the alerts listing on page load.
func (f *Feed) Replace(alerts []models.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]models.Alert(nil), alerts...)
	if f.limit > 0 && len(f.items) > f.limit {
		f.items = f.items[:f.limit]
	}
}

// Snapshot returns a copy of the list.
func (f *Feed) Snapshot() []models.Alert {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Alert, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}
