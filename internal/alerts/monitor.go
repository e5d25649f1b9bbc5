package alerts

import (
	"context"
	"sync"

	"iotmon/internal/logging"
	"iotmon/internal/models"
)

// Monitor owns the live channel of the monitoring page: one Channel per
// visit, closed when the page is left. It does not reconnect on its own; a
// later Visit opens a fresh Channel if the previous one terminated.
type Monitor struct {
	endpoint string
	creds    TokenSource
	feed     *Feed
	sink     Sink
	logger   *logging.Logger

	mu      sync.Mutex
	current *Channel
}

// NewMonitor delivers live alerts to feed first, then to each forward sink.
func NewMonitor(endpoint string, creds TokenSource, feed *Feed, logger *logging.Logger, forward ...Sink) *Monitor {
	sinks := append(Fanout{feed}, forward...)
	return &Monitor{
		endpoint: endpoint,
		creds:    creds,
		feed:     feed,
		sink:     sinks,
		logger:   logger,
	}
}

func (m *Monitor) Feed() *Feed { return m.feed }

// Seed replaces the alert list with previously fired alerts.
func (m *Monitor) Seed(alerts []models.Alert) {
	m.feed.Replace(alerts)
}

// Visit mounts the monitoring page, opening a channel unless one is live.
func (m *Monitor) Visit(ctx context.Context) error {
	m.mu.Lock()
	if m.current != nil && !m.current.Terminated() {
		m.mu.Unlock()
		return nil
	}
	ch := NewChannel(m.endpoint, m.creds, m.sink, m.logger)
	m.current = ch
	m.mu.Unlock()

	return ch.Open(ctx)
}

// Leave unmounts the page and closes its channel.
func (m *Monitor) Leave() {
	m.mu.Lock()
	ch := m.current
	m.current = nil
	m.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
}

// State reports the state of the current channel.
func (m *Monitor) State() State {
	m.mu.Lock()
	ch := m.current
	m.mu.Unlock()
	if ch == nil {
		return StateClosed
	}
	return ch.State()
}
