package robot

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seer-project/seerd/internal/events"
	"github.com/seer-project/seerd/internal/util"
)

// stopWait bounds how long Stop blocks for the worker goroutine. A
// poll stuck in a response timeout can outlive this; the worker still
// exits as soon as the poll returns.
const stopWait = 2 * time.Second

// sampleFunc produces one position reading. The controller supplies an
// implementation that reconnects at most once per invocation.
type sampleFunc func() (PositionSample, error)

// Monitor polls the robot position on a fixed interval from a single
// background goroutine and keeps the latest sample plus a bounded
// history. Accessors are safe for concurrent use and return copies.
type Monitor struct {
	sample      sampleFunc
	interval    time.Duration
	historySize int
	notifier    *events.Notifier
	logger      zerolog.Logger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	current *PositionSample
	history []HistoryEntry
}

// NewMonitor creates a monitor. It does not start polling; call Start.
func NewMonitor(sample sampleFunc, interval time.Duration, historySize int, notifier *events.Notifier) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	if historySize <= 0 {
		historySize = 100
	}
	return &Monitor{
		sample:      sample,
		interval:    interval,
		historySize: historySize,
		notifier:    notifier,
		logger:      util.ComponentLogger("monitor"),
	}
}

// Running reports whether the polling goroutine is active.
func (m *Monitor) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Start launches the polling goroutine. Starting an already running
// monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.logger.Warn().Msg("monitor already running")
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(m.stopCh, m.doneCh)
	m.logger.Info().Dur("interval", m.interval).Msg("position monitoring started")
}

// Stop signals the polling goroutine and waits up to stopWait for it to
// finish. Stopping an already stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		m.logger.Info().Msg("position monitoring stopped")
	case <-time.After(stopWait):
		m.logger.Warn().Msg("monitor goroutine did not exit in time, detaching")
	}
}

// run is the polling loop. Each cycle's sleep is shortened by the time
// the poll itself took, so cycles stay anchored to the interval rather
// than drifting by the per-poll latency.
func (m *Monitor) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		started := time.Now()
		m.poll()

		sleep := m.interval - time.Since(started)
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-stopCh:
			return
		case <-time.After(sleep):
		}
	}
}

// poll takes one sample and records it. Failures are logged and
// published but never stop the loop.
func (m *Monitor) poll() {
	sample, err := m.sample()
	if err != nil {
		m.logger.Warn().Err(err).Msg("position query failed")
		if m.notifier != nil {
			m.notifier.Publish(events.Event{
				Type:    events.EventQueryError,
				Source:  "monitor",
				Payload: events.ErrorPayload{Message: err.Error()},
			})
		}
		return
	}
	m.record(sample)
}

// record stores a fresh sample and appends it to the history, trimming
// the oldest entries beyond the configured size.
func (m *Monitor) record(sample PositionSample) {
	m.mu.Lock()
	s := sample
	m.current = &s
	m.history = append(m.history, HistoryEntry{Timestamp: sample.Timestamp, Sample: sample})
	if len(m.history) > m.historySize {
		m.history = m.history[len(m.history)-m.historySize:]
	}
	m.mu.Unlock()

	if m.notifier != nil {
		m.notifier.Publish(events.Event{
			Type:   events.EventPositionUpdated,
			Source: "monitor",
			Payload: events.PositionPayload{
				X:          sample.X,
				Y:          sample.Y,
				Angle:      sample.Angle,
				Confidence: sample.Confidence,
				Station:    sample.CurrentStation,
				Timestamp:  sample.Timestamp,
			},
		})
	}
}

// Current returns a copy of the most recent sample, or false if no
// sample has been recorded yet.
func (m *Monitor) Current() (PositionSample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return PositionSample{}, false
	}
	return *m.current, true
}

// History returns a copy of the most recent count entries, oldest
// first. A count <= 0 returns the full retained history.
func (m *Monitor) History(count int) []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.history)
	if count > 0 && count < n {
		n = count
	}
	out := make([]HistoryEntry, n)
	copy(out, m.history[len(m.history)-n:])
	return out
}
