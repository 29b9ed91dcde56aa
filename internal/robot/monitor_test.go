package robot

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seer-project/seerd/internal/events"
)

// countingSampler yields distinct samples so ordering is observable.
func countingSampler(counter *atomic.Int64) sampleFunc {
	return func() (PositionSample, error) {
		n := counter.Add(1)
		return PositionSample{X: float64(n), Timestamp: time.Now()}, nil
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestMonitorRecordsCurrentAndHistory(t *testing.T) {
	var n atomic.Int64
	m := NewMonitor(countingSampler(&n), 10*time.Millisecond, 100, nil)

	m.Start()
	defer m.Stop()

	waitFor(t, 2*time.Second, func() bool { return n.Load() >= 3 })
	m.Stop()

	current, ok := m.Current()
	if !ok {
		t.Fatal("no current sample after polling")
	}
	history := m.History(0)
	if len(history) < 3 {
		t.Fatalf("history has %d entries, want >= 3", len(history))
	}
	// Entries are oldest first and the current sample is the newest.
	for i := 1; i < len(history); i++ {
		if history[i].Sample.X <= history[i-1].Sample.X {
			t.Fatalf("history out of order at %d: %v then %v", i, history[i-1].Sample.X, history[i].Sample.X)
		}
	}
	if last := history[len(history)-1].Sample.X; last != current.X {
		t.Fatalf("current sample %v, last history entry %v", current.X, last)
	}
}

func TestMonitorHistoryBounded(t *testing.T) {
	var n atomic.Int64
	m := NewMonitor(countingSampler(&n), time.Millisecond, 5, nil)

	m.Start()
	waitFor(t, 2*time.Second, func() bool { return n.Load() >= 12 })
	m.Stop()

	history := m.History(0)
	if len(history) != 5 {
		t.Fatalf("history has %d entries, want exactly 5", len(history))
	}
	// The retained entries are the newest ones.
	current, _ := m.Current()
	if history[len(history)-1].Sample.X != current.X {
		t.Fatal("trimming dropped the newest entry instead of the oldest")
	}
}

func TestMonitorHistoryCountLimit(t *testing.T) {
	var n atomic.Int64
	m := NewMonitor(countingSampler(&n), time.Millisecond, 50, nil)

	m.Start()
	waitFor(t, 2*time.Second, func() bool { return n.Load() >= 10 })
	m.Stop()

	all := m.History(0)
	last3 := m.History(3)
	if len(last3) != 3 {
		t.Fatalf("History(3) returned %d entries", len(last3))
	}
	if last3[2].Sample.X != all[len(all)-1].Sample.X {
		t.Fatal("History(3) did not return the newest entries")
	}
}

func TestMonitorStopIdempotent(t *testing.T) {
	var n atomic.Int64
	m := NewMonitor(countingSampler(&n), 10*time.Millisecond, 10, nil)

	m.Stop() // never started

	m.Start()
	waitFor(t, 2*time.Second, func() bool { return n.Load() >= 1 })
	m.Stop()
	m.Stop()

	if m.Running() {
		t.Fatal("monitor still running after Stop")
	}

	// No further samples after stop.
	settled := n.Load()
	time.Sleep(50 * time.Millisecond)
	if n.Load() > settled+1 {
		t.Fatalf("sampler still invoked after stop: %d then %d", settled, n.Load())
	}
}

func TestMonitorStartIdempotent(t *testing.T) {
	var n atomic.Int64
	m := NewMonitor(countingSampler(&n), 10*time.Millisecond, 10, nil)

	m.Start()
	m.Start()
	defer m.Stop()

	if !m.Running() {
		t.Fatal("monitor not running after Start")
	}
}

func TestMonitorPublishesEvents(t *testing.T) {
	notifier := events.NewNotifier()

	var mu sync.Mutex
	var positions []events.PositionPayload
	var failures []string
	notifier.Subscribe(events.EventPositionUpdated, "test", func(e events.Event) {
		mu.Lock()
		positions = append(positions, e.Payload.(events.PositionPayload))
		mu.Unlock()
	})
	notifier.Subscribe(events.EventQueryError, "test", func(e events.Event) {
		mu.Lock()
		failures = append(failures, e.Payload.(events.ErrorPayload).Message)
		mu.Unlock()
	})

	var n atomic.Int64
	sampler := func() (PositionSample, error) {
		if c := n.Add(1); c%2 == 0 {
			return PositionSample{}, errors.New("robot unreachable")
		}
		return PositionSample{X: 1, Timestamp: time.Now()}, nil
	}
	m := NewMonitor(sampler, time.Millisecond, 10, notifier)

	m.Start()
	waitFor(t, 2*time.Second, func() bool { return n.Load() >= 4 })
	m.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(positions) == 0 {
		t.Fatal("no position events published")
	}
	if len(failures) == 0 {
		t.Fatal("no query error events published")
	}
	if failures[0] != "robot unreachable" {
		t.Fatalf("error payload %q", failures[0])
	}
}
