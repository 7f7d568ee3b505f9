package cursor

import (
	"time"
)

// pageRecord holds timing data for a stored page.
type pageRecord struct {
	Request  int
	StoredAt time.Time
}

// Metrics holds cursor performance data.
type Metrics struct {
	PagesPerSecond  float64
	AveragePageTime time.Duration
	LastWaitAt      *time.Time
	StateHistory    []Transition
}

// MetricsCollector tracks harvest throughput over time.
type MetricsCollector struct {
	windowSize  int          // number of pages to track
	pageTimes   []pageRecord // ring buffer of page records
	transitions []Transition // recent state changes
	lastWaitAt  *time.Time
}

// RecordPage records timing for a stored page.
func (mc *MetricsCollector) RecordPage(request int, storedAt time.Time) {
	record := pageRecord{
		Request:  request,
		StoredAt: storedAt,
	}

	if len(mc.pageTimes) >= mc.windowSize {
		// Shift elements left, drop oldest
		copy(mc.pageTimes, mc.pageTimes[1:])
		mc.pageTimes[len(mc.pageTimes)-1] = record
	} else {
		mc.pageTimes = append(mc.pageTimes, record)
	}
}

// RecordTransition records a state transition.
func (mc *MetricsCollector) RecordTransition(t Transition) {
	// Keep only last 10 transitions
	if len(mc.transitions) >= 10 {
		copy(mc.transitions, mc.transitions[1:])
		mc.transitions[len(mc.transitions)-1] = t
	} else {
		mc.transitions = append(mc.transitions, t)
	}

	if t.To == StateWaiting {
		at := t.Timestamp
		mc.lastWaitAt = &at
	}
}

// GetMetrics returns current metrics.
func (mc *MetricsCollector) GetMetrics() Metrics {
	m := Metrics{
		LastWaitAt:   mc.lastWaitAt,
		StateHistory: make([]Transition, len(mc.transitions)),
	}
	copy(m.StateHistory, mc.transitions)

	if len(mc.pageTimes) >= 2 {
		first := mc.pageTimes[0]
		last := mc.pageTimes[len(mc.pageTimes)-1]
		duration := last.StoredAt.Sub(first.StoredAt)

		if duration > 0 {
			pageCount := float64(len(mc.pageTimes) - 1)
			m.PagesPerSecond = pageCount / duration.Seconds()
			m.AveragePageTime = time.Duration(float64(duration) / pageCount)
		}
	}

	return m
}

// Reset clears all collected metrics.
func (mc *MetricsCollector) Reset() {
	mc.pageTimes = mc.pageTimes[:0]
	mc.transitions = mc.transitions[:0]
	mc.lastWaitAt = nil
}
