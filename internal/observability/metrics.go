package observability

import "sync"

// Metrics provides basic in-memory counters for the SLA engine.
type Metrics struct {
	mu              sync.Mutex
	pollCycles      int64
	ticketsChecked  int64
	ticketFailures  int64
	breachesMarked  int64
	alertsTriggered int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordPollCycle counts one completed monitor cycle with its ticket totals.
func (m *Metrics) RecordPollCycle(checked, failed int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollCycles++
	m.ticketsChecked += int64(checked)
	m.ticketFailures += int64(failed)
}

// RecordBreach counts a newly latched breach.
func (m *Metrics) RecordBreach() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breachesMarked++
}

// RecordAlerts counts fired escalation alerts.
func (m *Metrics) RecordAlerts(count int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertsTriggered += int64(count)
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int64{
		"poll_cycles":      m.pollCycles,
		"tickets_checked":  m.ticketsChecked,
		"ticket_failures":  m.ticketFailures,
		"breaches_marked":  m.breachesMarked,
		"alerts_triggered": m.alertsTriggered,
	}
}
