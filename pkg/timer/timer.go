// Package timer schedules at most one cancellable delayed task per customer.
// Cancellation is synchronized with firing through a generation counter: once
// Cancel returns, the callback will not run.
package timer

import (
	"log/slog"
	"sync"
	"time"
)

type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

type Manager struct {
	logger *slog.Logger

	mu     sync.Mutex
	timers map[string]*pendingTimer
	gen    uint64
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger,
		timers: make(map[string]*pendingTimer),
	}
}

// Schedule arms a timer for the customer, replacing any pending one. Replace
// is atomic under the manager's lock, so there is no window where the old
// timer can fire between cancellation and re-arm.
func (m *Manager) Schedule(customerID string, delay time.Duration, onFire func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.timers[customerID]; ok {
		existing.timer.Stop()
	}

	m.gen++
	gen := m.gen

	p := &pendingTimer{gen: gen}
	p.timer = time.AfterFunc(delay, func() {
		m.fire(customerID, gen, onFire)
	})
	m.timers[customerID] = p

	m.logger.Debug("Scheduled inactivity timer", "customer_id", customerID, "delay", delay)
}

// fire runs the callback only if this generation is still the pending one.
// A timer whose entry was cancelled or replaced is a silent no-op.
func (m *Manager) fire(customerID string, gen uint64, onFire func()) {
	m.mu.Lock()

	p, ok := m.timers[customerID]
	if !ok || p.gen != gen {
		m.mu.Unlock()

		return
	}

	delete(m.timers, customerID)
	m.mu.Unlock()

	onFire()
}

// Cancel stops the customer's pending timer. It is a no-op when none exists
// and reports whether a timer was actually cancelled.
func (m *Manager) Cancel(customerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.timers[customerID]
	if !ok {
		return false
	}

	p.timer.Stop()
	delete(m.timers, customerID)

	return true
}

// Pending reports whether the customer has a live timer. Used by status
// queries to surface "has active reminder".
func (m *Manager) Pending(customerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.timers[customerID]

	return ok
}

// StopAll cancels every pending timer. Called on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.timers {
		p.timer.Stop()
		delete(m.timers, id)
	}
}
