package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmcleod/securevault/internal/uuid"
)

const defaultCleanupInterval = time.Minute

// Manager tracks live sessions by ID. Each session owns a value built by the
// manager's factory from the new session's ID, typically a vault bound to a
// fresh MemoryStore. A session ends when it is explicitly ended, when it has
// been idle longer than the idle timeout, or when it outlives the maximum
// lifetime.
type Manager[T any] struct {
	mu          sync.Mutex
	sessions    map[string]*entry[T]
	newValue    func(id string) (T, error)
	onEnd       func(T)
	idleTimeout time.Duration
	maxLifetime time.Duration
	now         func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

type entry[T any] struct {
	value          T
	createdAt      time.Time
	lastAccessedAt time.Time
}

// ManagerOption configures a Manager.
type ManagerOption[T any] func(*Manager[T])

// WithIdleTimeout ends sessions that have not been accessed for d.
// Zero disables idle expiry.
func WithIdleTimeout[T any](d time.Duration) ManagerOption[T] {
	return func(m *Manager[T]) {
		m.idleTimeout = d
	}
}

// WithMaxLifetime ends sessions d after they were created.
// Zero disables the absolute lifetime.
func WithMaxLifetime[T any](d time.Duration) ManagerOption[T] {
	return func(m *Manager[T]) {
		m.maxLifetime = d
	}
}

// WithOnEnd registers a hook invoked with the session value after the
// session has been removed.
func WithOnEnd[T any](fn func(T)) ManagerOption[T] {
	return func(m *Manager[T]) {
		m.onEnd = fn
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock[T any](now func() time.Time) ManagerOption[T] {
	return func(m *Manager[T]) {
		m.now = now
	}
}

// NewManager creates a Manager that builds session values with newValue.
func NewManager[T any](newValue func(id string) (T, error), opts ...ManagerOption[T]) *Manager[T] {
	m := &Manager[T]{
		sessions: make(map[string]*entry[T]),
		newValue: newValue,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session and returns its ID and value.
func (m *Manager[T]) Create() (string, T, error) {
	id := uuid.New()
	value, err := m.newValue(id)
	if err != nil {
		var zero T
		return "", zero, fmt.Errorf("creating session: %w", err)
	}
	now := m.now()
	m.mu.Lock()
	m.sessions[id] = &entry[T]{value: value, createdAt: now, lastAccessedAt: now}
	m.mu.Unlock()
	return id, value, nil
}

// Get returns the value of a live session and refreshes its idle timer.
// Expired sessions are ended and reported as missing.
func (m *Manager[T]) Get(id string) (T, bool) {
	var zero T
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return zero, false
	}
	now := m.now()
	if m.expired(e, now) {
		delete(m.sessions, id)
		m.mu.Unlock()
		m.end(e)
		return zero, false
	}
	e.lastAccessedAt = now
	m.mu.Unlock()
	return e.value, true
}

// End removes a session. Ending an unknown session is a no-op.
func (m *Manager[T]) End(id string) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.end(e)
	}
}

// Len reports the number of tracked sessions, including expired ones that
// have not been swept yet.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep ends every expired session and returns how many were removed.
func (m *Manager[T]) Sweep() int {
	now := m.now()
	var ended []*entry[T]
	m.mu.Lock()
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
			ended = append(ended, e)
		}
	}
	m.mu.Unlock()
	for _, e := range ended {
		m.end(e)
	}
	return len(ended)
}

// StartCleanup runs Sweep every interval until Close is called.
func (m *Manager[T]) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Close stops the cleanup loop and ends every session.
func (m *Manager[T]) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		all := m.sessions
		m.sessions = make(map[string]*entry[T])
		m.mu.Unlock()
		for _, e := range all {
			m.end(e)
		}
	})
}

func (m *Manager[T]) expired(e *entry[T], now time.Time) bool {
	if m.idleTimeout > 0 && now.Sub(e.lastAccessedAt) > m.idleTimeout {
		return true
	}
	if m.maxLifetime > 0 && now.Sub(e.createdAt) > m.maxLifetime {
		return true
	}
	return false
}

func (m *Manager[T]) end(e *entry[T]) {
	if m.onEnd != nil {
		m.onEnd(e.value)
	}
}
