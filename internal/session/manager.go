// Package session implements the subscription manager: the named session
// registry, client refcounting, idle eviction and cancellation propagation.
// A single registry guarded by one read-write lock, with a background
// janitor loop reaping sessions that have sat idle past the TTL.
package session

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/limitofzero/balances-watcher/internal/domain"
)

type record struct {
	sub       *Subscription
	clients   uint32
	idleSince time.Time
	idle      bool
}

// Manager is the process-wide session registry.
type Manager struct {
	mu      sync.RWMutex
	records map[domain.SubscriptionKey]*record
	ttl     time.Duration
	logger  *zap.Logger

	onEvict func(domain.SubscriptionKey)
}

// NewManager creates a Manager with the given idle-session TTL. A
// non-positive TTL falls back to 60 seconds.
func NewManager(ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Manager{
		records: make(map[domain.SubscriptionKey]*record),
		ttl:     ttl,
		logger:  logger,
	}
}

// OnEvict registers a callback invoked (outside the manager's lock) whenever
// the janitor removes a session. The session's Subscription has already been
// cancelled, which stops its Watcher, by the time the callback runs.
func (m *Manager) OnEvict(fn func(domain.SubscriptionKey)) {
	m.onEvict = fn
}

// CreateOrUpdate allocates a fresh Subscription if the key is unknown,
// otherwise unions tokens into the existing one. Never emits an event. A
// fresh record starts idle so the janitor reaps it if no client ever
// attaches.
func (m *Manager) CreateOrUpdate(key domain.SubscriptionKey, tokens []domain.Address) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[key]; ok {
		rec.sub.UnionTokens(tokens)
		return rec.sub
	}

	tokenSet := make(map[domain.Address]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}
	sub := newSubscription(key, tokenSet)
	m.records[key] = &record{sub: sub, idle: true, idleSince: time.Now()}
	return sub
}

// Subscribe attaches a new client to an existing session.
// Returns the event channel, an unsubscribe function, whether this is the
// first attached client, and the Subscription handle.
func (m *Manager) Subscribe(key domain.SubscriptionKey) (<-chan domain.BalanceEvent, func(), bool, *Subscription, error) {
	m.mu.Lock()
	rec, ok := m.records[key]
	if !ok {
		m.mu.Unlock()
		return nil, nil, false, nil, domain.ErrNoSession
	}
	if rec.clients == math.MaxUint32 {
		m.mu.Unlock()
		return nil, nil, false, nil, domain.ErrTooManyClients
	}
	rec.clients++
	rec.idle = false
	rec.idleSince = time.Time{}
	isFirst := rec.clients == 1
	sub := rec.sub
	m.mu.Unlock()

	ch, unsubBus := sub.Bus.Subscribe()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			unsubBus()
			if err := m.unsubscribe(key); err != nil && m.logger != nil {
				m.logger.Warn("unsubscribe book-keeping failed", zap.Error(err), zap.Stringer("network", key.Network))
			}
		})
	}

	return ch, unsubscribe, isFirst, sub, nil
}

// Get returns the Subscription for key, if a session is currently
// registered (whether idle or not).
func (m *Manager) Get(key domain.SubscriptionKey) (*Subscription, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, false
	}
	return rec.sub, true
}

// unsubscribe decrements the client refcount. When it reaches
// zero, idle_since is recorded but the record is never removed here — only
// the janitor removes records, so a reconnecting client within the grace
// period reattaches to a warm session.
func (m *Manager) unsubscribe(key domain.SubscriptionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return domain.ErrNoClients
	}
	if rec.clients == 0 {
		return domain.ErrNoClients
	}
	rec.clients--
	if rec.clients == 0 {
		rec.idle = true
		rec.idleSince = time.Now()
	}
	return nil
}

// CleanupTick runs one janitor pass: every idle record whose
// grace period has elapsed has its Subscription cancelled and is removed
// from the registry.
func (m *Manager) CleanupTick(now time.Time) {
	m.mu.Lock()
	var evicted []domain.SubscriptionKey
	for key, rec := range m.records {
		if rec.clients == 0 && rec.idle && now.Sub(rec.idleSince) > m.ttl {
			rec.sub.Cancel()
			delete(m.records, key)
			evicted = append(evicted, key)
		}
	}
	m.mu.Unlock()

	for _, key := range evicted {
		if m.logger != nil {
			m.logger.Info("session evicted after idle TTL", zap.Stringer("network", key.Network), zap.Stringer("owner", key.Owner))
		}
		if m.onEvict != nil {
			m.onEvict(key)
		}
	}
}

// Run starts the janitor loop; it exits when ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.CleanupTick(now)
		}
	}
}

// SessionCount returns the number of registered records, for metrics.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
