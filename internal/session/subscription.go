package session

import (
	"context"
	"sync"

	"github.com/limitofzero/balances-watcher/internal/domain"
	"github.com/limitofzero/balances-watcher/internal/eventbus"
)

// Subscription is the per-(network,owner) session state shared by every
// attached SSE client and by the Watcher's background workers.
type Subscription struct {
	Key domain.SubscriptionKey
	Bus *eventbus.Bus

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	tokens   map[domain.Address]struct{}
	snapshot map[domain.Address]domain.Balance
}

func newSubscription(key domain.SubscriptionKey, tokens map[domain.Address]struct{}) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	if tokens == nil {
		tokens = make(map[domain.Address]struct{})
	}
	return &Subscription{
		Key:      key,
		Bus:      eventbus.New(),
		ctx:      ctx,
		cancel:   cancel,
		tokens:   tokens,
		snapshot: make(map[domain.Address]domain.Balance),
	}
}

// Done returns the session's cancellation channel. Every Watcher worker and
// every reconnect loop selects on this and exits at the next suspension
// point once it fires.
func (s *Subscription) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context returns the session's cancellation context, for passing to
// network calls so they unwind promptly on session teardown.
func (s *Subscription) Context() context.Context {
	return s.ctx
}

// Cancel fires the session's cancellation handle. Idempotent.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Tokens returns a snapshot copy of the watched-token set.
func (s *Subscription) Tokens() []domain.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Address, 0, len(s.tokens))
	for a := range s.tokens {
		out = append(out, a)
	}
	return out
}

// UnionTokens adds new tokens to the watched set. The set never shrinks;
// this is the only mutator. Returns the resulting set size.
func (s *Subscription) UnionTokens(tokens []domain.Address) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tokens {
		s.tokens[t] = struct{}{}
	}
	return len(s.tokens)
}

// TokenCount returns the current watched-token set size without copying it.
func (s *Subscription) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Snapshot returns a copy of the current balance snapshot, used to prime a
// newly attached client.
func (s *Subscription) Snapshot() map[domain.Address]domain.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.Address]domain.Balance, len(s.snapshot))
	for a, bal := range s.snapshot {
		out[a] = bal
	}
	return out
}

// MergeSnapshot folds new balances into the snapshot: an address
// missing from the snapshot is inserted and reported changed; an address
// present with a different value is overwritten and reported changed; equal
// values are left alone and not reported. Returns the diff map (nil/empty
// if nothing changed).
func (s *Subscription) MergeSnapshot(updates map[domain.Address]domain.Balance) map[domain.Address]domain.Balance {
	if len(updates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	diff := make(map[domain.Address]domain.Balance)
	for addr, newBal := range updates {
		if existing, ok := s.snapshot[addr]; ok {
			if existing.Equal(newBal) {
				continue
			}
		}
		s.snapshot[addr] = newBal
		diff[addr] = newBal
	}

	if len(diff) == 0 {
		return nil
	}
	return diff
}
