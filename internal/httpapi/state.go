// Package httpapi implements the REST+SSE surface: session create/update,
// the SSE balance stream, the single-token balance lookup, and the
// tokens-list endpoint. Everything here is wiring over internal/session,
// internal/watcher, internal/balances and internal/tokenlist.
package httpapi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/limitofzero/balances-watcher/internal/balances"
	"github.com/limitofzero/balances-watcher/internal/chain"
	"github.com/limitofzero/balances-watcher/internal/domain"
	"github.com/limitofzero/balances-watcher/internal/session"
	"github.com/limitofzero/balances-watcher/internal/telemetry"
	"github.com/limitofzero/balances-watcher/internal/tokenlist"
	"github.com/limitofzero/balances-watcher/internal/watcher"
)

// State is the shared, read-mostly wiring every handler closes over. It is
// built once in cmd/balances-watcher/main.go and never mutated after
// construction; the only writable process-wide structure is the Manager's
// own registry.
type State struct {
	Manager *session.Manager
	Fetcher *tokenlist.Fetcher
	Chains  *chain.Registry
	Reader  *balances.Reader
	Logger  *zap.Logger
	Metrics *telemetry.Registry

	MulticallAddress      domain.Address
	MaxWatchedTokensLimit int
	SnapshotInterval      time.Duration
}

// getTokens resolves token lists through the fetcher, counting fetch
// outcomes when metrics are wired.
func (s *State) getTokens(ctx context.Context, urls []string, network domain.Network) (map[domain.Address]struct{}, error) {
	out, err := s.Fetcher.GetTokens(ctx, urls, network)
	if s.Metrics != nil {
		if err != nil {
			s.Metrics.TokenListFetch.FetchFailures.Inc()
		} else {
			s.Metrics.TokenListFetch.FetchSuccess.Inc()
		}
	}
	return out, err
}

// spawnWatcher builds and starts a Watcher for a freshly first-attached
// session, wiring the per-network chain endpoints.
func (s *State) spawnWatcher(key domain.SubscriptionKey, sub *session.Subscription, endpoints chain.NetworkEndpoints) {
	watcherCtx := watcher.Context{
		Owner:            key.Owner,
		Network:          key.Network,
		MulticallAddress: s.MulticallAddress,
		NativeSentinel:   key.Network.NativeSentinel(),
		WrappedCoin:      domain.Address(endpoints.WrappedCoin),
		HTTPProvider:     endpoints.HTTPProvider,
		WSProvider:       endpoints.WSProvider,
		Metrics:          s.Metrics,
	}
	w := watcher.New(watcherCtx, sub, s.Reader, s.Logger, s.SnapshotInterval)
	w.SpawnWatchers()
	if s.Metrics != nil {
		s.Metrics.Sessions.Active.Set(float64(s.Manager.SessionCount()))
		s.Metrics.Sessions.WatchedChain.WithLabelValues(key.Network.String(), key.Owner.String()).Set(float64(sub.TokenCount()))
	}
}
