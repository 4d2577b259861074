package chain

import (
	"context"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/limitofzero/balances-watcher/internal/config"
)

// BuildRegistry dials the HTTP and WebSocket providers for every network
// config.SupportedNetworks lists, skipping (and logging) any network whose
// provider fails to dial rather than aborting startup: a single
// misconfigured or unreachable network must not take down the others.
func BuildRegistry(ctx context.Context, cfg config.ChainConfig, logger *zap.Logger) *Registry {
	registry := NewRegistry()

	for _, network := range config.SupportedNetworks() {
		httpURL, err := cfg.HTTPEndpoint(network)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping network: no http endpoint", zap.Stringer("network", network), zap.Error(err))
			}
			continue
		}
		wsURL, err := cfg.WSEndpoint(network)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping network: no ws endpoint", zap.Stringer("network", network), zap.Error(err))
			}
			continue
		}
		wrappedCoin, err := config.WrappedCoinAddress(network)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping network: no wrapped coin address", zap.Stringer("network", network), zap.Error(err))
			}
			continue
		}

		httpProvider, err := DialHTTP(ctx, httpURL)
		if err != nil {
			if logger != nil {
				logger.Error("failed to dial http provider", zap.Stringer("network", network), zap.Error(err))
			}
			continue
		}
		wsProvider, err := DialWS(ctx, wsURL)
		if err != nil {
			if logger != nil {
				logger.Error("failed to dial ws provider", zap.Stringer("network", network), zap.Error(err))
			}
			httpProvider.Close()
			continue
		}

		registry.Register(network.ChainID(), NetworkEndpoints{
			HTTPProvider: httpProvider,
			WSProvider:   wsProvider,
			WrappedCoin:  gethcommon.Address(wrappedCoin),
		})

		if logger != nil {
			logger.Info("provider registered", zap.Stringer("network", network))
		}
	}

	return registry
}
