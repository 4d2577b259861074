// Package chain wraps the chain-RPC surface the rest of the service
// consumes: a batched aggregate call plus ABI encode/decode on the HTTP
// side, and a log-subscription stream on the WebSocket side. Concrete
// providers are backed by github.com/ethereum/go-ethereum's ethclient.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// HTTPProvider is the single eth_call surface the batched balance reader
// (internal/balances) and the single-token balance endpoint both build on.
// The aggregate3/balanceOf encoding lives in this package, not in the
// provider.
type HTTPProvider interface {
	// CallContract issues one eth_call against `to` at `block` (nil means
	// "latest").
	CallContract(ctx context.Context, to common.Address, data []byte, block *big.Int) ([]byte, error)
}

// WSProvider is the log-subscription surface the Watcher depends on.
type WSProvider interface {
	// SubscribeLogs opens a log filter subscription. An upstream disconnect
	// is reported on the returned ethereum.Subscription's Err(); the
	// go-ethereum backed provider never closes the returned channel.
	SubscribeLogs(ctx context.Context, q ethereum.FilterQuery) (<-chan types.Log, ethereum.Subscription, error)
}

// NetworkEndpoints is the injected, per-network configuration: chain
// providers plus the wrapped-coin contract address for that chain.
type NetworkEndpoints struct {
	HTTPProvider HTTPProvider
	WSProvider   WSProvider
	WrappedCoin  common.Address
}

// Registry maps a domain.Network's chain id to its configured endpoints.
type Registry struct {
	byChainID map[int64]NetworkEndpoints
}

func NewRegistry() *Registry {
	return &Registry{byChainID: make(map[int64]NetworkEndpoints)}
}

func (r *Registry) Register(chainID int64, endpoints NetworkEndpoints) {
	r.byChainID[chainID] = endpoints
}

func (r *Registry) Get(chainID int64) (NetworkEndpoints, bool) {
	ep, ok := r.byChainID[chainID]
	return ep, ok
}
