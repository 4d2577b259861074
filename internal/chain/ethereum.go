package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthHTTPProvider adapts an ethclient.Client dialed over HTTP(S) to
// HTTPProvider.
type EthHTTPProvider struct {
	client *ethclient.Client
}

// DialHTTP connects to an HTTP(S) JSON-RPC endpoint.
func DialHTTP(ctx context.Context, url string) (*EthHTTPProvider, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial http provider: %w", err)
	}
	return &EthHTTPProvider{client: client}, nil
}

func (p *EthHTTPProvider) CallContract(ctx context.Context, to common.Address, data []byte, block *big.Int) ([]byte, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	return p.client.CallContract(ctx, msg, block)
}

// Close releases the underlying RPC connection.
func (p *EthHTTPProvider) Close() {
	p.client.Close()
}

// EthWSProvider adapts an ethclient.Client dialed over WebSocket to
// WSProvider.
type EthWSProvider struct {
	client *ethclient.Client
}

// DialWS connects to a ws(s):// JSON-RPC endpoint. The chain node must
// support eth_subscribe("logs", ...) over this connection.
func DialWS(ctx context.Context, url string) (*EthWSProvider, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial ws provider: %w", err)
	}
	return &EthWSProvider{client: client}, nil
}

func (p *EthWSProvider) SubscribeLogs(ctx context.Context, q ethereum.FilterQuery) (<-chan types.Log, ethereum.Subscription, error) {
	ch := make(chan types.Log, 256)
	sub, err := p.client.SubscribeFilterLogs(ctx, q, ch)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe_logs: %w", err)
	}
	return ch, sub, nil
}

func (p *EthWSProvider) Close() {
	p.client.Close()
}
