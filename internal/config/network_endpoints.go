package config

import (
	"fmt"
	"os"

	"github.com/limitofzero/balances-watcher/internal/domain"
)

// networkSubdomains is the Alchemy-style subdomain-per-network used to
// derive provider URLs from a single shared API key.
var networkSubdomains = map[domain.Network]string{
	domain.Ethereum: "eth-mainnet",
	domain.Arbitrum: "arb-mainnet",
	domain.Sepolia:  "eth-sepolia",
}

// wrappedCoinAddresses is the per-network wrapped-native-coin contract.
var wrappedCoinAddresses = map[domain.Network]string{
	domain.Ethereum: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	domain.Sepolia:  "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14",
	domain.Arbitrum: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
}

func envPrefix(network domain.Network) string {
	switch network {
	case domain.Ethereum:
		return "ETH"
	case domain.Arbitrum:
		return "ARBITRUM"
	case domain.Sepolia:
		return "SEPOLIA"
	default:
		return network.String()
	}
}

// WrappedCoinAddress returns the wrapped-native-coin contract address used
// by the Watcher's wrap/unwrap listener.
func WrappedCoinAddress(network domain.Network) (domain.Address, error) {
	addr, ok := wrappedCoinAddresses[network]
	if !ok {
		return domain.Address{}, fmt.Errorf("no wrapped coin address configured for network %s", network)
	}
	return domain.ParseAddress(addr)
}

// HTTPEndpoint resolves the JSON-RPC HTTP URL for network. An explicit
// `<PREFIX>_RPC_HTTP_URL` override always wins; otherwise the URL is derived
// from the per-network Alchemy subdomain plus the shared API key.
func (c ChainConfig) HTTPEndpoint(network domain.Network) (string, error) {
	if override := os.Getenv(envPrefix(network) + "_RPC_HTTP_URL"); override != "" {
		return override, nil
	}
	return c.alchemyURL(network, "https")
}

// WSEndpoint resolves the JSON-RPC WebSocket URL for network, following the
// same override-then-derive rule as HTTPEndpoint.
func (c ChainConfig) WSEndpoint(network domain.Network) (string, error) {
	if override := os.Getenv(envPrefix(network) + "_RPC_WS_URL"); override != "" {
		return override, nil
	}
	return c.alchemyURL(network, "wss")
}

func (c ChainConfig) alchemyURL(network domain.Network, scheme string) (string, error) {
	subdomain, ok := networkSubdomains[network]
	if !ok {
		return "", fmt.Errorf("no subdomain configured for network %s", network)
	}
	if c.RPCAPIKey == "" {
		return "", fmt.Errorf("no RPC credential configured")
	}
	return fmt.Sprintf("%s://%s.g.alchemy.com/v2/%s", scheme, subdomain, c.RPCAPIKey), nil
}

// SupportedNetworks lists every network the service attempts to dial
// providers for at startup.
func SupportedNetworks() []domain.Network {
	return []domain.Network{domain.Ethereum, domain.Arbitrum, domain.Sepolia}
}
