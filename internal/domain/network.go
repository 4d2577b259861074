// Package domain holds the wire-level value types shared by every layer of
// the balance watcher: networks, addresses, balances, subscription keys and
// the broadcast event taxonomy.
package domain

import (
	"fmt"
	"strconv"
)

// Network is a closed enumeration of the EVM chains this service watches.
type Network int64

const (
	Ethereum Network = 1
	Arbitrum Network = 42161
	Sepolia  Network = 11155111
)

var networkNames = map[Network]string{
	Ethereum: "ethereum",
	Arbitrum: "arbitrum",
	Sepolia:  "sepolia",
}

// nativeSentinel is the well-known address used across the EVM ecosystem to
// represent the chain's native coin inside ERC20-shaped balance maps.
var nativeSentinel = Address{
	0xEe, 0xee, 0xeE, 0xee, 0xeE, 0xeE, 0xeE, 0xEe, 0xEe, 0xEe,
	0xee, 0xEE, 0xEe, 0xee, 0xee, 0xee, 0xee, 0xEE, 0xEE, 0xeE,
}

// NetworkFromChainID validates a decimal chain id against the supported set.
func NetworkFromChainID(id int64) (Network, error) {
	n := Network(id)
	if _, ok := networkNames[n]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedNetwork, id)
	}
	return n, nil
}

// ParseNetwork parses a decimal chain id path segment.
func ParseNetwork(s string) (Network, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNetworkID, s)
	}
	return NetworkFromChainID(id)
}

func (n Network) ChainID() int64 { return int64(n) }

func (n Network) String() string {
	if name, ok := networkNames[n]; ok {
		return name
	}
	return strconv.FormatInt(int64(n), 10)
}

// NativeSentinel returns the address used in balance maps to represent the
// chain's native coin, as opposed to an ERC20-like contract.
func (n Network) NativeSentinel() Address {
	return nativeSentinel
}
