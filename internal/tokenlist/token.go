// Package tokenlist implements a TTL-cached, in-flight-coalesced,
// bounded-concurrency fetcher over a set of token-list URLs.
package tokenlist

import "github.com/limitofzero/balances-watcher/internal/domain"

// listDocument is the shape of a fetched token-list JSON document.
type listDocument struct {
	Tokens []listToken `json:"tokens"`
}

type listToken struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	ChainID  int64  `json:"chainId"`
}

func (d listDocument) bucketByChain() map[int64]map[domain.Address]struct{} {
	out := make(map[int64]map[domain.Address]struct{})
	for _, t := range d.Tokens {
		addr, err := domain.ParseAddress(t.Address)
		if err != nil {
			continue
		}
		bucket, ok := out[t.ChainID]
		if !ok {
			bucket = make(map[domain.Address]struct{})
			out[t.ChainID] = bucket
		}
		bucket[addr] = struct{}{}
	}
	return out
}
