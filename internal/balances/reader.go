// Package balances implements the batched balance reader: one aggregate3
// round-trip reading every watched ERC20-like token plus the native coin,
// with deterministic sub-call ordering and per-token failure isolation.
package balances

import (
	"context"
	"math/big"
	"sort"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/limitofzero/balances-watcher/internal/chain"
	"github.com/limitofzero/balances-watcher/internal/domain"
)

// Reader issues batched balance reads via Multicall3's aggregate3.
type Reader struct {
	logger *zap.Logger
}

func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

func toGethAddress(a domain.Address) gethcommon.Address {
	return gethcommon.Address(a)
}

func toDomainAddress(a gethcommon.Address) domain.Address {
	return domain.Address(a)
}

// GetBalances reads the given tokens' balances for owner in one aggregate3
// batch. `block` is nil for "latest"; non-nil anchors the read at a
// specific block height (used by the log-driven listeners).
func (r *Reader) GetBalances(
	ctx context.Context,
	provider chain.HTTPProvider,
	owner domain.Address,
	multicall domain.Address,
	nativeSentinel domain.Address,
	tokens []domain.Address,
	block *big.Int,
) (map[domain.Address]domain.Balance, error) {
	erc20 := make([]domain.Address, 0, len(tokens))
	for _, t := range tokens {
		if t != nativeSentinel {
			erc20 = append(erc20, t)
		}
	}
	sort.Slice(erc20, func(i, j int) bool {
		return string(erc20[i][:]) < string(erc20[j][:])
	})

	calls := make([]chain.Call3, 0, len(erc20)+1)
	gethOwner := toGethAddress(owner)
	for _, t := range erc20 {
		calldata, err := chain.EncodeBalanceOfCall(gethOwner)
		if err != nil {
			return nil, err
		}
		calls = append(calls, chain.Call3{
			Target:       toGethAddress(t),
			AllowFailure: true,
			CallData:     calldata,
		})
	}

	gethMulticall := toGethAddress(multicall)
	nativeCalldata, err := chain.EncodeGetEthBalanceCall(gethOwner)
	if err != nil {
		return nil, err
	}
	calls = append(calls, chain.Call3{
		Target:       gethMulticall,
		AllowFailure: true,
		CallData:     nativeCalldata,
	})

	start := time.Now()
	results, err := chain.Aggregate3(ctx, provider, gethMulticall, calls, block)
	if err != nil {
		return nil, &multiCallTransportError{err: err}
	}
	if r.logger != nil {
		r.logger.Info("aggregate3 balances complete", zap.Duration("elapsed", time.Since(start)), zap.Int("tokens", len(erc20)))
	}

	out := make(map[domain.Address]domain.Balance, len(erc20)+1)

	for i, token := range erc20 {
		result, ok := at(results, i)
		if !ok {
			return nil, &MissingResponseError{Index: i}
		}
		if !result.Success {
			if r.logger != nil {
				r.logger.Error("multicall subcall failed",
					zap.Stringer("token", token),
					zap.Int("index", i),
					zap.Int("return_data_len", len(result.ReturnData)),
				)
			}
			return nil, &MultiCallError{Token: token, Index: i, ReturnDataLen: len(result.ReturnData)}
		}

		value, err := chain.DecodeUint256(result.ReturnData)
		if err != nil {
			if r.logger != nil {
				r.logger.Error("abi_decode failed for token balance", zap.Stringer("token", token), zap.Error(err))
			}
			continue
		}
		out[token] = domain.NewBalance(value)
	}

	nativeIdx := len(erc20)
	nativeResult, ok := at(results, nativeIdx)
	if !ok {
		return nil, &MissingResponseError{Index: nativeIdx}
	}
	if nativeResult.Success {
		value, err := chain.DecodeUint256(nativeResult.ReturnData)
		if err != nil {
			if r.logger != nil {
				r.logger.Error("abi_decode failed for native balance", zap.Error(err))
			}
		} else {
			out[nativeSentinel] = domain.NewBalance(value)
		}
	} else if r.logger != nil {
		// Unlike a hard ERC20 failure, a failed native-balance subcall does not
		// abort the batch: native balance is the last entry appended to every
		// request and its absence from the result never indicates a malformed
		// request the way an unexpected ERC20 failure does.
		r.logger.Error("native balance subcall failed", zap.Int("index", nativeIdx), zap.Int("return_data_len", len(nativeResult.ReturnData)))
	}

	return out, nil
}

func at(results []chain.CallResult, idx int) (chain.CallResult, bool) {
	if idx < 0 || idx >= len(results) {
		return chain.CallResult{}, false
	}
	return results[idx], true
}

// multiCallTransportError wraps a network/transport failure of the whole
// aggregate3 round-trip (as opposed to a single sub-call failure).
type multiCallTransportError struct {
	err error
}

func (e *multiCallTransportError) Error() string {
	return "multicall aggregate3 call failed: " + e.err.Error()
}

func (e *multiCallTransportError) Unwrap() error {
	return e.err
}
