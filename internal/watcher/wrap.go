package watcher

import (
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/limitofzero/balances-watcher/internal/chain"
	"github.com/limitofzero/balances-watcher/internal/domain"
)

// wrapUnwrapFilter builds the Deposit/Withdrawal log filter for the
// configured wrapped-coin contract, owner-indexed at topic1.
func (w *Watcher) wrapUnwrapFilter() ethereum.FilterQuery {
	ownerTopic := chain.AddressTopic(common.Address(w.ctx.Owner))
	return ethereum.FilterQuery{
		Addresses: []common.Address{common.Address(w.ctx.WrappedCoin)},
		Topics: [][]common.Hash{
			{chain.DepositSignatureHash, chain.WithdrawalSignatureHash},
			{ownerTopic},
		},
	}
}

// handleWrapUnwrapLog re-reads [wrapped_coin, native] anchored at the log's
// block height; a deposit/withdrawal mutates both.
func (w *Watcher) handleWrapUnwrapLog(log types.Log) {
	if log.Removed {
		return
	}
	tokens := []domain.Address{w.ctx.WrappedCoin, w.ctx.NativeSentinel}

	balances, err := w.reader.GetBalances(
		w.sub.Context(),
		w.ctx.HTTPProvider,
		w.ctx.Owner,
		w.ctx.MulticallAddress,
		w.ctx.NativeSentinel,
		tokens,
		new(big.Int).SetUint64(log.BlockNumber),
	)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("wrap/unwrap-triggered balance read failed", zap.Error(err))
		}
		w.publishError(500, "error when reading balances after wrap/unwrap event")
		return
	}

	w.mergeAndPublish(balances)
}
