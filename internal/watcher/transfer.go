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

// transferFilter builds the Transfer(address,address,uint256) log filter
// for either the "owner is sender" (fromOwner=true, topic1=owner) or
// "owner is recipient" (topic2=owner) case.
func (w *Watcher) transferFilter(fromOwner bool) ethereum.FilterQuery {
	ownerTopic := chain.AddressTopic(common.Address(w.ctx.Owner))
	topics := make([][]common.Hash, 3)
	topics[0] = []common.Hash{chain.TransferSignatureHash}
	if fromOwner {
		topics[1] = []common.Hash{ownerTopic}
	} else {
		topics[2] = []common.Hash{ownerTopic}
	}
	return ethereum.FilterQuery{Topics: topics}
}

// handleTransferLog re-reads [token, native] anchored at the log's block
// height and emits whatever changed.
func (w *Watcher) handleTransferLog(log types.Log) {
	if log.Removed {
		return
	}
	token := domain.Address(log.Address)
	tokens := []domain.Address{token, w.ctx.NativeSentinel}

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
			w.logger.Error("transfer-triggered balance read failed", zap.Stringer("token", token), zap.Error(err))
		}
		w.publishError(500, "error when reading balances after transfer event")
		return
	}

	w.mergeAndPublish(balances)
}
