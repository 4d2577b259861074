package watcher

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// runSnapshotTicker re-reads every watched token at "latest" on a fixed
// interval. A tick is dropped, not queued, if the previous read is still in
// flight.
func (w *Watcher) runSnapshotTicker() {
	ctx := w.sub.Context()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var inFlight atomic.Bool

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !inFlight.CompareAndSwap(false, true) {
				continue
			}
			go func() {
				defer inFlight.Store(false)
				w.snapshotTick()
			}()
		}
	}
}

func (w *Watcher) snapshotTick() {
	tokens := w.sub.Tokens()

	balances, err := w.reader.GetBalances(
		w.sub.Context(),
		w.ctx.HTTPProvider,
		w.ctx.Owner,
		w.ctx.MulticallAddress,
		w.ctx.NativeSentinel,
		tokens,
		nil,
	)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("snapshot tick failed", zap.Error(err))
		}
		w.publishError(500, "error when making multicall3 request")
		return
	}

	w.mergeAndPublish(balances)
}
