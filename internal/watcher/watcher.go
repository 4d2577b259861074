package watcher

import (
	"time"

	"go.uber.org/zap"

	"github.com/limitofzero/balances-watcher/internal/balances"
	"github.com/limitofzero/balances-watcher/internal/domain"
	"github.com/limitofzero/balances-watcher/internal/session"
)

// DefaultSnapshotInterval is the fallback snapshot-tick period.
const DefaultSnapshotInterval = 15 * time.Second

// New builds a Watcher for one session. It does not start any worker;
// call SpawnWatchers for that.
func New(ctx Context, sub *session.Subscription, reader *balances.Reader, logger *zap.Logger, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	return &Watcher{ctx: ctx, sub: sub, reader: reader, logger: logger, interval: interval}
}

// SpawnWatchers starts the snapshot ticker, the two ERC20 transfer-log
// listeners (topic1=owner and topic2=owner), and the wrap/unwrap listener,
// each exactly once, all bound to the session's cancellation handle.
func (w *Watcher) SpawnWatchers() {
	go w.runSnapshotTicker()
	go w.runLogListener("erc20_transfer_from", w.transferFilter(true), w.handleTransferLog)
	go w.runLogListener("erc20_transfer_to", w.transferFilter(false), w.handleTransferLog)
	go w.runLogListener("wrap_unwrap", w.wrapUnwrapFilter(), w.handleWrapUnwrapLog)
}

// mergeAndPublish folds a fresh read into the snapshot and broadcasts the
// resulting diff, suppressing empty diffs. Read errors never cancel the
// session; they surface as EventError on the bus via publishError.
func (w *Watcher) mergeAndPublish(updates map[domain.Address]domain.Balance) {
	if len(updates) == 0 {
		if w.logger != nil {
			w.logger.Warn("balance read returned no decodable balances")
		}
		return
	}
	diff := w.sub.MergeSnapshot(updates)
	if len(diff) == 0 {
		return
	}
	dropped := w.sub.Bus.Publish(domain.BalanceUpdate{Balances: diff})
	if m := w.ctx.Metrics; m != nil {
		m.Events.BalanceUpdatesPublished.Inc()
		m.Events.BusDropped.Add(float64(dropped))
	}
}

func (w *Watcher) publishError(code uint16, message string) {
	dropped := w.sub.Bus.Publish(domain.EventError{Code: code, Message: message})
	if m := w.ctx.Metrics; m != nil {
		m.Events.ErrorsPublished.Inc()
		m.Events.BusDropped.Add(float64(dropped))
	}
}
