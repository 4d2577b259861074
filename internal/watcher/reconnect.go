package watcher

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// maxBackoff caps the reconnect delay; attempts beyond this saturate rather
// than growing further.
const maxBackoff = 30 * time.Second

func backoffDelay(attempt int) time.Duration {
	d := time.Duration(attempt+1) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// runLogListener subscribes to filter on the WebSocket provider and calls
// handle for every log received, reconnecting with a capped backoff on
// subscribe failure or upstream disconnect, until the session's
// cancellation handle fires.
func (w *Watcher) runLogListener(name string, filter ethereum.FilterQuery, handle func(types.Log)) {
	ctx := w.sub.Context()
	attempt := 0

	for {
		if ctx.Err() != nil {
			return
		}

		logsCh, sub, err := w.ctx.WSProvider.SubscribeLogs(ctx, filter)
		if err != nil {
			if w.logger != nil {
				w.logger.Warn("log subscribe failed, retrying", zap.String("listener", name), zap.Error(err), zap.Int("attempt", attempt))
			}
			if !w.sleepBackoff(ctx, attempt) {
				return
			}
			attempt++
			continue
		}

		attempt = 0
		if !w.drainLogs(ctx, logsCh, sub, handle) {
			return
		}

		if w.logger != nil {
			w.logger.Warn("log subscription ended, reconnecting", zap.String("listener", name))
		}
		if !w.sleepBackoff(ctx, attempt) {
			return
		}
		attempt++
	}
}

// drainLogs consumes logsCh until the subscription errors/ends or
// cancellation fires. Returns false only when cancellation fired (caller
// must stop); true means the upstream ended and the caller should reconnect.
func (w *Watcher) drainLogs(ctx context.Context, logsCh <-chan types.Log, sub ethereum.Subscription, handle func(types.Log)) bool {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return false
		case err := <-sub.Err():
			if w.logger != nil && err != nil {
				w.logger.Warn("log subscription error", zap.Error(err))
			}
			return true
		case log, ok := <-logsCh:
			if !ok {
				return true
			}
			handle(log)
		}
	}
}

func (w *Watcher) sleepBackoff(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(backoffDelay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
