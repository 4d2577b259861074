// Package watcher implements the per-session worker bundle: a snapshot
// ticker plus transfer-log and wrap/unwrap-log listeners that keep a
// Subscription's balance snapshot current.
package watcher

import (
	"time"

	"go.uber.org/zap"

	"github.com/limitofzero/balances-watcher/internal/balances"
	"github.com/limitofzero/balances-watcher/internal/chain"
	"github.com/limitofzero/balances-watcher/internal/domain"
	"github.com/limitofzero/balances-watcher/internal/session"
	"github.com/limitofzero/balances-watcher/internal/telemetry"
)

// Context is the per-session wiring a Watcher needs: the owner/network it
// watches and the chain endpoints it reads/subscribes through. Metrics is
// optional.
type Context struct {
	Owner            domain.Address
	Network          domain.Network
	MulticallAddress domain.Address
	NativeSentinel   domain.Address
	WrappedCoin      domain.Address
	HTTPProvider     chain.HTTPProvider
	WSProvider       chain.WSProvider
	Metrics          *telemetry.Registry
}

// Watcher owns one session's long-running workers.
type Watcher struct {
	ctx      Context
	sub      *session.Subscription
	reader   *balances.Reader
	logger   *zap.Logger
	interval time.Duration
}
