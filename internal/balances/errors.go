package balances

import (
	"fmt"

	"github.com/limitofzero/balances-watcher/internal/domain"
)

// MultiCallError reports a hard sub-call failure inside an aggregate3
// batch: a pre-filtered, known token returning success=false signals
// provider misbehavior, not a benign decode issue, so it fails the whole
// batch rather than being silently skipped.
type MultiCallError struct {
	Token         domain.Address
	Index         int
	ReturnDataLen int
}

func (e *MultiCallError) Error() string {
	return fmt.Sprintf("multicall subcall failed: token=%s index=%d return_data_len=%d", e.Token, e.Index, e.ReturnDataLen)
}

// MissingResponseError indicates the aggregate3 response had fewer entries
// than the request — always a provider bug, never triggered by a valid
// node.
type MissingResponseError struct {
	Index int
}

func (e *MissingResponseError) Error() string {
	return fmt.Sprintf("multicall: missing response at index=%d", e.Index)
}
