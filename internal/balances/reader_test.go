package balances

import (
	"context"
	"errors"
	"math/big"
	"testing"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limitofzero/balances-watcher/internal/chain"
	"github.com/limitofzero/balances-watcher/internal/domain"
)

// fakeProvider returns a scripted aggregate3 response regardless of the
// call data it receives, letting tests drive the reader's decode and
// failure-handling paths without a live node.
type fakeProvider struct {
	results []chain.CallResult
	err     error
}

func (f *fakeProvider) CallContract(ctx context.Context, to gethcommon.Address, data []byte, block *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return chain.EncodeAggregate3Result(f.results)
}

func encodeUint(v int64) []byte {
	data := make([]byte, 32)
	b := big.NewInt(v).Bytes()
	copy(data[32-len(b):], b)
	return data
}

func addrWithLastByte(b byte) domain.Address {
	var a domain.Address
	a[19] = b
	return a
}

func TestGetBalancesSplitsNativeFromERC20AndSortsDeterministically(t *testing.T) {
	native := domain.Ethereum.NativeSentinel()
	tokenA := addrWithLastByte(0xAA)
	tokenB := addrWithLastByte(0x01)

	results := []chain.CallResult{
		{Success: true, ReturnData: encodeUint(100)}, // tokenB (sorted first)
		{Success: true, ReturnData: encodeUint(200)}, // tokenA
		{Success: true, ReturnData: encodeUint(7)},   // native
	}
	p := &fakeProvider{results: results}
	r := NewReader(nil)

	out, err := r.GetBalances(context.Background(), p, addrWithLastByte(9), addrWithLastByte(8), native, []domain.Address{tokenA, native, tokenB}, nil)
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(200), out[tokenA].Int())
	assert.Equal(t, big.NewInt(100), out[tokenB].Int())
	assert.Equal(t, big.NewInt(7), out[native].Int())
}

func TestGetBalancesKeepsZeroBalances(t *testing.T) {
	native := domain.Ethereum.NativeSentinel()
	token := addrWithLastByte(0x01)

	results := []chain.CallResult{
		{Success: true, ReturnData: encodeUint(0)},
		{Success: true, ReturnData: encodeUint(0)},
	}
	p := &fakeProvider{results: results}
	r := NewReader(nil)

	out, err := r.GetBalances(context.Background(), p, addrWithLastByte(9), addrWithLastByte(8), native, []domain.Address{token}, nil)
	require.NoError(t, err)

	balance, ok := out[token]
	require.True(t, ok, "zero balance must still be present in the result map")
	assert.True(t, balance.Int().Sign() == 0)
}

func TestGetBalancesFailsWholeBatchOnHardERC20Failure(t *testing.T) {
	native := domain.Ethereum.NativeSentinel()
	token := addrWithLastByte(0x01)

	results := []chain.CallResult{
		{Success: false, ReturnData: nil},
		{Success: true, ReturnData: encodeUint(1)},
	}
	p := &fakeProvider{results: results}
	r := NewReader(nil)

	_, err := r.GetBalances(context.Background(), p, addrWithLastByte(9), addrWithLastByte(8), native, []domain.Address{token}, nil)
	require.Error(t, err)
	var mcErr *MultiCallError
	require.True(t, errors.As(err, &mcErr))
	assert.Equal(t, token, mcErr.Token)
}

func TestGetBalancesSkipsUndecodableTokenButKeepsBatchAlive(t *testing.T) {
	native := domain.Ethereum.NativeSentinel()
	badToken := addrWithLastByte(0x01)
	goodToken := addrWithLastByte(0x02)

	results := []chain.CallResult{
		{Success: true, ReturnData: []byte{0x01}}, // too short to decode as uint256
		{Success: true, ReturnData: encodeUint(42)},
		{Success: true, ReturnData: encodeUint(5)},
	}
	p := &fakeProvider{results: results}
	r := NewReader(nil)

	out, err := r.GetBalances(context.Background(), p, addrWithLastByte(9), addrWithLastByte(8), native, []domain.Address{badToken, goodToken}, nil)
	require.NoError(t, err)

	_, hasBad := out[badToken]
	assert.False(t, hasBad)
	assert.Equal(t, big.NewInt(42), out[goodToken].Int())
	assert.Equal(t, big.NewInt(5), out[native].Int())
}

func TestGetBalancesLogsButDoesNotFailOnNativeHardFailure(t *testing.T) {
	native := domain.Ethereum.NativeSentinel()
	token := addrWithLastByte(0x01)

	results := []chain.CallResult{
		{Success: true, ReturnData: encodeUint(10)},
		{Success: false, ReturnData: nil},
	}
	p := &fakeProvider{results: results}
	r := NewReader(nil)

	out, err := r.GetBalances(context.Background(), p, addrWithLastByte(9), addrWithLastByte(8), native, []domain.Address{token}, nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), out[token].Int())
	_, hasNative := out[native]
	assert.False(t, hasNative)
}

func TestGetBalancesPropagatesTransportError(t *testing.T) {
	r := NewReader(nil)
	p := &fakeProvider{err: errors.New("boom")}
	_, err := r.GetBalances(context.Background(), p, addrWithLastByte(9), addrWithLastByte(8), domain.Ethereum.NativeSentinel(), nil, nil)
	require.Error(t, err)
}

func TestMultiCallErrorMessageIncludesIndexAndLength(t *testing.T) {
	err := &MultiCallError{Token: addrWithLastByte(1), Index: 3, ReturnDataLen: 0}
	assert.Contains(t, err.Error(), "index=3")
	assert.Contains(t, err.Error(), "return_data_len=0")
}

func TestMissingResponseErrorMessage(t *testing.T) {
	err := &MissingResponseError{Index: 5}
	assert.Contains(t, err.Error(), "index=5")
}
