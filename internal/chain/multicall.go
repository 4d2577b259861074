package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call3 is one sub-call of an aggregate3 batch, mirroring Multicall3's
// Call3 struct: `{address target, bool allowFailure, bytes callData}`.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// CallResult is one decoded sub-response: `{bool success, bytes returnData}`.
type CallResult struct {
	Success    bool
	ReturnData []byte
}

// EncodeBalanceOfCall builds the calldata for `balanceOf(address owner)`.
func EncodeBalanceOfCall(owner common.Address) ([]byte, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("encode balanceOf: %w", err)
	}
	return data, nil
}

// EncodeGetEthBalanceCall builds the calldata for Multicall3's
// `getEthBalance(address addr)`.
func EncodeGetEthBalanceCall(addr common.Address) ([]byte, error) {
	data, err := multicall3ABI.Pack("getEthBalance", addr)
	if err != nil {
		return nil, fmt.Errorf("encode getEthBalance: %w", err)
	}
	return data, nil
}

// EncodeAggregate3Call builds the calldata for `aggregate3(Call3[] calls)`.
func EncodeAggregate3Call(calls []Call3) ([]byte, error) {
	argStruct := make([]struct {
		Target       common.Address
		AllowFailure bool
		CallData     []byte
	}, len(calls))
	for i, c := range calls {
		argStruct[i].Target = c.Target
		argStruct[i].AllowFailure = c.AllowFailure
		argStruct[i].CallData = c.CallData
	}

	data, err := multicall3ABI.Pack("aggregate3", argStruct)
	if err != nil {
		return nil, fmt.Errorf("encode aggregate3: %w", err)
	}
	return data, nil
}

// DecodeAggregate3Result decodes the `Result[] returnData` output of
// aggregate3.
func DecodeAggregate3Result(data []byte) ([]CallResult, error) {
	var out struct {
		ReturnData []struct {
			Success    bool
			ReturnData []byte
		}
	}
	if err := multicall3ABI.UnpackIntoInterface(&out, "aggregate3", data); err != nil {
		return nil, fmt.Errorf("decode aggregate3 result: %w", err)
	}

	results := make([]CallResult, len(out.ReturnData))
	for i, r := range out.ReturnData {
		results[i] = CallResult{Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}

// EncodeAggregate3Result ABI-encodes a Result[] the way a Multicall3
// contract's return data would be encoded. Used by tests to build fixtures
// for a fake HTTPProvider without depending on a live node.
func EncodeAggregate3Result(results []CallResult) ([]byte, error) {
	argStruct := make([]struct {
		Success    bool
		ReturnData []byte
	}, len(results))
	for i, r := range results {
		argStruct[i].Success = r.Success
		argStruct[i].ReturnData = r.ReturnData
	}
	return multicall3ABI.Methods["aggregate3"].Outputs.Pack(argStruct)
}

// DecodeUint256 decodes a single abi-encoded uint256 return value, as
// returned by balanceOf/getEthBalance. A malformed value is reported to the
// caller, which logs and skips the token rather than aborting the whole
// batch.
func DecodeUint256(data []byte) (*big.Int, error) {
	values, err := erc20BalanceOutputs.UnpackValues(data)
	if err != nil {
		return nil, fmt.Errorf("decode uint256: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("decode uint256: expected 1 value, got %d", len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode uint256: unexpected type %T", values[0])
	}
	return v, nil
}

// Aggregate3 is the one network round-trip of a batched read: encode the
// batch, issue the eth_call against multicall, decode the per-subcall
// results.
func Aggregate3(ctx context.Context, provider HTTPProvider, multicall common.Address, calls []Call3, block *big.Int) ([]CallResult, error) {
	calldata, err := EncodeAggregate3Call(calls)
	if err != nil {
		return nil, err
	}

	raw, err := provider.CallContract(ctx, multicall, calldata, block)
	if err != nil {
		return nil, fmt.Errorf("aggregate3 call: %w", err)
	}

	return DecodeAggregate3Result(raw)
}
