package chain

import (
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
)

// The service hand-encodes the handful of calls it needs (balanceOf,
// getEthBalance, aggregate3) rather than running abigen codegen: one small
// ABI fragment per concern, no generated contract bindings.
const multicall3ABIJSON = `[
  {
    "name": "aggregate3",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {
        "name": "calls",
        "type": "tuple[]",
        "components": [
          {"name": "target", "type": "address"},
          {"name": "allowFailure", "type": "bool"},
          {"name": "callData", "type": "bytes"}
        ]
      }
    ],
    "outputs": [
      {
        "name": "returnData",
        "type": "tuple[]",
        "components": [
          {"name": "success", "type": "bool"},
          {"name": "returnData", "type": "bytes"}
        ]
      }
    ]
  },
  {
    "name": "getEthBalance",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name": "addr", "type": "address"}],
    "outputs": [{"name": "balance", "type": "uint256"}]
  }
]`

const erc20ABIJSON = `[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name": "owner", "type": "address"}],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`

var (
	multicall3ABI gethabi.ABI
	erc20ABI      gethabi.ABI

	// erc20BalanceOutputs describes the `(uint256)` return shape shared by
	// balanceOf and getEthBalance, so a single decoder serves both.
	erc20BalanceOutputs gethabi.Arguments
)

func init() {
	var err error
	multicall3ABI, err = gethabi.JSON(strings.NewReader(multicall3ABIJSON))
	if err != nil {
		panic("chain: invalid multicall3 ABI: " + err.Error())
	}
	erc20ABI, err = gethabi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("chain: invalid erc20 ABI: " + err.Error())
	}
	erc20BalanceOutputs = erc20ABI.Methods["balanceOf"].Outputs
}
