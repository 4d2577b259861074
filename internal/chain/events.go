package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Well-known event signature hashes used to build the watcher's log
// filters: the two ERC20-like Transfer filters and the wrap/unwrap
// Deposit/Withdrawal filter.
var (
	TransferSignatureHash   = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	DepositSignatureHash    = crypto.Keccak256Hash([]byte("Deposit(address,uint256)"))
	WithdrawalSignatureHash = crypto.Keccak256Hash([]byte("Withdrawal(address,uint256)"))
)

// AddressTopic renders an address as a 32-byte left-padded log topic, the
// shape a Transfer(indexed from, indexed to, value) filter needs for
// topic1/topic2.
func AddressTopic(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr.Bytes())
	return h
}
