package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

var approveSelector = crypto.Keccak256([]byte("approve(address,uint256)"))[:4]

// EncodeApprove returns the calldata for ERC20 approve(spender, amount).
func EncodeApprove(spender common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32+32)
	data = append(data, approveSelector...)
	data = append(data, common.LeftPadBytes(spender.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// ApproveAmount is (amount + margin) scaled to the token's base units.
// Fractions below one base unit are truncated.
func ApproveAmount(amount decimal.Decimal, margin int64, decimals int32) *big.Int {
	return amount.Add(decimal.NewFromInt(margin)).Shift(decimals).BigInt()
}
