// =============================
// File: internal/dex/raydium/instructions.go
// =============================
package raydium

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// swapBaseIn instruction tag.
const swapBaseInTag = 9

// SwapAccounts collects the accounts the swap references.
type SwapAccounts struct {
	Keys            PoolKeys
	UserSource      solana.PublicKey
	UserDestination solana.PublicKey
	UserOwner       solana.PublicKey
}

// BuildSwapBaseInInstruction encodes a fixed-input swap.
func BuildSwapBaseInInstruction(accounts *SwapAccounts, amountIn, minAmountOut uint64) solana.Instruction {
	data := make([]byte, 1+8+8)
	data[0] = swapBaseInTag
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)

	metas := []*solana.AccountMeta{
		{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: accounts.Keys.AmmID, IsWritable: true, IsSigner: false},
		{PublicKey: accounts.Keys.AmmAuthority, IsWritable: false, IsSigner: false},
		{PublicKey: accounts.Keys.AmmOpenOrders, IsWritable: true, IsSigner: false},
		{PublicKey: accounts.Keys.CoinVault, IsWritable: true, IsSigner: false},
		{PublicKey: accounts.Keys.PcVault, IsWritable: true, IsSigner: false},
		{PublicKey: accounts.UserSource, IsWritable: true, IsSigner: false},
		{PublicKey: accounts.UserDestination, IsWritable: true, IsSigner: false},
		{PublicKey: accounts.UserOwner, IsWritable: false, IsSigner: true},
	}

	return solana.NewInstruction(ProgramID, metas, data)
}
