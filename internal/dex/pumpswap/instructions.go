// =============================
// File: internal/dex/pumpswap/instructions.go
// =============================
package pumpswap

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators from the IDL.
var (
	buyDiscriminator  = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// SwapParams collects everything the swap instruction references.
type SwapParams struct {
	IsBuy bool

	Pool                             solana.PublicKey
	User                             solana.PublicKey
	GlobalConfig                     solana.PublicKey
	BaseMint                         solana.PublicKey
	QuoteMint                        solana.PublicKey
	UserBaseTokenAccount             solana.PublicKey
	UserQuoteTokenAccount            solana.PublicKey
	PoolBaseTokenAccount             solana.PublicKey
	PoolQuoteTokenAccount            solana.PublicKey
	ProtocolFeeRecipient             solana.PublicKey
	ProtocolFeeRecipientTokenAccount solana.PublicKey
	EventAuthority                   solana.PublicKey
	CoinCreatorVaultATA              solana.PublicKey
	CoinCreatorVaultAuthority        solana.PublicKey

	// Buy: Amount1 = baseAmountOut, Amount2 = maxQuoteAmountIn.
	// Sell: Amount1 = baseAmountIn, Amount2 = minQuoteAmountOut.
	Amount1 uint64
	Amount2 uint64
}

// BuildSwapInstruction assembles a buy or sell against the pool. Account
// order is fixed by the program.
func BuildSwapInstruction(params *SwapParams) solana.Instruction {
	data := make([]byte, 8+8+8)
	if params.IsBuy {
		copy(data[0:8], buyDiscriminator)
	} else {
		copy(data[0:8], sellDiscriminator)
	}
	binary.LittleEndian.PutUint64(data[8:16], params.Amount1)
	binary.LittleEndian.PutUint64(data[16:24], params.Amount2)

	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(params.Pool, false, false),
		solana.NewAccountMeta(params.User, true, true),
		solana.NewAccountMeta(params.GlobalConfig, false, false),
		solana.NewAccountMeta(params.BaseMint, false, false),
		solana.NewAccountMeta(params.QuoteMint, false, false),
		solana.NewAccountMeta(params.UserBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.UserQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.ProtocolFeeRecipient, false, false),
		solana.NewAccountMeta(params.ProtocolFeeRecipientTokenAccount, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(params.EventAuthority, false, false),
		solana.NewAccountMeta(ProgramID, false, false),
		solana.NewAccountMeta(params.CoinCreatorVaultATA, true, false),
		solana.NewAccountMeta(params.CoinCreatorVaultAuthority, false, false),
	}

	return solana.NewInstruction(ProgramID, accountMetas, data)
}

// DeriveEventAuthority derives the program's event authority PDA.
func DeriveEventAuthority() (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{[]byte(seedEventAuthority)}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive event authority: %w", err)
	}
	return pda, nil
}

// DeriveCoinCreatorVault derives the creator fee vault authority and its
// quote-token ATA.
func DeriveCoinCreatorVault(coinCreator, quoteMint solana.PublicKey) (authority, ata solana.PublicKey, err error) {
	authority, _, err = solana.FindProgramAddress(
		[][]byte{[]byte(seedCreatorVault), coinCreator.Bytes()},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("failed to derive creator vault authority: %w", err)
	}
	ata, _, err = solana.FindAssociatedTokenAddress(authority, quoteMint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("failed to derive creator vault ata: %w", err)
	}
	return authority, ata, nil
}
