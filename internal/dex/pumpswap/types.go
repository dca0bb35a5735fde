// =============================
// File: internal/dex/pumpswap/types.go
// =============================
package pumpswap

import "github.com/gagliardetto/solana-go"

var (
	ProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

	// Account discriminators from the IDL.
	PoolDiscriminator         = []byte{241, 154, 109, 4, 17, 177, 109, 188}
	GlobalConfigDiscriminator = []byte{149, 8, 156, 202, 160, 252, 176, 217}
)

// PDA seeds.
const (
	seedGlobalConfig   = "global_config"
	seedEventAuthority = "__event_authority"
	seedCreatorVault   = "creator_vault"
)

// SPL token account layout: the amount sits at a fixed offset.
const (
	tokenAccountAmountOffset = 64
	tokenAccountAmountSize   = 8
)

// Pool is the raw AMM pool account, borsh-encoded after the discriminator.
type Pool struct {
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LPSupply              uint64
	CoinCreator           solana.PublicKey `bin:"optional"`
}

// GlobalConfig carries the program-wide fee schedule.
type GlobalConfig struct {
	Admin                  solana.PublicKey
	LPFeeBasisPoints       uint64
	ProtocolFeeBasisPoints uint64
	DisableFlags           uint8
	ProtocolFeeRecipients  [8]solana.PublicKey
}

// PoolInfo is a pool plus its live reserves and fees, ready for quoting.
type PoolInfo struct {
	Address               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	BaseReserves          uint64
	QuoteReserves         uint64
	LPSupply              uint64
	LPFeeBasisPoints      uint64
	ProtocolFeeBPS        uint64
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	CoinCreator           solana.PublicKey
}
