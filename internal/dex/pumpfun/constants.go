// =============================
// File: internal/dex/pumpfun/constants.go
// =============================
package pumpfun

import "github.com/gagliardetto/solana-go"

var (
	ProgramID      = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	GlobalAccount  = solana.MustPublicKeyFromBase58("4wTV1YmyRe9jbzMGvqFG2Qz2cdcp6TkkkW8QDHqMLrCD")
	FeeRecipient   = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	EventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
	MintAuthority  = solana.MustPublicKeyFromBase58("TSLvdd1pWpHVjahSpsvCXUbgwsL3JAcvokwaKt1eokM")

	MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// Instruction discriminators from the program IDL.
var (
	BuyDiscriminator    = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	SellDiscriminator   = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
	CreateDiscriminator = []byte{0x24, 0x30, 0x20, 0x95, 0x3a, 0xc8, 0x52, 0xb3}
)

// Anchor account discriminator for the bonding curve state.
var CurveDiscriminator = []byte{0x17, 0xb7, 0xf8, 0x37, 0x60, 0xd8, 0xac, 0x60}

// PDA seeds.
const (
	seedBondingCurve = "bonding-curve"
	seedCreatorVault = "creator-vault"
	seedMetadata     = "metadata"
)

// Launch-state seed values for a freshly created token.
const (
	InitialVirtualTokenReserves = 1_073_000_000_000_000
	InitialVirtualSolReserves   = 30_000_000_000
	InitialRealTokenReserves    = 793_100_000_000_000
	TokenTotalSupply            = 1_000_000_000_000_000

	FeeBasisPoints = 100 // 1%

	SolDecimals   = 9
	TokenDecimals = 6

	LamportsPerSol = 1_000_000_000
	TokenUnit      = 1_000_000
)

// Bundle transactions are capped by the relay; buyers per transaction are
// capped by transaction size.
const MaxBuyersPerTx = 5
