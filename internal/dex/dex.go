// =============================
// File: internal/dex/dex.go
// =============================
// Package dex selects the trading venue for a mint and exposes a single
// adapter interface over the bonding curve, the platform AMM and the
// external AMM.
package dex

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// Venue tags where a mint currently trades.
type Venue string

const (
	VenueBonding    Venue = "bonding"
	VenuePumpSwap   Venue = "pumpswap"
	VenueRaydium    Venue = "raydium"
	VenueAggregator Venue = "aggregator"
)

// MintAsset is the resolved trading metadata for one mint. Reserves are
// a snapshot from resolution time, not a live read.
type MintAsset struct {
	Mint     solana.PublicKey
	Venue    Venue
	Migrated bool
	Creator  solana.PublicKey
	Curve    solana.PublicKey

	TokenReserves uint64
	SolReserves   uint64
	FeeBps        uint64
}

// Adapter trades a single mint on whatever venue it resolved to. Quote
// prices a buy of solLamports without sending anything.
type Adapter interface {
	Buy(ctx context.Context, w *wallet.Wallet, solLamports uint64, slippage float64, opts tx.SendOpts) (solana.Signature, error)
	Sell(ctx context.Context, w *wallet.Wallet, tokenAmount uint64, slippage float64, opts tx.SendOpts) (solana.Signature, error)
	Quote(ctx context.Context, solLamports uint64) (uint64, error)
}
