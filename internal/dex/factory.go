// =============================
// File: internal/dex/factory.go
// =============================
package dex

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/dex/jupiter"
	"github.com/ekomarov/swarm-bot/internal/dex/pumpfun"
	"github.com/ekomarov/swarm-bot/internal/dex/pumpswap"
	"github.com/ekomarov/swarm-bot/internal/dex/raydium"
	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
)

// Factory builds venue adapters from live chain state.
type Factory struct {
	client solbc.Client
	sender *tx.Sender
	router jupiter.Router
	logger *zap.Logger
}

func NewFactory(client solbc.Client, sender *tx.Sender, router jupiter.Router, logger *zap.Logger) *Factory {
	return &Factory{
		client: client,
		sender: sender,
		router: router,
		logger: logger.Named("dex"),
	}
}

// Resolve inspects the chain to find where a mint trades. A mint whose
// curve account is missing aborts the item.
func (f *Factory) Resolve(ctx context.Context, mint solana.PublicKey) (*MintAsset, error) {
	state, err := pumpfun.FetchCurveState(ctx, f.client, mint)
	if err != nil {
		if errors.Is(err, solbc.ErrAccountNotFound) {
			return nil, fmt.Errorf("mint metadata not found for %s: %w", mint, err)
		}
		return nil, err
	}
	curve, err := pumpfun.DeriveBondingCurve(mint)
	if err != nil {
		return nil, err
	}
	asset := &MintAsset{
		Mint:          mint,
		Creator:       state.Creator,
		Curve:         curve,
		TokenReserves: state.VirtualTokenReserves,
		SolReserves:   state.VirtualSolReserves,
		FeeBps:        pumpfun.FeeBasisPoints,
	}
	if state.Complete {
		asset.Venue = VenuePumpSwap
		asset.Migrated = true
	} else {
		asset.Venue = VenueBonding
	}
	return asset, nil
}

// Adapter builds the trading adapter for a resolved asset. Migrated mints
// get the AMM with aggregator fallback when a router is configured.
func (f *Factory) Adapter(ctx context.Context, asset *MintAsset) (Adapter, error) {
	switch asset.Venue {
	case VenueBonding:
		return pumpfun.New(ctx, f.client, f.sender, f.logger, asset.Mint)
	case VenuePumpSwap:
		amm, err := pumpswap.New(ctx, f.client, f.sender, f.logger, asset.Mint)
		if err != nil {
			return nil, err
		}
		if f.router == nil {
			return amm, nil
		}
		return &fallbackAdapter{
			primary: amm,
			router:  f.router,
			mint:    asset.Mint,
			logger:  f.logger,
		}, nil
	default:
		return nil, fmt.Errorf("no adapter for venue %q", asset.Venue)
	}
}

// Raydium builds the external-AMM venue for a known pool, validating its
// status first. Pool keys come from the caller; raydium pools have no
// derivable address for a mint pair.
func (f *Factory) Raydium(ctx context.Context, keys raydium.PoolKeys) (*raydium.DEX, error) {
	d, err := raydium.New(f.client, f.sender, f.logger, keys)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// ForMint resolves and builds in one step.
func (f *Factory) ForMint(ctx context.Context, mint solana.PublicKey) (Adapter, *MintAsset, error) {
	asset, err := f.Resolve(ctx, mint)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := f.Adapter(ctx, asset)
	if err != nil {
		return nil, nil, err
	}
	return adapter, asset, nil
}
