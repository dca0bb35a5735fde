// =============================
// File: internal/dex/fallback.go
// =============================
package dex

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/dex/jupiter"
	"github.com/ekomarov/swarm-bot/internal/dex/pumpswap"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// fallbackAdapter retries a failed AMM swap through the aggregator. When
// both legs fail the caller gets one error naming both causes.
type fallbackAdapter struct {
	primary *pumpswap.DEX
	router  jupiter.Router
	mint    solana.PublicKey
	logger  *zap.Logger
}

func (a *fallbackAdapter) Buy(ctx context.Context, w *wallet.Wallet, solLamports uint64, slippage float64, opts tx.SendOpts) (solana.Signature, error) {
	sig, primaryErr := a.primary.Buy(ctx, w, solLamports, slippage, opts)
	if primaryErr == nil {
		return sig, nil
	}
	a.logger.Warn("amm buy failed, routing through aggregator",
		zap.String("wallet", w.Name),
		zap.Error(primaryErr))

	sig, routeErr := a.router.Swap(ctx, w, solana.WrappedSol, a.mint, solLamports, slippageToBps(slippage))
	if routeErr != nil {
		return solana.Signature{}, fmt.Errorf("buy failed on amm (%v) and aggregator: %w", primaryErr, routeErr)
	}
	return sig, nil
}

func (a *fallbackAdapter) Sell(ctx context.Context, w *wallet.Wallet, tokenAmount uint64, slippage float64, opts tx.SendOpts) (solana.Signature, error) {
	sig, primaryErr := a.primary.Sell(ctx, w, tokenAmount, slippage, opts)
	if primaryErr == nil {
		return sig, nil
	}
	a.logger.Warn("amm sell failed, routing through aggregator",
		zap.String("wallet", w.Name),
		zap.Error(primaryErr))

	sig, routeErr := a.router.Swap(ctx, w, a.mint, solana.WrappedSol, tokenAmount, slippageToBps(slippage))
	if routeErr != nil {
		return solana.Signature{}, fmt.Errorf("sell failed on amm (%v) and aggregator: %w", primaryErr, routeErr)
	}
	return sig, nil
}

// Quote only consults the AMM; aggregator quotes are left to the swap
// path, which re-prices anyway.
func (a *fallbackAdapter) Quote(ctx context.Context, solLamports uint64) (uint64, error) {
	return a.primary.Quote(ctx, solLamports)
}

func slippageToBps(slippage float64) int {
	return int(math.Round(slippage * 10_000))
}

var _ Adapter = (*fallbackAdapter)(nil)
