// =============================
// File: internal/dex/pumpfun/pumpfun.go
// =============================
// Package pumpfun trades against the launch platform's bonding curve:
// constant-product pricing with integer rounding that always favors the
// protocol, native buy/sell/create instructions, and multi-wallet atomic
// launches through the bundle relay.
package pumpfun

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// DEX trades one mint on its bonding curve.
type DEX struct {
	client solbc.Client
	sender *tx.Sender
	logger *zap.Logger
	addrs  *CurveAddresses
}

// New resolves the mint's curve addresses once. The creator key comes from
// the on-chain curve state.
func New(ctx context.Context, client solbc.Client, sender *tx.Sender, logger *zap.Logger, mint solana.PublicKey) (*DEX, error) {
	state, err := FetchCurveState(ctx, client, mint)
	if err != nil {
		return nil, fmt.Errorf("mint metadata not found for %s: %w", mint, err)
	}
	addrs, err := DeriveCurveAddresses(mint, state.Creator)
	if err != nil {
		return nil, err
	}
	return &DEX{
		client: client,
		sender: sender,
		logger: logger.Named("pumpfun"),
		addrs:  addrs,
	}, nil
}

// Addresses returns the derived per-mint addresses.
func (d *DEX) Addresses() *CurveAddresses { return d.addrs }

// State fetches the live curve state.
func (d *DEX) State(ctx context.Context) (*CurveState, error) {
	data, err := d.client.GetAccountBytes(ctx, d.addrs.BondingCurve)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bonding curve: %w", err)
	}
	return DecodeCurveState(data)
}

// Buy spends solLamports on the curve. The token output is computed from
// live reserves; slippage widens the spend ceiling.
func (d *DEX) Buy(ctx context.Context, w *wallet.Wallet, solLamports uint64, slippage float64, opts tx.SendOpts) (solana.Signature, error) {
	state, err := d.State(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tokensOut, err := ComputeBuyOutput(solLamports, state)
	if err != nil {
		return solana.Signature{}, err
	}
	maxSolCost, err := ApplySlippageUp(solLamports, slippage)
	if err != nil {
		return solana.Signature{}, err
	}

	ataIx := wallet.CreateAssociatedTokenAccountIdempotentInstruction(w.PublicKey, w.PublicKey, d.addrs.Mint)
	buyIx, err := BuildBuyInstruction(d.addrs, w, tokensOut, maxSolCost)
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := d.sender.Send(ctx, []solana.Instruction{ataIx, buyIx}, []*wallet.Wallet{w}, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("buy failed: %w", err)
	}
	d.logger.Info("buy submitted",
		zap.String("wallet", w.Name),
		zap.Uint64("sol_in", solLamports),
		zap.Uint64("tokens_out", tokensOut),
		zap.String("signature", sig.String()))
	return sig, nil
}

// Sell sells tokenAmount tokens; slippage lowers the proceeds floor.
func (d *DEX) Sell(ctx context.Context, w *wallet.Wallet, tokenAmount uint64, slippage float64, opts tx.SendOpts) (solana.Signature, error) {
	state, err := d.State(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	solOut, err := ComputeSellOutput(tokenAmount, state)
	if err != nil {
		return solana.Signature{}, err
	}
	minSolOutput, err := ApplySlippageDown(solOut, slippage)
	if err != nil {
		return solana.Signature{}, err
	}

	sellIx, err := BuildSellInstruction(d.addrs, w, tokenAmount, minSolOutput)
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := d.sender.Send(ctx, []solana.Instruction{sellIx}, []*wallet.Wallet{w}, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sell failed: %w", err)
	}
	d.logger.Info("sell submitted",
		zap.String("wallet", w.Name),
		zap.Uint64("tokens_in", tokenAmount),
		zap.Uint64("min_sol_out", minSolOutput),
		zap.String("signature", sig.String()))
	return sig, nil
}

// SellPercent sells the given percentage of the wallet's live balance.
func (d *DEX) SellPercent(ctx context.Context, w *wallet.Wallet, percent float64, slippage float64, opts tx.SendOpts) (solana.Signature, error) {
	if percent <= 0 || percent > 100 {
		return solana.Signature{}, fmt.Errorf("percent %v out of range (0, 100]", percent)
	}
	ata, err := w.GetATA(d.addrs.Mint)
	if err != nil {
		return solana.Signature{}, err
	}
	balance, err := d.client.GetTokenBalance(ctx, ata)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to read token balance: %w", err)
	}
	amount := uint64(float64(balance) * percent / 100)
	if amount == 0 {
		return solana.Signature{}, fmt.Errorf("nothing to sell: balance %d at %v%%", balance, percent)
	}
	return d.Sell(ctx, w, amount, slippage, opts)
}

// Quote is QuoteBuy under the venue adapter's name.
func (d *DEX) Quote(ctx context.Context, solLamports uint64) (uint64, error) {
	return d.QuoteBuy(ctx, solLamports)
}

// QuoteBuy prices a buy against live reserves without sending anything.
func (d *DEX) QuoteBuy(ctx context.Context, solLamports uint64) (uint64, error) {
	state, err := d.State(ctx)
	if err != nil {
		return 0, err
	}
	return ComputeBuyOutput(solLamports, state)
}

// QuoteSell prices a sell against live reserves without sending anything.
func (d *DEX) QuoteSell(ctx context.Context, tokenAmount uint64) (uint64, error) {
	state, err := d.State(ctx)
	if err != nil {
		return 0, err
	}
	return ComputeSellOutput(tokenAmount, state)
}
