// =============================
// File: internal/dex/pumpswap/pumpswap.go
// =============================
// Package pumpswap trades tokens that have migrated off the bonding curve
// onto the platform's own AMM.
package pumpswap

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/dex/pumpfun"
	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// DEX trades one migrated mint against wrapped SOL on the AMM.
type DEX struct {
	client solbc.Client
	sender *tx.Sender
	pools  *PoolManager
	logger *zap.Logger

	baseMint  solana.PublicKey
	quoteMint solana.PublicKey
	pool      *PoolInfo
}

// New locates the mint's pool; pool discovery retries because freshly
// migrated pools lag behind the migration event.
func New(ctx context.Context, client solbc.Client, sender *tx.Sender, logger *zap.Logger, mint solana.PublicKey) (*DEX, error) {
	pools := NewPoolManager(client, logger)
	pool, err := pools.FindPoolWithRetry(ctx, mint, solana.WrappedSol, 5, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("mint metadata not found for %s: %w", mint, err)
	}
	return &DEX{
		client:    client,
		sender:    sender,
		pools:     pools,
		logger:    logger.Named("pumpswap"),
		baseMint:  pool.BaseMint,
		quoteMint: pool.QuoteMint,
		pool:      pool,
	}, nil
}

// Pool returns the resolved pool.
func (d *DEX) Pool() *PoolInfo { return d.pool }

// RefreshReserves re-reads the pool token accounts.
func (d *DEX) RefreshReserves(ctx context.Context) error {
	raw, err := d.client.GetMultipleAccountBytes(ctx,
		[]solana.PublicKey{d.pool.PoolBaseTokenAccount, d.pool.PoolQuoteTokenAccount})
	if err != nil {
		return fmt.Errorf("failed to refresh pool reserves: %w", err)
	}
	d.pool.BaseReserves = parseTokenAmount(raw[0])
	d.pool.QuoteReserves = parseTokenAmount(raw[1])
	return nil
}

// Buy spends quoteLamports of SOL for the base token.
func (d *DEX) Buy(ctx context.Context, w *wallet.Wallet, quoteLamports uint64, slippage float64, opts tx.SendOpts) (solana.Signature, error) {
	if err := d.RefreshReserves(ctx); err != nil {
		return solana.Signature{}, err
	}
	baseOut, err := Quote(d.pool, quoteLamports, false)
	if err != nil {
		return solana.Signature{}, err
	}
	maxQuoteIn, err := pumpfun.ApplySlippageUp(quoteLamports, slippage)
	if err != nil {
		return solana.Signature{}, err
	}

	swapIx, userQuoteATA, err := d.buildSwap(ctx, w, true, baseOut, maxQuoteIn)
	if err != nil {
		return solana.Signature{}, err
	}

	// SOL must sit in the quote ATA as wrapped SOL before the swap.
	instructions := []solana.Instruction{
		wallet.CreateAssociatedTokenAccountIdempotentInstruction(w.PublicKey, w.PublicKey, d.baseMint),
		wallet.CreateAssociatedTokenAccountIdempotentInstruction(w.PublicKey, w.PublicKey, d.quoteMint),
		system.NewTransferInstruction(maxQuoteIn, w.PublicKey, userQuoteATA).Build(),
		token.NewSyncNativeInstruction(userQuoteATA).Build(),
		swapIx,
		// Close the WSOL account to recover the unspent remainder.
		token.NewCloseAccountInstruction(userQuoteATA, w.PublicKey, w.PublicKey, nil).Build(),
	}

	sig, err := d.sender.Send(ctx, instructions, []*wallet.Wallet{w}, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("amm buy failed: %w", err)
	}
	d.logger.Info("amm buy submitted",
		zap.String("wallet", w.Name),
		zap.Uint64("quote_in", quoteLamports),
		zap.Uint64("base_out", baseOut),
		zap.String("signature", sig.String()))
	return sig, nil
}

// Sell swaps baseAmount of the token back to SOL.
func (d *DEX) Sell(ctx context.Context, w *wallet.Wallet, baseAmount uint64, slippage float64, opts tx.SendOpts) (solana.Signature, error) {
	if err := d.RefreshReserves(ctx); err != nil {
		return solana.Signature{}, err
	}
	quoteOut, err := Quote(d.pool, baseAmount, true)
	if err != nil {
		return solana.Signature{}, err
	}
	minQuoteOut, err := pumpfun.ApplySlippageDown(quoteOut, slippage)
	if err != nil {
		return solana.Signature{}, err
	}

	swapIx, userQuoteATA, err := d.buildSwap(ctx, w, false, baseAmount, minQuoteOut)
	if err != nil {
		return solana.Signature{}, err
	}

	instructions := []solana.Instruction{
		wallet.CreateAssociatedTokenAccountIdempotentInstruction(w.PublicKey, w.PublicKey, d.quoteMint),
		swapIx,
		token.NewCloseAccountInstruction(userQuoteATA, w.PublicKey, w.PublicKey, nil).Build(),
	}

	sig, err := d.sender.Send(ctx, instructions, []*wallet.Wallet{w}, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("amm sell failed: %w", err)
	}
	d.logger.Info("amm sell submitted",
		zap.String("wallet", w.Name),
		zap.Uint64("base_in", baseAmount),
		zap.Uint64("min_quote_out", minQuoteOut),
		zap.String("signature", sig.String()))
	return sig, nil
}

// Quote prices a buy of quoteLamports against freshly read reserves.
func (d *DEX) Quote(ctx context.Context, quoteLamports uint64) (uint64, error) {
	if err := d.RefreshReserves(ctx); err != nil {
		return 0, err
	}
	return Quote(d.pool, quoteLamports, false)
}

func (d *DEX) buildSwap(ctx context.Context, w *wallet.Wallet, isBuy bool, amount1, amount2 uint64) (solana.Instruction, solana.PublicKey, error) {
	cfg, err := d.pools.GlobalConfig(ctx)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	globalConfigAddr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedGlobalConfig)}, ProgramID)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	eventAuthority, err := DeriveEventAuthority()
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	vaultAuthority, vaultATA, err := DeriveCoinCreatorVault(d.pool.CoinCreator, d.quoteMint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	userBaseATA, err := w.GetATA(d.baseMint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	userQuoteATA, err := w.GetATA(d.quoteMint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	// The recipient slots fill front to back; the first non-zero one is
	// always valid.
	feeRecipient := cfg.ProtocolFeeRecipients[0]
	for _, recipient := range cfg.ProtocolFeeRecipients {
		if !recipient.IsZero() {
			feeRecipient = recipient
			break
		}
	}
	feeRecipientATA, _, err := solana.FindAssociatedTokenAddress(feeRecipient, d.quoteMint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	ix := BuildSwapInstruction(&SwapParams{
		IsBuy:                            isBuy,
		Pool:                             d.pool.Address,
		User:                             w.PublicKey,
		GlobalConfig:                     globalConfigAddr,
		BaseMint:                         d.baseMint,
		QuoteMint:                        d.quoteMint,
		UserBaseTokenAccount:             userBaseATA,
		UserQuoteTokenAccount:            userQuoteATA,
		PoolBaseTokenAccount:             d.pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount:            d.pool.PoolQuoteTokenAccount,
		ProtocolFeeRecipient:             feeRecipient,
		ProtocolFeeRecipientTokenAccount: feeRecipientATA,
		EventAuthority:                   eventAuthority,
		CoinCreatorVaultATA:              vaultATA,
		CoinCreatorVaultAuthority:        vaultAuthority,
		Amount1:                          amount1,
		Amount2:                          amount2,
	})
	return ix, userQuoteATA, nil
}
