// =============================
// File: internal/dex/raydium/raydium.go
// =============================
// Package raydium routes trades to the external AMM that curve tokens
// historically migrated to. Only the swap path is implemented; pool
// management stays with the venue.
package raydium

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/layout"
	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

var (
	ProgramID = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
)

// PoolKeys are the externally supplied addresses for one AMM pool.
type PoolKeys struct {
	AmmID         solana.PublicKey
	AmmAuthority  solana.PublicKey
	AmmOpenOrders solana.PublicKey
	CoinVault     solana.PublicKey
	PcVault       solana.PublicKey
	CoinMint      solana.PublicKey
	PcMint        solana.PublicKey
}

// ammStatusLayout reads just enough of the AMM account to validate it.
var ammStatusLayout = layout.New(
	layout.U64LE("status"),
	layout.U64LE("nonce"),
	layout.U64LE("order_num"),
	layout.U64LE("depth"),
	layout.U64LE("coin_decimals"),
	layout.U64LE("pc_decimals"),
	layout.U64LE("state"),
)

const ammStatusTradable = 6

// DEX swaps through one Raydium pool.
type DEX struct {
	client solbc.Client
	sender *tx.Sender
	logger *zap.Logger
	keys   PoolKeys
}

func New(client solbc.Client, sender *tx.Sender, logger *zap.Logger, keys PoolKeys) (*DEX, error) {
	if keys.AmmID.IsZero() || keys.AmmAuthority.IsZero() {
		return nil, fmt.Errorf("missing amm pool addresses")
	}
	return &DEX{
		client: client,
		sender: sender,
		logger: logger.Named("raydium"),
		keys:   keys,
	}, nil
}

// Validate checks the AMM account exists and is in a tradable state.
func (d *DEX) Validate(ctx context.Context) error {
	data, err := d.client.GetAccountBytes(ctx, d.keys.AmmID)
	if err != nil {
		return fmt.Errorf("amm pool %s: %w", d.keys.AmmID, err)
	}
	rec, err := ammStatusLayout.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode amm state: %w", err)
	}
	if rec.U64("status") != ammStatusTradable {
		return fmt.Errorf("amm pool %s not tradable: status %d", d.keys.AmmID, rec.U64("status"))
	}
	return nil
}

// Swap sends amountIn of the source side through the pool.
func (d *DEX) Swap(ctx context.Context, w *wallet.Wallet, sourceMint, destMint solana.PublicKey, amountIn, minAmountOut uint64, opts tx.SendOpts) (solana.Signature, error) {
	sourceATA, err := w.GetATA(sourceMint)
	if err != nil {
		return solana.Signature{}, err
	}
	destATA, err := w.GetATA(destMint)
	if err != nil {
		return solana.Signature{}, err
	}

	swapIx := BuildSwapBaseInInstruction(&SwapAccounts{
		Keys:            d.keys,
		UserSource:      sourceATA,
		UserDestination: destATA,
		UserOwner:       w.PublicKey,
	}, amountIn, minAmountOut)

	instructions := []solana.Instruction{
		wallet.CreateAssociatedTokenAccountIdempotentInstruction(w.PublicKey, w.PublicKey, destMint),
		swapIx,
	}

	sig, err := d.sender.Send(ctx, instructions, []*wallet.Wallet{w}, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("raydium swap failed: %w", err)
	}
	d.logger.Info("raydium swap submitted",
		zap.String("wallet", w.Name),
		zap.Uint64("amount_in", amountIn),
		zap.Uint64("min_amount_out", minAmountOut),
		zap.String("signature", sig.String()))
	return sig, nil
}
