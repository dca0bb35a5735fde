// =============================
// File: internal/batch/warmup.go
// =============================
package batch

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ekomarov/swarm-bot/internal/dex"
	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// Warmup runs a buy immediately followed by a sell of everything the
// buy landed, leaving the wallet with trade history but no position.
// The two legs are strictly ordered within the wallet.
func Warmup(ctx context.Context, client solbc.Client, adapter dex.Adapter, mint solana.PublicKey, w *wallet.Wallet, solLamports uint64, slippage float64, opts tx.SendOpts) error {
	// The sell needs a confirmed buy or the balance read races it.
	buyOpts := opts
	buyOpts.Confirm = true
	if _, err := adapter.Buy(ctx, w, solLamports, slippage, buyOpts); err != nil {
		return fmt.Errorf("warmup buy: %w", err)
	}

	ata, err := w.GetATA(mint)
	if err != nil {
		return err
	}
	balance, err := client.GetTokenBalance(ctx, ata)
	if err != nil {
		return fmt.Errorf("warmup balance read: %w", err)
	}
	if balance == 0 {
		return fmt.Errorf("warmup buy landed no tokens")
	}

	if _, err := adapter.Sell(ctx, w, balance, slippage, opts); err != nil {
		return fmt.Errorf("warmup sell: %w", err)
	}
	return nil
}
