// =============================
// File: internal/dex/pumpfun/exit.go
// =============================
package pumpfun

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// ExitParams describes an atomic multi-wallet sell-everything.
type ExitParams struct {
	Wallets  []*wallet.Wallet
	Slippage float64
	// TipPayer funds the bundle tip; nil falls back to the first seller
	// of the last transaction.
	TipPayer        *wallet.Wallet
	TipLamports     uint64
	MaxWalletsPerTx int
	MaxTxsPerBundle int
	Priority        tx.Priority
}

// SellAllBundled drains every wallet's position through the bundle
// relay. Sells are priced against a simulated curve that advances
// seller by seller, so each wallet's proceeds floor accounts for the
// sells landing before it. Returns one bundle id per submitted bundle.
func (d *DEX) SellAllBundled(ctx context.Context, params ExitParams) ([]string, error) {
	perTx := params.MaxWalletsPerTx
	if perTx <= 0 || perTx > MaxBuyersPerTx {
		perTx = MaxBuyersPerTx
	}
	perBundle := params.MaxTxsPerBundle
	if perBundle <= 0 || perBundle > 5 {
		perBundle = 5
	}

	state, err := d.State(ctx)
	if err != nil {
		return nil, err
	}

	type seller struct {
		w       *wallet.Wallet
		balance uint64
	}
	var sellers []seller
	for _, w := range params.Wallets {
		ata, err := w.GetATA(d.addrs.Mint)
		if err != nil {
			return nil, err
		}
		balance, err := d.client.GetTokenBalance(ctx, ata)
		if err != nil {
			return nil, fmt.Errorf("failed to read balance of %s: %w", w.Name, err)
		}
		if balance == 0 {
			continue
		}
		sellers = append(sellers, seller{w: w, balance: balance})
	}
	if len(sellers) == 0 {
		return nil, fmt.Errorf("no wallet holds a position")
	}

	var groups [][]solana.Instruction
	var signerGroups [][]*wallet.Wallet
	for start := 0; start < len(sellers); start += perTx {
		end := start + perTx
		if end > len(sellers) {
			end = len(sellers)
		}
		var group []solana.Instruction
		var signers []*wallet.Wallet
		for _, s := range sellers[start:end] {
			solOut, err := ComputeSellOutput(s.balance, state)
			if err != nil {
				return nil, fmt.Errorf("seller %s: %w", s.w.Name, err)
			}
			minSolOut, err := ApplySlippageDown(solOut, params.Slippage)
			if err != nil {
				return nil, err
			}
			sellIx, err := BuildSellInstruction(d.addrs, s.w, s.balance, minSolOut)
			if err != nil {
				return nil, err
			}
			state.ApplySell(s.balance, solOut)
			group = append(group, sellIx)
			signers = append(signers, s.w)
		}
		groups = append(groups, group)
		signerGroups = append(signerGroups, signers)
	}

	opts := tx.SendOpts{Priority: params.Priority}
	var bundleIDs []string
	for start := 0; start < len(groups); start += perBundle {
		end := start + perBundle
		if end > len(groups) {
			end = len(groups)
		}
		bundleID, err := d.sender.SendBundle(ctx, groups[start:end], signerGroups[start:end], params.TipPayer, params.TipLamports, opts)
		if err != nil {
			return bundleIDs, fmt.Errorf("exit bundle %d failed: %w", len(bundleIDs), err)
		}
		bundleIDs = append(bundleIDs, bundleID)
	}

	d.logger.Info("bundled exit submitted",
		zap.Int("wallets", len(sellers)),
		zap.Int("bundles", len(bundleIDs)))
	return bundleIDs, nil
}
