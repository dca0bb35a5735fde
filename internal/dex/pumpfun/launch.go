// =============================
// File: internal/dex/pumpfun/launch.go
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

// LaunchBuyer is one wallet buying into the launch bundle.
type LaunchBuyer struct {
	Wallet      *wallet.Wallet
	SolLamports uint64
	Slippage    float64
}

// LaunchParams describes a token creation with same-block buys.
type LaunchParams struct {
	Creator *wallet.Wallet
	Meta    TokenMeta
	// DevBuyLamports is an optional creator buy inside the create
	// transaction itself.
	DevBuyLamports uint64
	DevBuySlippage float64
	Buyers         []LaunchBuyer
	TipLamports    uint64
	Priority       tx.Priority
}

// Launcher builds and submits atomic create-and-buy bundles.
type Launcher struct {
	sender *tx.Sender
	logger *zap.Logger
}

func NewLauncher(sender *tx.Sender, logger *zap.Logger) *Launcher {
	return &Launcher{sender: sender, logger: logger.Named("launch")}
}

// Launch creates the token and lands every buyer in the same bundle. Buys
// are priced against a simulated curve that advances buyer by buyer, so
// each wallet's token output accounts for the buys landing before it.
// Returns the mint and the relay's bundle id.
func (l *Launcher) Launch(ctx context.Context, params LaunchParams) (solana.PublicKey, string, error) {
	if params.Creator == nil {
		return solana.PublicKey{}, "", fmt.Errorf("launch requires a creator wallet")
	}
	if len(params.Buyers) > MaxBuyersPerTx*(maxLaunchTxs-1) {
		return solana.PublicKey{}, "", fmt.Errorf("too many buyers: %d", len(params.Buyers))
	}

	mintWallet := solana.NewWallet()
	mint := mintWallet.PublicKey()
	mintSigner := &wallet.Wallet{
		ID:         mint.String(),
		Name:       "mint",
		PrivateKey: mintWallet.PrivateKey,
		PublicKey:  mint,
		ATACache:   make(map[string]solana.PublicKey),
	}

	addrs, err := DeriveCurveAddresses(mint, params.Creator.PublicKey)
	if err != nil {
		return solana.PublicKey{}, "", err
	}
	createIx, err := BuildCreateInstruction(mint, params.Creator, params.Meta)
	if err != nil {
		return solana.PublicKey{}, "", err
	}

	// The curve does not exist yet; every buy prices against the seeded
	// reserves advanced by the buys queued ahead of it.
	state := DefaultCurveState(params.Creator.PublicKey)

	createGroup := []solana.Instruction{createIx}
	createSigners := []*wallet.Wallet{params.Creator, mintSigner}
	if params.DevBuyLamports > 0 {
		devIxs, err := plannedBuy(addrs, params.Creator, params.DevBuyLamports, params.DevBuySlippage, state)
		if err != nil {
			return solana.PublicKey{}, "", fmt.Errorf("dev buy: %w", err)
		}
		createGroup = append(createGroup, devIxs...)
	}

	groups := [][]solana.Instruction{createGroup}
	signerGroups := [][]*wallet.Wallet{createSigners}

	for start := 0; start < len(params.Buyers); start += MaxBuyersPerTx {
		end := start + MaxBuyersPerTx
		if end > len(params.Buyers) {
			end = len(params.Buyers)
		}
		var group []solana.Instruction
		var signers []*wallet.Wallet
		for _, buyer := range params.Buyers[start:end] {
			ixs, err := plannedBuy(addrs, buyer.Wallet, buyer.SolLamports, buyer.Slippage, state)
			if err != nil {
				return solana.PublicKey{}, "", fmt.Errorf("buyer %s: %w", buyer.Wallet.Name, err)
			}
			group = append(group, ixs...)
			signers = append(signers, buyer.Wallet)
		}
		groups = append(groups, group)
		signerGroups = append(signerGroups, signers)
	}

	bundleID, err := l.sender.SendBundle(ctx, groups, signerGroups, params.Creator, params.TipLamports, tx.SendOpts{Priority: params.Priority})
	if err != nil {
		return solana.PublicKey{}, "", fmt.Errorf("launch bundle failed: %w", err)
	}

	l.logger.Info("launch bundle submitted",
		zap.String("mint", mint.String()),
		zap.String("bundle_id", bundleID),
		zap.Int("buyers", len(params.Buyers)))
	return mint, bundleID, nil
}

const maxLaunchTxs = 5

// plannedBuy prices one buy against the simulated state, advances the
// state, and returns the ATA-create plus buy instructions.
func plannedBuy(addrs *CurveAddresses, w *wallet.Wallet, solLamports uint64, slippage float64, state *CurveState) ([]solana.Instruction, error) {
	tokensOut, err := ComputeBuyOutput(solLamports, state)
	if err != nil {
		return nil, err
	}
	maxSolCost, err := ApplySlippageUp(solLamports, slippage)
	if err != nil {
		return nil, err
	}
	buyIx, err := BuildBuyInstruction(addrs, w, tokensOut, maxSolCost)
	if err != nil {
		return nil, err
	}
	state.ApplyBuy(SolAfterFee(solLamports), tokensOut)

	ataIx := wallet.CreateAssociatedTokenAccountIdempotentInstruction(w.PublicKey, w.PublicKey, addrs.Mint)
	return []solana.Instruction{ataIx, buyIx}, nil
}
