// =============================
// File: internal/dex/pumpfun/exit_test.go
// =============================
package pumpfun

import (
	"context"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

type exitFakeClient struct {
	tokenBalance uint64
}

func (f *exitFakeClient) GetAccountBytes(context.Context, solana.PublicKey) ([]byte, error) {
	state := DefaultCurveState(solana.PublicKey{})
	state.RealSolReserves = 5_000_000_000
	return encodeCurve(state, false), nil
}

func (f *exitFakeClient) GetMultipleAccountBytes(_ context.Context, keys []solana.PublicKey) ([][]byte, error) {
	return make([][]byte, len(keys)), nil
}

func (f *exitFakeClient) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	return 1_000_000_000, nil
}

func (f *exitFakeClient) GetTokenBalance(context.Context, solana.PublicKey) (uint64, error) {
	return f.tokenBalance, nil
}

func (f *exitFakeClient) GetRecentBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (f *exitFakeClient) SendTransaction(_ context.Context, transaction *solana.Transaction, _ solbc.SendOptions) (solana.Signature, error) {
	return transaction.Signatures[0], nil
}

func (f *exitFakeClient) WaitForConfirmation(context.Context, solana.Signature) error {
	return nil
}

func (f *exitFakeClient) SearchAccounts(context.Context, solana.PublicKey, []solbc.MemcmpFilter) ([]solbc.FoundAccount, error) {
	return nil, nil
}

// fakeRelay records bundle sizes.
type fakeRelay struct {
	bundles [][]*solana.Transaction
}

func (r *fakeRelay) SendBundle(_ context.Context, txs []*solana.Transaction) (string, error) {
	r.bundles = append(r.bundles, txs)
	return fmt.Sprintf("bundle-%d", len(r.bundles)), nil
}

func TestSellAllBundledChunksByConfiguredCeilings(t *testing.T) {
	client := &exitFakeClient{tokenBalance: 1_000_000_000_000}
	relay := &fakeRelay{}
	sender := tx.NewSender(client, relay, zap.NewNop())

	d, err := New(context.Background(), client, sender, zap.NewNop(), solana.NewWallet().PublicKey())
	require.NoError(t, err)

	wallets, err := wallet.Generate("exit", 7)
	require.NoError(t, err)

	bundleIDs, err := d.SellAllBundled(context.Background(), ExitParams{
		Wallets:         wallets,
		Slippage:        0.5,
		TipLamports:     10_000,
		MaxWalletsPerTx: 2,
		MaxTxsPerBundle: 2,
	})
	require.NoError(t, err)

	// 7 sellers at 2 per tx -> 4 txs; 2 txs per bundle -> 2 bundles.
	assert.Equal(t, []string{"bundle-1", "bundle-2"}, bundleIDs)
	require.Len(t, relay.bundles, 2)
	assert.Len(t, relay.bundles[0], 2)
	assert.Len(t, relay.bundles[1], 2)
}

func TestSellAllBundledRejectsEmptyPositions(t *testing.T) {
	client := &exitFakeClient{tokenBalance: 0}
	relay := &fakeRelay{}
	sender := tx.NewSender(client, relay, zap.NewNop())

	d, err := New(context.Background(), client, sender, zap.NewNop(), solana.NewWallet().PublicKey())
	require.NoError(t, err)

	wallets, err := wallet.Generate("exit", 3)
	require.NoError(t, err)

	_, err = d.SellAllBundled(context.Background(), ExitParams{Wallets: wallets, Slippage: 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no wallet holds a position")
	assert.Empty(t, relay.bundles)
}
