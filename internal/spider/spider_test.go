// =============================
// File: internal/spider/spider_test.go
// =============================
package spider

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

const testReserve = 3_000_000

// fakeClient satisfies solbc.Client with canned balances and records
// every submitted transaction's fee payer.
type fakeClient struct {
	balance uint64
	payers  []solana.PublicKey
}

func (f *fakeClient) GetAccountBytes(context.Context, solana.PublicKey) ([]byte, error) {
	return nil, solbc.ErrAccountNotFound
}

func (f *fakeClient) GetMultipleAccountBytes(_ context.Context, keys []solana.PublicKey) ([][]byte, error) {
	return make([][]byte, len(keys)), nil
}

func (f *fakeClient) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	return f.balance, nil
}

func (f *fakeClient) GetTokenBalance(context.Context, solana.PublicKey) (uint64, error) {
	return 0, nil
}

func (f *fakeClient) GetRecentBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (f *fakeClient) SendTransaction(_ context.Context, transaction *solana.Transaction, _ solbc.SendOptions) (solana.Signature, error) {
	f.payers = append(f.payers, transaction.Message.AccountKeys[0])
	return transaction.Signatures[0], nil
}

func (f *fakeClient) WaitForConfirmation(context.Context, solana.Signature) error {
	return nil
}

func (f *fakeClient) SearchAccounts(context.Context, solana.PublicKey, []solbc.MemcmpFilter) ([]solbc.FoundAccount, error) {
	return nil, nil
}

func newTestSpider(client solbc.Client) *Spider {
	sender := tx.NewSender(client, nil, zap.NewNop())
	return New(client, sender, zap.NewNop(), testReserve, tx.RetryOpts{MaxAttempts: 1})
}

func testDestinations(t *testing.T, n int) ([]solana.PublicKey, []uint64) {
	t.Helper()
	dests := make([]solana.PublicKey, n)
	amounts := make([]uint64, n)
	for i := range dests {
		dests[i] = solana.NewWallet().PublicKey()
		amounts[i] = uint64((i + 1) * 10_000_000)
	}
	return dests, amounts
}

func TestBuildTreeDepthAndAmounts(t *testing.T) {
	s := newTestSpider(&fakeClient{})
	dests, amounts := testDestinations(t, 5)

	tree, err := s.BuildTree(dests, amounts)
	require.NoError(t, err)

	// ceil(log2(5)) + 1 = 4 layers.
	assert.Equal(t, 4, tree.Layers)
	require.Len(t, tree.Leaves, 5)
	assert.Equal(t, 0, tree.Root.Depth)

	// Every node carries its children's totals plus one reserve per
	// child hop.
	var walk func(n *Node)
	walk = func(n *Node) {
		if len(n.Children) == 0 {
			return
		}
		var sum uint64
		for _, c := range n.Children {
			sum += c.Amount + testReserve
			assert.Equal(t, n.Depth+1, c.Depth)
			walk(c)
		}
		assert.Equal(t, sum, n.Amount)
	}
	walk(tree.Root)

	for i, leaf := range tree.Leaves {
		assert.Equal(t, amounts[i]+uint64(testReserve), leaf.Amount)
	}
}

func TestBuildTreeSingleDestination(t *testing.T) {
	s := newTestSpider(&fakeClient{})
	dests, amounts := testDestinations(t, 1)

	tree, err := s.BuildTree(dests, amounts)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Layers)
	assert.Same(t, tree.Root, tree.Leaves[0])
}

func TestTransferRequiresBackup(t *testing.T) {
	client := &fakeClient{balance: 1_000_000_000_000}
	s := newTestSpider(client)
	dests, amounts := testDestinations(t, 3)
	tree, err := s.BuildTree(dests, amounts)
	require.NoError(t, err)

	funder, err := wallet.Generate("funder", 1)
	require.NoError(t, err)

	err = s.Transfer(context.Background(), tree, funder[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not backed up")
	// No lamport moved before the backup existed.
	assert.Empty(t, client.payers)
}

func TestTransferWalksParentsBeforeChildren(t *testing.T) {
	client := &fakeClient{balance: 1_000_000_000_000}
	s := newTestSpider(client)
	dests, amounts := testDestinations(t, 4)
	tree, err := s.BuildTree(dests, amounts)
	require.NoError(t, err)

	rf, err := wallet.NewRecoveryFile(filepath.Join(t.TempDir(), "recovery.csv"))
	require.NoError(t, err)
	require.NoError(t, s.Backup(tree, rf))
	require.NoError(t, rf.Close())

	funder, err := wallet.Generate("funder", 1)
	require.NoError(t, err)
	require.NoError(t, s.Transfer(context.Background(), tree, funder[0]))

	// First payer is the funder; every other payer appeared as a
	// recipient's parent already, so each wallet pays only after it
	// was funded.
	require.NotEmpty(t, client.payers)
	assert.Equal(t, funder[0].PublicKey, client.payers[0])

	seen := map[solana.PublicKey]bool{funder[0].PublicKey: true, tree.Root.Wallet.PublicKey: true}
	var mark func(n *Node)
	mark = func(n *Node) {
		for _, c := range n.Children {
			seen[c.Wallet.PublicKey] = true
			mark(c)
		}
	}
	mark(tree.Root)
	for _, payer := range client.payers {
		assert.True(t, seen[payer], "payer %s was never funded", payer)
	}
}

func TestBackupCoversEveryEphemeralKey(t *testing.T) {
	s := newTestSpider(&fakeClient{})
	dests, amounts := testDestinations(t, 5)
	tree, err := s.BuildTree(dests, amounts)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "recovery.csv")
	rf, err := wallet.NewRecoveryFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Backup(tree, rf))
	require.NoError(t, rf.Close())

	restored, err := wallet.LoadRecoveryFile(path)
	require.NoError(t, err)

	var count int
	var walk func(n *Node)
	walk = func(n *Node) {
		count++
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree.Root)
	assert.Len(t, restored, count)
}

func TestDepthChainBundleLimit(t *testing.T) {
	client := &fakeClient{balance: 1_000_000_000_000}
	s := newTestSpider(client)

	funder, err := wallet.Generate("funder", 1)
	require.NoError(t, err)
	rf, err := wallet.NewRecoveryFile(filepath.Join(t.TempDir(), "recovery.csv"))
	require.NoError(t, err)
	defer rf.Close()

	err = s.DepthChain(context.Background(), funder[0], solana.NewWallet().PublicKey(), 1_000_000, 5, true, rf, 10_000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundle limit")
}

func TestDepthChainSequential(t *testing.T) {
	client := &fakeClient{balance: 1_000_000_000_000}
	s := newTestSpider(client)

	funder, err := wallet.Generate("funder", 1)
	require.NoError(t, err)
	rf, err := wallet.NewRecoveryFile(filepath.Join(t.TempDir(), "recovery.csv"))
	require.NoError(t, err)
	defer rf.Close()

	err = s.DepthChain(context.Background(), funder[0], solana.NewWallet().PublicKey(), 1_000_000, 3, false, rf, 0)
	require.NoError(t, err)
	// funder -> c0 -> c1 -> c2 -> dest: four transactions.
	assert.Len(t, client.payers, 4)
	assert.Equal(t, funder[0].PublicKey, client.payers[0])
}
