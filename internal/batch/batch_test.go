// =============================
// File: internal/batch/batch_test.go
// =============================
package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/wallet"
)

func testWallets(t *testing.T, n int) []*wallet.Wallet {
	t.Helper()
	wallets, err := wallet.Generate("batch", n)
	require.NoError(t, err)
	return wallets
}

func TestChunkPreservesOrderAndBounds(t *testing.T) {
	wallets := testWallets(t, 12)

	chunks := Chunk(wallets, 5)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 5)
	assert.Len(t, chunks[1], 5)
	assert.Len(t, chunks[2], 2)

	// Flattening restores the original order.
	var flat []*wallet.Wallet
	for _, c := range chunks {
		flat = append(flat, c...)
	}
	assert.Equal(t, wallets, flat)
}

func TestChunkBundles(t *testing.T) {
	chunks := []int{1, 2, 3, 4, 5, 6, 7}
	bundles := ChunkBundles(chunks, 3)
	require.Len(t, bundles, 3)
	assert.Equal(t, []int{1, 2, 3}, bundles[0])
	assert.Equal(t, []int{7}, bundles[2])
}

func TestRunContinuesPastFailures(t *testing.T) {
	wallets := testWallets(t, 5)
	o := NewOrchestrator(zap.NewNop(), 0)

	var mu sync.Mutex
	attempted := make(map[string]bool)
	boom := errors.New("venue rejected")
	failures := o.Run(context.Background(), wallets, func(_ context.Context, w *wallet.Wallet) error {
		mu.Lock()
		attempted[w.Name] = true
		mu.Unlock()
		if w == wallets[2] {
			return boom
		}
		return nil
	})

	// Every wallet was attempted; only the third failed.
	assert.Len(t, attempted, 5)
	require.Len(t, failures, 1)
	assert.Equal(t, wallets[2], failures[0].Wallet)
	assert.ErrorIs(t, failures[0].Err, boom)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	wallets := testWallets(t, 4)
	o := NewOrchestrator(zap.NewNop(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Int32
	failures := o.Run(ctx, wallets, func(context.Context, *wallet.Wallet) error {
		ran.Add(1)
		return nil
	})

	// Nothing launches against a dead context.
	assert.Zero(t, ran.Load())
	require.Len(t, failures, 4)
	for _, f := range failures {
		assert.ErrorIs(t, f.Err, context.Canceled)
	}
}

func TestRunLaunchesOperationsConcurrently(t *testing.T) {
	wallets := testWallets(t, 4)
	o := NewOrchestrator(zap.NewNop(), 0)

	started := make(chan struct{}, len(wallets))
	release := make(chan struct{})
	done := make(chan []Failure, 1)
	go func() {
		done <- o.Run(context.Background(), wallets, func(context.Context, *wallet.Wallet) error {
			started <- struct{}{}
			<-release
			return nil
		})
	}()

	// Every operation must be in flight before any completes.
	for range wallets {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("operations were serialized")
		}
	}
	close(release)
	assert.Empty(t, <-done)
}
