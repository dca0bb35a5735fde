// =============================
// File: internal/runner/runner_test.go
// =============================
package runner

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/dex"
	"github.com/ekomarov/swarm-bot/internal/dex/pumpfun"
	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// fakeClient serves canned balances and, once armed, a fresh bonding
// curve account for every address.
type fakeClient struct {
	mu        sync.Mutex
	balance   uint64
	curveLive bool
	sent      int
}

func freshCurveBytes() []byte {
	data := make([]byte, 49)
	copy(data, pumpfun.CurveDiscriminator)
	binary.LittleEndian.PutUint64(data[8:], pumpfun.InitialVirtualTokenReserves)
	binary.LittleEndian.PutUint64(data[16:], pumpfun.InitialVirtualSolReserves)
	binary.LittleEndian.PutUint64(data[24:], pumpfun.InitialRealTokenReserves)
	binary.LittleEndian.PutUint64(data[40:], pumpfun.TokenTotalSupply)
	return data
}

func (f *fakeClient) arm() {
	f.mu.Lock()
	f.curveLive = true
	f.mu.Unlock()
}

func (f *fakeClient) GetAccountBytes(context.Context, solana.PublicKey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.curveLive {
		return nil, solbc.ErrAccountNotFound
	}
	return freshCurveBytes(), nil
}

func (f *fakeClient) GetMultipleAccountBytes(_ context.Context, keys []solana.PublicKey) ([][]byte, error) {
	return make([][]byte, len(keys)), nil
}

func (f *fakeClient) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeClient) GetTokenBalance(context.Context, solana.PublicKey) (uint64, error) {
	return 0, nil
}

func (f *fakeClient) GetRecentBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (f *fakeClient) SendTransaction(_ context.Context, transaction *solana.Transaction, _ solbc.SendOptions) (solana.Signature, error) {
	f.mu.Lock()
	f.sent++
	f.mu.Unlock()
	return transaction.Signatures[0], nil
}

func (f *fakeClient) WaitForConfirmation(context.Context, solana.Signature) error {
	return nil
}

func (f *fakeClient) SearchAccounts(context.Context, solana.PublicKey, []solbc.MemcmpFilter) ([]solbc.FoundAccount, error) {
	return nil, nil
}

var _ solbc.Client = (*fakeClient)(nil)

func newTestRunner(t *testing.T, client *fakeClient, n int, opts Options) *Runner {
	t.Helper()
	wallets, err := wallet.Generate("worker", n)
	require.NoError(t, err)
	sender := tx.NewSender(client, nil, zap.NewNop())
	factory := dex.NewFactory(client, sender, nil, zap.NewNop())
	return New(client, factory, wallets, opts, zap.NewNop())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "waiting_for_launch_signal", StateWaitingForLaunchSignal.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "stopped", StateStopped.String())
}

func TestPreflightRejectsUnderfundedWallet(t *testing.T) {
	client := &fakeClient{balance: 1_000}
	r := newTestRunner(t, client, 3, Options{
		Params:     Params{BuyLamports: 100_000_000},
		MinBalance: 110_000_000,
	})

	err := r.Run(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "underfunded")
	// Nothing was submitted.
	assert.Zero(t, client.sent)
}

func TestStopCancelsLaunchWait(t *testing.T) {
	client := &fakeClient{balance: 10_000_000_000}
	r := newTestRunner(t, client, 2, Options{
		Params:    Params{BuyLamports: 100_000_000, Slippage: 0.05},
		PollDelay: 10 * time.Millisecond,
	})

	done := make(chan error, 1)
	go func() {
		done <- r.Run(context.Background(), solana.NewWallet().PublicKey())
	}()

	// Let the runner reach the wait state before stopping it.
	require.Eventually(t, func() bool {
		return r.State() == StateWaitingForLaunchSignal
	}, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, StateStopped, r.State())
	assert.Zero(t, client.sent)
}

// stubSource resolves or fails after an optional delay.
type stubSource struct {
	mint  solana.PublicKey
	err   error
	delay time.Duration
}

func (s *stubSource) Wait(ctx context.Context) (solana.PublicKey, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return solana.PublicKey{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.mint, s.err
}

func TestLaunchRaceSurvivesPollFailure(t *testing.T) {
	client := &fakeClient{balance: 10_000_000_000}
	client.arm()
	mint := solana.NewWallet().PublicKey()
	r := newTestRunner(t, client, 2, Options{
		Params: Params{BuyLamports: 100_000_000, Slippage: 0.05},
		Poll:   &stubSource{err: errors.New("rpc poller down")},
		Push:   &stubSource{mint: mint, delay: 20 * time.Millisecond},
	})

	done := make(chan error, 1)
	go func() {
		done <- r.Run(context.Background(), mint)
	}()

	// The push detector must still win after the poller drops out.
	require.Eventually(t, func() bool {
		return r.State() == StateRunning
	}, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, StateStopped, r.State())
}

func TestLaunchRaceFailsWhenAllDetectorsFail(t *testing.T) {
	client := &fakeClient{balance: 10_000_000_000}
	r := newTestRunner(t, client, 2, Options{
		Params: Params{BuyLamports: 100_000_000, Slippage: 0.05},
		Poll:   &stubSource{err: errors.New("rpc poller down")},
		Push:   &stubSource{err: errors.New("subscription dropped")},
	})

	err := r.Run(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.Zero(t, client.sent)
	assert.Equal(t, StateStopped, r.State())
}

func TestPollingSourceResolvesWhenCurveAppears(t *testing.T) {
	client := &fakeClient{}
	mint := solana.NewWallet().PublicKey()
	src := &PollingSource{Client: client, Mint: mint, Delay: 5 * time.Millisecond}

	go func() {
		time.Sleep(20 * time.Millisecond)
		client.arm()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := src.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, mint, got)
}

func TestPollingSourceHonoursCancellation(t *testing.T) {
	client := &fakeClient{}
	src := &PollingSource{Client: client, Mint: solana.NewWallet().PublicKey(), Delay: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
