// =============================
// File: internal/batch/batch.go
// =============================
// Package batch fans one operation out over many wallets. Failures are
// collected per wallet; one wallet failing never aborts its siblings.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// Failure records one wallet that did not complete.
type Failure struct {
	Wallet *wallet.Wallet
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("wallet %s: %v", f.Wallet.Name, f.Err)
}

// Chunk splits wallets into groups of at most maxPerTx, preserving order.
// A wallet never spans two groups.
func Chunk(wallets []*wallet.Wallet, maxPerTx int) [][]*wallet.Wallet {
	if maxPerTx <= 0 {
		maxPerTx = 1
	}
	var chunks [][]*wallet.Wallet
	for start := 0; start < len(wallets); start += maxPerTx {
		end := start + maxPerTx
		if end > len(wallets) {
			end = len(wallets)
		}
		chunks = append(chunks, wallets[start:end])
	}
	return chunks
}

// ChunkBundles groups transaction chunks into bundles of at most
// maxPerBundle, preserving order.
func ChunkBundles[T any](chunks []T, maxPerBundle int) [][]T {
	if maxPerBundle <= 0 {
		maxPerBundle = 1
	}
	var bundles [][]T
	for start := 0; start < len(chunks); start += maxPerBundle {
		end := start + maxPerBundle
		if end > len(chunks) {
			end = len(chunks)
		}
		bundles = append(bundles, chunks[start:end])
	}
	return bundles
}

// Operation runs one wallet's share of the batch.
type Operation func(ctx context.Context, w *wallet.Wallet) error

// Orchestrator fans per-wallet operations out concurrently with a pacing
// delay between submissions.
type Orchestrator struct {
	logger *zap.Logger
	delay  time.Duration
}

func NewOrchestrator(logger *zap.Logger, delay time.Duration) *Orchestrator {
	return &Orchestrator{
		logger: logger.Named("batch"),
		delay:  delay,
	}
}

// Run launches op for every wallet and awaits them collectively. Each
// wallet's operation is independent; one failing never aborts its
// siblings. The pacing delay spaces out submissions, not completions.
// Context cancellation stops launching and fails the wallets never
// started.
func (o *Orchestrator) Run(ctx context.Context, wallets []*wallet.Wallet, op Operation) []Failure {
	var (
		mu       sync.Mutex
		failures []Failure
		g        errgroup.Group
	)
	for i, w := range wallets {
		if i > 0 && o.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			mu.Lock()
			for _, rest := range wallets[i:] {
				failures = append(failures, Failure{Wallet: rest, Err: err})
			}
			mu.Unlock()
			break
		}
		g.Go(func() error {
			if err := op(ctx, w); err != nil {
				o.logger.Error("batch item failed",
					zap.String("wallet", w.Name),
					zap.Int("index", i),
					zap.Error(err))
				mu.Lock()
				failures = append(failures, Failure{Wallet: w, Err: err})
				mu.Unlock()
				return nil
			}
			o.logger.Info("batch item completed",
				zap.String("wallet", w.Name),
				zap.Int("index", i),
				zap.Int("total", len(wallets)))
			return nil
		})
	}
	g.Wait()
	if len(failures) > 0 {
		o.logger.Warn("batch finished with failures",
			zap.Int("failed", len(failures)),
			zap.Int("total", len(wallets)))
	}
	return failures
}
