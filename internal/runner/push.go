// =============================
// File: internal/runner/push.go
// =============================
package runner

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/dex/pumpfun"
)

// WSSource detects a launch through an account subscription on the
// mint's bonding curve. It resolves on the first notification that
// carries account data; the polling fallback covers curves created
// before the subscription was live.
type WSSource struct {
	URL    string
	Mint   solana.PublicKey
	Logger *zap.Logger
}

func (s *WSSource) Wait(ctx context.Context) (solana.PublicKey, error) {
	curve, err := pumpfun.DeriveBondingCurve(s.Mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	client, err := ws.Connect(ctx, s.URL)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("websocket connect failed: %w", err)
	}
	defer client.Close()

	sub, err := client.AccountSubscribe(curve, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("account subscribe failed: %w", err)
	}
	defer sub.Unsubscribe()

	if s.Logger != nil {
		s.Logger.Debug("subscribed to bonding curve",
			zap.String("curve", curve.String()))
	}

	for {
		notification, err := sub.Recv(ctx)
		if err != nil {
			return solana.PublicKey{}, err
		}
		if notification == nil || notification.Value.Data == nil {
			continue
		}
		return s.Mint, nil
	}
}

var _ LaunchSource = (*WSSource)(nil)
