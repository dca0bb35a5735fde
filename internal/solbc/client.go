// =============================
// File: internal/solbc/client.go
// =============================
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// RPCClient adapts solana-go's JSON-RPC client to the Client interface.
type RPCClient struct {
	rpc    *rpc.Client
	logger *zap.Logger

	commitment     rpc.CommitmentType
	confirmPoll    time.Duration
	confirmTimeout time.Duration
}

func NewClient(rpcURL string, logger *zap.Logger) *RPCClient {
	return &RPCClient{
		rpc:            rpc.New(rpcURL),
		logger:         logger.Named("solbc"),
		commitment:     rpc.CommitmentConfirmed,
		confirmPoll:    500 * time.Millisecond,
		confirmTimeout: 30 * time.Second,
	}
}

// WithCommitment overrides the commitment level used for reads and
// account searches.
func (c *RPCClient) WithCommitment(commitment rpc.CommitmentType) *RPCClient {
	c.commitment = commitment
	return c
}

func (c *RPCClient) GetAccountBytes(ctx context.Context, pubkey solana.PublicKey) ([]byte, error) {
	result, err := c.rpc.GetAccountInfo(ctx, pubkey)
	if err != nil {
		// solana-go reports a missing account as its own sentinel.
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey)
		}
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil || result.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey)
	}
	return result.Value.Data.GetBinary(), nil
}

func (c *RPCClient) GetMultipleAccountBytes(ctx context.Context, pubkeys []solana.PublicKey) ([][]byte, error) {
	if len(pubkeys) == 0 {
		return nil, nil
	}
	res, err := c.rpc.GetMultipleAccountsWithOpts(ctx, pubkeys, &rpc.GetMultipleAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		c.logger.Debug("GetMultipleAccounts error", zap.Error(err))
		return nil, err
	}
	out := make([][]byte, len(pubkeys))
	for i, acc := range res.Value {
		if acc == nil || acc.Data == nil {
			continue
		}
		out[i] = acc.Data.GetBinary()
	}
	return out, nil
}

func (c *RPCClient) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, c.commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

func (c *RPCClient) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetTokenAccountBalance(ctx, tokenAccount, c.commitment)
	if err != nil {
		c.logger.Debug("GetTokenAccountBalance error",
			zap.String("account", tokenAccount.String()),
			zap.Error(err))
		return 0, err
	}
	if result == nil || result.Value == nil {
		return 0, fmt.Errorf("%w: token account %s", ErrAccountNotFound, tokenAccount)
	}
	amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token amount %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

func (c *RPCClient) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

func (c *RPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction, opts SendOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// WaitForConfirmation polls signature status until confirmed or finalized.
func (c *RPCClient) WaitForConfirmation(ctx context.Context, signature solana.Signature) error {
	ticker := time.NewTicker(c.confirmPoll)
	defer ticker.Stop()
	timeout := time.After(c.confirmTimeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("confirmation timeout for %s", signature)
		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, signature)
			if err != nil {
				c.logger.Warn("GetSignatureStatuses error", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on-chain: %v", signature, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
				status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
				return nil
			}
		}
	}
}

func (c *RPCClient) SearchAccounts(ctx context.Context, programID solana.PublicKey, filters []MemcmpFilter) ([]FoundAccount, error) {
	opts := rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	}
	for _, f := range filters {
		opts.Filters = append(opts.Filters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: f.Offset,
				Bytes:  f.Bytes,
			},
		})
	}
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, &opts)
	if err != nil {
		c.logger.Debug("GetProgramAccounts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}
	out := make([]FoundAccount, 0, len(accounts))
	for _, acc := range accounts {
		if acc == nil || acc.Account == nil || acc.Account.Data == nil {
			continue
		}
		out = append(out, FoundAccount{
			Address: acc.Pubkey,
			Data:    acc.Account.Data.GetBinary(),
		})
	}
	return out, nil
}

var _ Client = (*RPCClient)(nil)
