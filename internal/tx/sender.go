// =============================
// File: internal/tx/sender.go
// =============================
package tx

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/jito"
	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// SendOpts tunes one submission.
type SendOpts struct {
	Priority      Priority
	SkipPreflight bool
	// ProtectionTip routes the transaction through the bundle relay with
	// this tip instead of the public mempool. Zero means normal send.
	ProtectionTip uint64
	// LookupTables maps table addresses to their resolved keys.
	LookupTables map[solana.PublicKey]solana.PublicKeySlice
	// Confirm blocks until the signature is confirmed.
	Confirm bool
}

// RetryOpts bounds RetrySend.
type RetryOpts struct {
	MaxAttempts uint
	Delay       time.Duration
}

// Sender builds, signs and submits transactions.
type Sender struct {
	client solbc.Client
	relay  jito.Relay
	logger *zap.Logger
}

func NewSender(client solbc.Client, relay jito.Relay, logger *zap.Logger) *Sender {
	return &Sender{
		client: client,
		relay:  relay,
		logger: logger.Named("tx"),
	}
}

// Build assembles and signs a transaction: compute-budget instructions
// first, then the payload. The first signer pays.
func (s *Sender) Build(ctx context.Context, instructions []solana.Instruction, signers []*wallet.Wallet, opts SendOpts) (*solana.Transaction, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("no signers")
	}
	priorityIxs, err := PriorityInstructions(opts.Priority)
	if err != nil {
		return nil, err
	}
	all := make([]solana.Instruction, 0, len(priorityIxs)+len(instructions)+1)
	all = append(all, priorityIxs...)
	all = append(all, instructions...)
	if opts.ProtectionTip > 0 {
		all = append(all, jito.TipInstruction(signers[0].PublicKey, opts.ProtectionTip))
	}

	blockhash, err := s.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	txOpts := []solana.TransactionOption{solana.TransactionPayer(signers[0].PublicKey)}
	if len(opts.LookupTables) > 0 {
		txOpts = append(txOpts, solana.TransactionAddressTables(opts.LookupTables))
	}
	transaction, err := solana.NewTransaction(all, blockhash, txOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := wallet.SignWith(transaction, signers...); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return transaction, nil
}

// Send submits one transaction. With a protection tip it goes through the
// bundle relay as a single-transaction bundle; otherwise through RPC.
func (s *Sender) Send(ctx context.Context, instructions []solana.Instruction, signers []*wallet.Wallet, opts SendOpts) (solana.Signature, error) {
	transaction, err := s.Build(ctx, instructions, signers, opts)
	if err != nil {
		return solana.Signature{}, err
	}

	if opts.ProtectionTip > 0 {
		if s.relay == nil {
			return solana.Signature{}, fmt.Errorf("protection tip set but no bundle relay configured")
		}
		bundleID, err := s.relay.SendBundle(ctx, []*solana.Transaction{transaction})
		if err != nil {
			return solana.Signature{}, fmt.Errorf("protected send failed: %w", err)
		}
		s.logger.Info("protected transaction submitted", zap.String("bundle_id", bundleID))
		sig := transaction.Signatures[0]
		if opts.Confirm {
			if err := s.client.WaitForConfirmation(ctx, sig); err != nil {
				return sig, err
			}
		}
		return sig, nil
	}

	sig, err := s.client.SendTransaction(ctx, transaction, solbc.SendOptions{
		SkipPreflight: opts.SkipPreflight,
	})
	if err != nil {
		return solana.Signature{}, err
	}
	s.logger.Debug("transaction submitted", zap.String("signature", sig.String()))
	if opts.Confirm {
		if err := s.client.WaitForConfirmation(ctx, sig); err != nil {
			return sig, err
		}
	}
	return sig, nil
}

// RetrySend retries a submission with a fixed attempt budget and delay.
// The payload is rebuilt each attempt from the payer's live balance, so a
// partially landed prior attempt cannot cause overspend.
func (s *Sender) RetrySend(ctx context.Context, payer *wallet.Wallet, buildPayload func(spendable uint64) ([]solana.Instruction, error), signers []*wallet.Wallet, opts SendOpts, retry RetryOpts) (solana.Signature, error) {
	if retry.MaxAttempts == 0 {
		retry.MaxAttempts = 3
	}
	if retry.Delay <= 0 {
		retry.Delay = 500 * time.Millisecond
	}

	attempt := 0
	operation := func() (solana.Signature, error) {
		attempt++
		balance, err := s.client.GetBalance(ctx, payer.PublicKey)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("failed to read payer balance: %w", err)
		}
		instructions, err := buildPayload(balance)
		if err != nil {
			return solana.Signature{}, backoff.Permanent(err)
		}
		sig, err := s.Send(ctx, instructions, signers, opts)
		if err != nil {
			s.logger.Warn("send attempt failed",
				zap.Int("attempt", attempt),
				zap.String("payer", payer.Name),
				zap.Error(err))
			return solana.Signature{}, err
		}
		return sig, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retry.Delay
	sig, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(retry.MaxAttempts),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send exhausted after %d attempts: %w", retry.MaxAttempts, err)
	}
	return sig, nil
}

// SendBundle builds one signed transaction per instruction group and
// submits them as a single atomic bundle. The tip transfer is appended to
// the last transaction only; the relay requires exactly one.
func (s *Sender) SendBundle(ctx context.Context, groups [][]solana.Instruction, signerGroups [][]*wallet.Wallet, tipPayer *wallet.Wallet, tipLamports uint64, opts SendOpts) (string, error) {
	if s.relay == nil {
		return "", fmt.Errorf("no bundle relay configured")
	}
	if len(groups) == 0 {
		return "", fmt.Errorf("empty bundle")
	}
	if len(groups) != len(signerGroups) {
		return "", fmt.Errorf("instruction groups and signer groups differ: %d vs %d", len(groups), len(signerGroups))
	}

	blockhash, err := s.client.GetRecentBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	txs := make([]*solana.Transaction, 0, len(groups))
	for i, group := range groups {
		signers := signerGroups[i]
		if len(signers) == 0 {
			return "", fmt.Errorf("bundle transaction %d has no signers", i)
		}
		priorityIxs, err := PriorityInstructions(opts.Priority)
		if err != nil {
			return "", err
		}
		all := append(priorityIxs, group...)
		if i == len(groups)-1 && tipLamports > 0 {
			tipFrom := signers[0].PublicKey
			if tipPayer != nil {
				tipFrom = tipPayer.PublicKey
				signers = append(signers, tipPayer)
			}
			all = append(all, jito.TipInstruction(tipFrom, tipLamports))
		}
		transaction, err := solana.NewTransaction(all, blockhash, solana.TransactionPayer(signers[0].PublicKey))
		if err != nil {
			return "", fmt.Errorf("failed to create bundle transaction %d: %w", i, err)
		}
		if err := wallet.SignWith(transaction, signers...); err != nil {
			return "", fmt.Errorf("failed to sign bundle transaction %d: %w", i, err)
		}
		txs = append(txs, transaction)
	}

	bundleID, err := s.relay.SendBundle(ctx, txs)
	if err != nil {
		return "", err
	}
	s.logger.Info("bundle submitted",
		zap.String("bundle_id", bundleID),
		zap.Int("txs", len(txs)))
	return bundleID, nil
}
