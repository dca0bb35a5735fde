// =============================
// File: internal/solbc/solbc.go
// =============================
package solbc

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var ErrAccountNotFound = errors.New("account not found")

// MemcmpFilter is one byte-equality filter for program account searches.
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// FoundAccount is one program-account search hit.
type FoundAccount struct {
	Address solana.PublicKey
	Data    []byte
}

// SendOptions controls transaction submission.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// Client is the blockchain collaborator the trading core talks to. Fakes
// implement it in tests.
type Client interface {
	GetAccountBytes(ctx context.Context, pubkey solana.PublicKey) ([]byte, error)
	GetMultipleAccountBytes(ctx context.Context, pubkeys []solana.PublicKey) ([][]byte, error)
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
	GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error)
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts SendOptions) (solana.Signature, error)
	WaitForConfirmation(ctx context.Context, signature solana.Signature) error
	SearchAccounts(ctx context.Context, programID solana.PublicKey, filters []MemcmpFilter) ([]FoundAccount, error)
}
