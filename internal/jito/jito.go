// =============================
// File: internal/jito/jito.go
// =============================
package jito

import (
	"context"
	"math/rand"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Relay submits transaction groups for atomic, ordered inclusion.
type Relay interface {
	// SendBundle submits up to 5 signed transactions as one bundle and
	// returns the relay's bundle id.
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
}

// Canonical tip accounts published by the block engine. A tip transfer to
// any one of them pays for bundle inclusion.
var tipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// RandomTipAccount picks a tip account; rotating spreads write locks.
func RandomTipAccount() solana.PublicKey {
	return tipAccounts[rand.Intn(len(tipAccounts))]
}

// TipInstruction builds the lamport transfer that pays the bundle tip.
func TipInstruction(from solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, RandomTipAccount()).Build()
}
