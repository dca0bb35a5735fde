// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet is one signing identity, real or ephemeral.
type Wallet struct {
	ID         string
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	IsReserve  bool
	ATACache   map[string]solana.PublicKey
}

// NewWallet builds a wallet from a base58-encoded 64-byte private key.
func NewWallet(name, privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		ID:         privateKey.PublicKey().String(),
		Name:       name,
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ATACache:   make(map[string]solana.PublicKey),
	}, nil
}

// Generate creates n fresh ephemeral wallets named with the given prefix.
func Generate(prefix string, n int) ([]*Wallet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid wallet count: %d", n)
	}
	wallets := make([]*Wallet, 0, n)
	for i := 0; i < n; i++ {
		acc := solana.NewWallet()
		wallets = append(wallets, &Wallet{
			ID:         acc.PublicKey().String(),
			Name:       fmt.Sprintf("%s_%d", prefix, i),
			PrivateKey: acc.PrivateKey,
			PublicKey:  acc.PublicKey(),
			ATACache:   make(map[string]solana.PublicKey),
		})
	}
	return wallets, nil
}

// SignTransaction signs with this wallet's key only.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// SignWith signs a transaction that needs several of the given wallets.
func SignWith(tx *solana.Transaction, wallets ...*Wallet) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for _, w := range wallets {
			if key.Equals(w.PublicKey) {
				return &w.PrivateKey
			}
		}
		return nil
	})
	return err
}

// GetATA returns the associated token account for a mint, cached after the
// first derivation.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()
	if ata, ok := w.ATACache[mintStr]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ATACache[mintStr] = ata
	return ata, nil
}

// PrecomputeATAs warms the ATA cache for a list of mints.
func (w *Wallet) PrecomputeATAs(mints []solana.PublicKey) error {
	for _, mint := range mints {
		if _, err := w.GetATA(mint); err != nil {
			return fmt.Errorf("failed to precompute ATA for mint %s: %w", mint.String(), err)
		}
	}
	return nil
}

// CreateAssociatedTokenAccountIdempotentInstruction builds the idempotent
// ATA-create instruction (safe to include even when the account exists).
func CreateAssociatedTokenAccountIdempotentInstruction(payer, owner, mint solana.PublicKey) solana.Instruction {
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)

	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SysVarRentPubkey, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // instruction 1 = create idempotent
	)
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
