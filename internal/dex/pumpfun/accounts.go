// =============================
// File: internal/dex/pumpfun/accounts.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// CurveAddresses are the derived addresses for one mint. They never change
// for the lifetime of the token, so they are computed once and reused.
type CurveAddresses struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	CreatorVault           solana.PublicKey
	Metadata               solana.PublicKey
}

// DeriveBondingCurve derives the curve PDA for a mint.
func DeriveBondingCurve(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedBondingCurve), mint.Bytes()},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive bonding curve: %w", err)
	}
	return pda, nil
}

// DeriveCreatorVault derives the vault PDA that collects creator fees.
func DeriveCreatorVault(creator solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedCreatorVault), creator.Bytes()},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive creator vault: %w", err)
	}
	return pda, nil
}

// DeriveMetadata derives the token metadata PDA.
func DeriveMetadata(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedMetadata), MetadataProgramID.Bytes(), mint.Bytes()},
		MetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata: %w", err)
	}
	return pda, nil
}

// DeriveCurveAddresses computes every per-mint address up front.
func DeriveCurveAddresses(mint, creator solana.PublicKey) (*CurveAddresses, error) {
	bondingCurve, err := DeriveBondingCurve(mint)
	if err != nil {
		return nil, err
	}
	associatedBondingCurve, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive bonding curve ATA: %w", err)
	}
	creatorVault, err := DeriveCreatorVault(creator)
	if err != nil {
		return nil, err
	}
	metadata, err := DeriveMetadata(mint)
	if err != nil {
		return nil, err
	}
	return &CurveAddresses{
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associatedBondingCurve,
		CreatorVault:           creatorVault,
		Metadata:               metadata,
	}, nil
}
