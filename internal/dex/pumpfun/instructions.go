// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// BuildBuyInstruction builds the buy instruction. amount is the exact token
// output, maxSolCost the slippage-inflated spend ceiling.
func BuildBuyInstruction(
	addrs *CurveAddresses,
	userWallet *wallet.Wallet,
	amount, maxSolCost uint64,
) (solana.Instruction, error) {
	data := make([]byte, 0, 24)
	data = append(data, BuyDiscriminator...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint64(data, maxSolCost)

	associatedUser, err := userWallet.GetATA(addrs.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// Account list must be in the exact order expected by the program.
	insAccounts := []*solana.AccountMeta{
		{PublicKey: GlobalAccount, IsSigner: false, IsWritable: false},
		{PublicKey: FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: addrs.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: addrs.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: addrs.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: userWallet.PublicKey, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: addrs.CreatorVault, IsSigner: false, IsWritable: true},
		{PublicKey: EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: ProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(ProgramID, insAccounts, data), nil
}

// BuildSellInstruction builds the sell instruction. amount is the token
// input, minSolOutput the slippage-deflated proceeds floor.
func BuildSellInstruction(
	addrs *CurveAddresses,
	userWallet *wallet.Wallet,
	amount, minSolOutput uint64,
) (solana.Instruction, error) {
	data := make([]byte, 0, 24)
	data = append(data, SellDiscriminator...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint64(data, minSolOutput)

	associatedUser, err := userWallet.GetATA(addrs.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// Same list as buy except creator vault swaps ahead of the token program.
	insAccounts := []*solana.AccountMeta{
		{PublicKey: GlobalAccount, IsSigner: false, IsWritable: false},
		{PublicKey: FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: addrs.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: addrs.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: addrs.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: userWallet.PublicKey, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: addrs.CreatorVault, IsSigner: false, IsWritable: true},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: ProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(ProgramID, insAccounts, data), nil
}

// TokenMeta is the metadata written at token creation.
type TokenMeta struct {
	Name   string
	Symbol string
	URI    string
}

// BuildCreateInstruction builds the create instruction. The mint must sign
// alongside the creator.
func BuildCreateInstruction(
	mint solana.PublicKey,
	creator *wallet.Wallet,
	meta TokenMeta,
) (solana.Instruction, error) {
	if meta.Name == "" || meta.Symbol == "" {
		return nil, fmt.Errorf("token name and symbol are required")
	}

	addrs, err := DeriveCurveAddresses(mint, creator.PublicKey)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 8+4+len(meta.Name)+4+len(meta.Symbol)+4+len(meta.URI)+32)
	data = append(data, CreateDiscriminator...)
	data = appendBorshString(data, meta.Name)
	data = appendBorshString(data, meta.Symbol)
	data = appendBorshString(data, meta.URI)
	data = append(data, creator.PublicKey.Bytes()...)

	insAccounts := []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: true, IsWritable: true},
		{PublicKey: MintAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: addrs.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: addrs.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: GlobalAccount, IsSigner: false, IsWritable: false},
		{PublicKey: MetadataProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: addrs.Metadata, IsSigner: false, IsWritable: true},
		{PublicKey: creator.PublicKey, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: ProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(ProgramID, insAccounts, data), nil
}

func appendBorshString(data []byte, s string) []byte {
	data = binary.LittleEndian.AppendUint32(data, uint32(len(s)))
	return append(data, s...)
}
