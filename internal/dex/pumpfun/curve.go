// =============================
// File: internal/dex/pumpfun/curve.go
// =============================
package pumpfun

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ekomarov/swarm-bot/internal/layout"
	"github.com/ekomarov/swarm-bot/internal/solbc"
)

// CurveState is the decoded bonding curve account.
type CurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              solana.PublicKey
}

// curveLayout covers the original account; curveLayoutWithCreator adds the
// creator key appended by newer program versions.
var curveLayout = layout.New(
	layout.Discriminator("discriminator", CurveDiscriminator),
	layout.U64LE("virtual_token_reserves"),
	layout.U64LE("virtual_sol_reserves"),
	layout.U64LE("real_token_reserves"),
	layout.U64LE("real_sol_reserves"),
	layout.U64LE("token_total_supply"),
	layout.Bool("complete"),
)

var curveLayoutWithCreator = layout.New(
	layout.Discriminator("discriminator", CurveDiscriminator),
	layout.U64LE("virtual_token_reserves"),
	layout.U64LE("virtual_sol_reserves"),
	layout.U64LE("real_token_reserves"),
	layout.U64LE("real_sol_reserves"),
	layout.U64LE("token_total_supply"),
	layout.Bool("complete"),
	layout.PublicKey("creator"),
)

// DecodeCurveState parses raw bonding curve account data.
func DecodeCurveState(data []byte) (*CurveState, error) {
	l := curveLayout
	if len(data) >= curveLayoutWithCreator.Size() {
		l = curveLayoutWithCreator
	}
	rec, err := l.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bonding curve: %w", err)
	}
	return &CurveState{
		VirtualTokenReserves: rec.U64("virtual_token_reserves"),
		VirtualSolReserves:   rec.U64("virtual_sol_reserves"),
		RealTokenReserves:    rec.U64("real_token_reserves"),
		RealSolReserves:      rec.U64("real_sol_reserves"),
		TokenTotalSupply:     rec.U64("token_total_supply"),
		Complete:             rec.Bool("complete"),
		Creator:              rec.PublicKey("creator"),
	}, nil
}

// FetchCurveState reads and decodes the bonding curve account for a mint.
func FetchCurveState(ctx context.Context, client solbc.Client, mint solana.PublicKey) (*CurveState, error) {
	bondingCurve, err := DeriveBondingCurve(mint)
	if err != nil {
		return nil, err
	}
	data, err := client.GetAccountBytes(ctx, bondingCurve)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bonding curve %s: %w", bondingCurve, err)
	}
	return DecodeCurveState(data)
}

// DefaultCurveState returns the reserves a token launches with, before any
// trade has touched it.
func DefaultCurveState(creator solana.PublicKey) *CurveState {
	return &CurveState{
		VirtualTokenReserves: InitialVirtualTokenReserves,
		VirtualSolReserves:   InitialVirtualSolReserves,
		RealTokenReserves:    InitialRealTokenReserves,
		RealSolReserves:      0,
		TokenTotalSupply:     TokenTotalSupply,
		Creator:              creator,
	}
}

// ApplyBuy mutates the state as the program would after a buy. Used to plan
// sequential buys inside one bundle before anything lands.
func (c *CurveState) ApplyBuy(solAfterFee, tokensOut uint64) {
	c.VirtualSolReserves += solAfterFee
	c.RealSolReserves += solAfterFee
	c.VirtualTokenReserves -= tokensOut
	if tokensOut >= c.RealTokenReserves {
		c.RealTokenReserves = 0
	} else {
		c.RealTokenReserves -= tokensOut
	}
}

// ApplySell mutates the state as the program would after a sell.
func (c *CurveState) ApplySell(tokensIn, solOut uint64) {
	c.VirtualTokenReserves += tokensIn
	c.RealTokenReserves += tokensIn
	if solOut >= c.VirtualSolReserves {
		c.VirtualSolReserves = 0
	} else {
		c.VirtualSolReserves -= solOut
	}
	if solOut >= c.RealSolReserves {
		c.RealSolReserves = 0
	} else {
		c.RealSolReserves -= solOut
	}
}
