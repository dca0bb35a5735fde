// =============================
// File: internal/dex/pumpfun/math.go
// =============================
package pumpfun

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrCurveComplete = errors.New("bonding curve is complete")
	ErrZeroReserves  = errors.New("bonding curve has zero reserves")
	ErrDustAmount    = errors.New("amount too small to produce output")
)

// MaxSlippage is the largest accepted slippage fraction (100%).
const MaxSlippage = 1.0

// ComputeBuyOutput returns the tokens received for solIn lamports. The fee
// comes off the input first; the recomputed token reserve carries the
// program's +1 rounding term, so output rounds in the protocol's favor.
func ComputeBuyOutput(solIn uint64, c *CurveState) (uint64, error) {
	if solIn == 0 {
		return 0, ErrDustAmount
	}
	if c.Complete {
		return 0, ErrCurveComplete
	}
	if c.VirtualSolReserves == 0 || c.VirtualTokenReserves == 0 {
		return 0, ErrZeroReserves
	}

	solAfterFee := new(big.Int).Mul(
		new(big.Int).SetUint64(solIn),
		big.NewInt(10_000-FeeBasisPoints),
	)
	solAfterFee.Div(solAfterFee, big.NewInt(10_000))

	vSol := new(big.Int).SetUint64(c.VirtualSolReserves)
	vToken := new(big.Int).SetUint64(c.VirtualTokenReserves)

	k := new(big.Int).Mul(vSol, vToken)
	newSol := new(big.Int).Add(vSol, solAfterFee)
	newToken := new(big.Int).Div(k, newSol)
	newToken.Add(newToken, big.NewInt(1))

	tokensOut := new(big.Int).Sub(vToken, newToken)
	if tokensOut.Sign() <= 0 {
		return 0, ErrDustAmount
	}
	out := tokensOut.Uint64()
	if c.RealTokenReserves > 0 && out > c.RealTokenReserves {
		out = c.RealTokenReserves
	}
	return out, nil
}

// SolAfterFee returns the portion of a buy that actually enters the curve.
func SolAfterFee(solIn uint64) uint64 {
	after := new(big.Int).Mul(
		new(big.Int).SetUint64(solIn),
		big.NewInt(10_000-FeeBasisPoints),
	)
	after.Div(after, big.NewInt(10_000))
	return after.Uint64()
}

// ComputeSellOutput returns net lamports for selling tokenIn tokens. The
// gross payout floors first, then the fee floors off the gross.
func ComputeSellOutput(tokenIn uint64, c *CurveState) (uint64, error) {
	if tokenIn == 0 {
		return 0, ErrDustAmount
	}
	if c.Complete {
		return 0, ErrCurveComplete
	}
	if c.VirtualSolReserves == 0 || c.VirtualTokenReserves == 0 {
		return 0, ErrZeroReserves
	}

	tIn := new(big.Int).SetUint64(tokenIn)
	vSol := new(big.Int).SetUint64(c.VirtualSolReserves)
	vToken := new(big.Int).SetUint64(c.VirtualTokenReserves)

	gross := new(big.Int).Mul(tIn, vSol)
	gross.Div(gross, new(big.Int).Add(vToken, tIn))

	fee := new(big.Int).Mul(gross, big.NewInt(FeeBasisPoints))
	fee.Div(fee, big.NewInt(10_000))

	solOut := new(big.Int).Sub(gross, fee)
	if solOut.Sign() <= 0 {
		return 0, ErrDustAmount
	}
	return solOut.Uint64(), nil
}

// ApplySlippageUp inflates a cost ceiling by the slippage fraction.
func ApplySlippageUp(amount uint64, slippage float64) (uint64, error) {
	bps, err := slippageBps(slippage)
	if err != nil {
		return 0, err
	}
	out := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(10_000+bps))
	out.Div(out, big.NewInt(10_000))
	return out.Uint64(), nil
}

// ApplySlippageDown deflates an output floor by the slippage fraction.
// Full slippage would zero the floor, so the down side rejects >= 1.
func ApplySlippageDown(amount uint64, slippage float64) (uint64, error) {
	if slippage >= 1 {
		return 0, fmt.Errorf("slippage %v out of range (0, 1) for an output floor", slippage)
	}
	bps, err := slippageBps(slippage)
	if err != nil {
		return 0, err
	}
	out := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(10_000-bps))
	out.Div(out, big.NewInt(10_000))
	return out.Uint64(), nil
}

func slippageBps(slippage float64) (int64, error) {
	if slippage <= 0 || slippage > MaxSlippage {
		return 0, fmt.Errorf("slippage %v out of range (0, %v]", slippage, MaxSlippage)
	}
	return int64(math.Round(slippage * 10_000)), nil
}

// PriceSOL returns the spot price of one whole token in SOL. Display only;
// trade amounts never pass through here.
func PriceSOL(c *CurveState) decimal.Decimal {
	if c.VirtualTokenReserves == 0 {
		return decimal.Zero
	}
	sol := decimal.NewFromUint64(c.VirtualSolReserves).Shift(-SolDecimals)
	tokens := decimal.NewFromUint64(c.VirtualTokenReserves).Shift(-TokenDecimals)
	return sol.Div(tokens)
}

// MarketCapSOL returns the fully diluted market cap in SOL.
func MarketCapSOL(c *CurveState) decimal.Decimal {
	supply := decimal.NewFromUint64(c.TokenTotalSupply).Shift(-TokenDecimals)
	return PriceSOL(c).Mul(supply)
}

// MarketCapUSD converts the market cap given an external SOL/USD price.
func MarketCapUSD(c *CurveState, solPriceUSD decimal.Decimal) decimal.Decimal {
	return MarketCapSOL(c).Mul(solPriceUSD)
}
