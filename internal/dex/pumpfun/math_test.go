// =============================
// File: internal/dex/pumpfun/math_test.go
// =============================
package pumpfun

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshState() *CurveState {
	return DefaultCurveState(solana.PublicKey{})
}

func TestComputeBuyOutputFreshCurve(t *testing.T) {
	// 0.5 SOL against seeded reserves, 1% fee off the input first.
	out, err := ComputeBuyOutput(500_000_000, freshState())
	require.NoError(t, err)
	assert.Equal(t, uint64(17_417_117_560_255), out)
}

func TestBuyThenSellNeverProfits(t *testing.T) {
	amounts := []uint64{1_000_000, 50_000_000, 500_000_000, 5_000_000_000}
	for _, solIn := range amounts {
		state := freshState()
		tokens, err := ComputeBuyOutput(solIn, state)
		require.NoError(t, err)

		state.ApplyBuy(SolAfterFee(solIn), tokens)
		solBack, err := ComputeSellOutput(tokens, state)
		require.NoError(t, err)

		assert.Less(t, solBack, solIn, "round trip of %d lamports must lose to fees and rounding", solIn)
	}
}

func TestComputeSellOutput(t *testing.T) {
	out, err := ComputeSellOutput(1_000_000_000_000, freshState())
	require.NoError(t, err)
	assert.Equal(t, uint64(27_653_631), out)
}

func TestBuyRoundingBias(t *testing.T) {
	// The +1 on the recomputed token reserve means two tiny sequential
	// buys never yield more than one buy of the combined size.
	state := freshState()
	a, err := ComputeBuyOutput(10_000_000, state)
	require.NoError(t, err)
	state.ApplyBuy(SolAfterFee(10_000_000), a)
	b, err := ComputeBuyOutput(10_000_000, state)
	require.NoError(t, err)

	combined, err := ComputeBuyOutput(20_000_000, freshState())
	require.NoError(t, err)
	assert.LessOrEqual(t, a+b, combined+1)
}

func TestBuyEdgeCases(t *testing.T) {
	_, err := ComputeBuyOutput(0, freshState())
	assert.ErrorIs(t, err, ErrDustAmount)

	// One lamport nets zero tokens after the fee floor.
	_, err = ComputeBuyOutput(1, freshState())
	assert.ErrorIs(t, err, ErrDustAmount)

	done := freshState()
	done.Complete = true
	_, err = ComputeBuyOutput(1_000_000, done)
	assert.ErrorIs(t, err, ErrCurveComplete)

	empty := &CurveState{}
	_, err = ComputeBuyOutput(1_000_000, empty)
	assert.ErrorIs(t, err, ErrZeroReserves)
}

func TestSellEdgeCases(t *testing.T) {
	_, err := ComputeSellOutput(0, freshState())
	assert.ErrorIs(t, err, ErrDustAmount)

	done := freshState()
	done.Complete = true
	_, err = ComputeSellOutput(1_000_000, done)
	assert.ErrorIs(t, err, ErrCurveComplete)
}

func TestBuyCappedByRealReserves(t *testing.T) {
	state := freshState()
	state.RealTokenReserves = 1_000_000

	out, err := ComputeBuyOutput(10_000_000_000, state)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), out)
}

func TestApplySlippage(t *testing.T) {
	up, err := ApplySlippageUp(100, 0.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), up)

	down, err := ApplySlippageDown(100, 0.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), down)
}

func TestApplySlippageRange(t *testing.T) {
	for _, bad := range []float64{0, -0.1, 1.5} {
		_, err := ApplySlippageUp(100, bad)
		assert.Error(t, err, "slippage %v must be rejected", bad)
		_, err = ApplySlippageDown(100, bad)
		assert.Error(t, err, "slippage %v must be rejected", bad)
	}

	// Full slippage is the inclusive maximum on the cost ceiling only.
	up, err := ApplySlippageUp(100, 1.0)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), up)

	// A proceeds floor of zero is no floor at all.
	_, err = ApplySlippageDown(100, 1.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestPriceAndMarketCap(t *testing.T) {
	state := freshState()

	// 30 SOL over 1.073e9 whole tokens.
	price := PriceSOL(state)
	expected := decimal.NewFromInt(30).Div(decimal.NewFromInt(1_073_000_000))
	assert.True(t, price.Sub(expected).Abs().LessThan(decimal.New(1, -18)),
		"price %s vs %s", price, expected)

	mcap := MarketCapSOL(state)
	assert.True(t, mcap.GreaterThan(decimal.NewFromInt(27)))
	assert.True(t, mcap.LessThan(decimal.NewFromInt(29)))

	usd := MarketCapUSD(state, decimal.NewFromInt(150))
	assert.True(t, usd.GreaterThan(decimal.NewFromInt(4000)))
}

func TestApplyBuyMutation(t *testing.T) {
	state := freshState()
	tokens, err := ComputeBuyOutput(500_000_000, state)
	require.NoError(t, err)

	afterFee := SolAfterFee(500_000_000)
	state.ApplyBuy(afterFee, tokens)

	assert.Equal(t, InitialVirtualSolReserves+afterFee, state.VirtualSolReserves)
	assert.Equal(t, uint64(InitialVirtualTokenReserves)-tokens, state.VirtualTokenReserves)
	assert.Equal(t, uint64(InitialRealTokenReserves)-tokens, state.RealTokenReserves)
	assert.Equal(t, afterFee, state.RealSolReserves)
}
