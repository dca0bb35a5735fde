// =============================
// File: internal/dex/pumpswap/pool_test.go
// =============================
package pumpswap

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePool(p *Pool, withCoinCreator bool) []byte {
	data := append([]byte{}, PoolDiscriminator...)
	data = append(data, p.PoolBump)
	data = binary.LittleEndian.AppendUint16(data, p.Index)
	for _, pk := range []solana.PublicKey{
		p.Creator, p.BaseMint, p.QuoteMint,
		p.LPMint, p.PoolBaseTokenAccount, p.PoolQuoteTokenAccount,
	} {
		data = append(data, pk.Bytes()...)
	}
	data = binary.LittleEndian.AppendUint64(data, p.LPSupply)
	if withCoinCreator {
		data = append(data, p.CoinCreator.Bytes()...)
	}
	return data
}

func randomPool() *Pool {
	return &Pool{
		PoolBump:              254,
		Index:                 1,
		Creator:               solana.NewWallet().PublicKey(),
		BaseMint:              solana.NewWallet().PublicKey(),
		QuoteMint:             solana.WrappedSol,
		LPMint:                solana.NewWallet().PublicKey(),
		PoolBaseTokenAccount:  solana.NewWallet().PublicKey(),
		PoolQuoteTokenAccount: solana.NewWallet().PublicKey(),
		LPSupply:              42_000_000,
		CoinCreator:           solana.NewWallet().PublicKey(),
	}
}

func TestParsePool(t *testing.T) {
	want := randomPool()

	got, err := ParsePool(encodePool(want, true))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParsePoolWithoutCoinCreator(t *testing.T) {
	want := randomPool()

	got, err := ParsePool(encodePool(want, false))
	require.NoError(t, err)
	assert.True(t, got.CoinCreator.IsZero())
	assert.Equal(t, want.BaseMint, got.BaseMint)
	assert.Equal(t, want.LPSupply, got.LPSupply)
}

func TestParsePoolRejectsBadDiscriminator(t *testing.T) {
	data := encodePool(randomPool(), true)
	data[0] ^= 0xff

	_, err := ParsePool(data)
	assert.Error(t, err)
}

func TestPoolMemcmpOffsets(t *testing.T) {
	p := randomPool()
	data := encodePool(p, true)

	assert.Equal(t, p.BaseMint.Bytes(), data[offsetBaseMint:offsetBaseMint+32])
	assert.Equal(t, p.QuoteMint.Bytes(), data[offsetQuoteMint:offsetQuoteMint+32])
}

func TestQuote(t *testing.T) {
	pool := &PoolInfo{
		BaseReserves:     1_000_000_000_000,
		QuoteReserves:    50_000_000_000,
		LPFeeBasisPoints: 20,
		ProtocolFeeBPS:   5,
	}

	// 1 SOL in: fee 25 bps off input, then constant product.
	out, err := Quote(pool, 1_000_000_000, false)
	require.NoError(t, err)

	inAfterFee := uint64(1_000_000_000) * (10_000 - 25) / 10_000
	expected := uint64(float64(1_000_000_000_000) * float64(inAfterFee) / float64(50_000_000_000+inAfterFee))
	assert.InDelta(t, float64(expected), float64(out), 2)

	// Larger input moves the price against the trader.
	small, err := Quote(pool, 1_000_000, false)
	require.NoError(t, err)
	large, err := Quote(pool, 10_000_000_000, false)
	require.NoError(t, err)
	assert.Greater(t, float64(small)/1e6, float64(large)/1e10)

	_, err = Quote(pool, 0, false)
	assert.Error(t, err)

	empty := &PoolInfo{}
	_, err = Quote(empty, 1, false)
	assert.Error(t, err)
}

func TestQuoteRoundTripLoses(t *testing.T) {
	pool := &PoolInfo{
		BaseReserves:     1_000_000_000_000,
		QuoteReserves:    50_000_000_000,
		LPFeeBasisPoints: 20,
		ProtocolFeeBPS:   5,
	}

	baseOut, err := Quote(pool, 2_000_000_000, false)
	require.NoError(t, err)

	// Apply the buy to the reserves, then sell back.
	pool.QuoteReserves += 2_000_000_000
	pool.BaseReserves -= baseOut
	quoteBack, err := Quote(pool, baseOut, true)
	require.NoError(t, err)

	assert.Less(t, quoteBack, uint64(2_000_000_000))
}
