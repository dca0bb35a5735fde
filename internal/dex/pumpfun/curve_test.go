// =============================
// File: internal/dex/pumpfun/curve_test.go
// =============================
package pumpfun

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeCurve(c *CurveState, withCreator bool) []byte {
	data := append([]byte{}, CurveDiscriminator...)
	data = binary.LittleEndian.AppendUint64(data, c.VirtualTokenReserves)
	data = binary.LittleEndian.AppendUint64(data, c.VirtualSolReserves)
	data = binary.LittleEndian.AppendUint64(data, c.RealTokenReserves)
	data = binary.LittleEndian.AppendUint64(data, c.RealSolReserves)
	data = binary.LittleEndian.AppendUint64(data, c.TokenTotalSupply)
	if c.Complete {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	if withCreator {
		data = append(data, c.Creator.Bytes()...)
	}
	return data
}

func TestDecodeCurveState(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	want := &CurveState{
		VirtualTokenReserves: InitialVirtualTokenReserves,
		VirtualSolReserves:   InitialVirtualSolReserves,
		RealTokenReserves:    InitialRealTokenReserves,
		RealSolReserves:      12345,
		TokenTotalSupply:     TokenTotalSupply,
		Complete:             false,
		Creator:              creator,
	}

	got, err := DecodeCurveState(encodeCurve(want, true))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeCurveStateLegacyLayout(t *testing.T) {
	// Older accounts end at the complete flag.
	want := &CurveState{
		VirtualTokenReserves: 1,
		VirtualSolReserves:   2,
		RealTokenReserves:    3,
		RealSolReserves:      4,
		TokenTotalSupply:     5,
		Complete:             true,
	}

	got, err := DecodeCurveState(encodeCurve(want, false))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.Creator.IsZero())
}

func TestDecodeCurveStateRejectsBadHeader(t *testing.T) {
	data := encodeCurve(DefaultCurveState(solana.PublicKey{}), true)
	data[3] ^= 0xff

	_, err := DecodeCurveState(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header mismatch")
}

func TestDecodeCurveStateRejectsTruncated(t *testing.T) {
	data := encodeCurve(DefaultCurveState(solana.PublicKey{}), false)

	_, err := DecodeCurveState(data[:20])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer overflow")
}

func TestDeriveCurveAddressesDeterministic(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()

	a, err := DeriveCurveAddresses(mint, creator)
	require.NoError(t, err)
	b, err := DeriveCurveAddresses(mint, creator)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.False(t, a.BondingCurve.IsZero())
	assert.False(t, a.CreatorVault.IsZero())
	assert.False(t, a.Metadata.IsZero())
	assert.NotEqual(t, a.BondingCurve, a.AssociatedBondingCurve)
}
