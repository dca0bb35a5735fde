// =============================
// File: internal/layout/layout_test.go
// =============================
package layout

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDisc = []byte{0x17, 0xb7, 0xf8, 0x37, 0x60, 0xd8, 0xac, 0x60}

func testLayout() *Layout {
	return New(
		Discriminator("discriminator", testDisc),
		U64LE("virtual_token_reserves"),
		U64LE("virtual_sol_reserves"),
		Bool("complete"),
		PublicKey("creator"),
	)
}

func encodeTestAccount(vt, vs uint64, complete bool, creator solana.PublicKey) []byte {
	data := make([]byte, 0, 57)
	data = append(data, testDisc...)
	data = binary.LittleEndian.AppendUint64(data, vt)
	data = binary.LittleEndian.AppendUint64(data, vs)
	if complete {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	data = append(data, creator.Bytes()...)
	return data
}

func TestDecode(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	data := encodeTestAccount(1_073_000_000_000_000, 30_000_000_000, true, creator)

	rec, err := testLayout().Decode(data)
	require.NoError(t, err)

	assert.Equal(t, uint64(1_073_000_000_000_000), rec.U64("virtual_token_reserves"))
	assert.Equal(t, uint64(30_000_000_000), rec.U64("virtual_sol_reserves"))
	assert.True(t, rec.Bool("complete"))
	assert.Equal(t, creator, rec.PublicKey("creator"))
}

func TestDecodeHeaderMismatch(t *testing.T) {
	data := encodeTestAccount(1, 2, false, solana.PublicKey{})
	data[0] ^= 0xff

	_, err := testLayout().Decode(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header mismatch")
	assert.Contains(t, err.Error(), "offset 0")
}

func TestDecodeTruncated(t *testing.T) {
	data := encodeTestAccount(1, 2, false, solana.PublicKey{})

	// Chop into the creator field.
	_, err := testLayout().Decode(data[:30])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer overflow")
}

func TestDecodeEmpty(t *testing.T) {
	_, err := testLayout().Decode(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer overflow")
}

func TestOffset(t *testing.T) {
	l := testLayout()

	off, err := l.Offset("virtual_sol_reserves")
	require.NoError(t, err)
	assert.Equal(t, 16, off)

	off, err = l.Offset("creator")
	require.NoError(t, err)
	assert.Equal(t, 25, off)

	_, err = l.Offset("nope")
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	assert.Equal(t, 8+8+8+1+32, testLayout().Size())
}

func TestSkipAndSmallInts(t *testing.T) {
	l := New(
		U8("bump"),
		U16LE("index"),
		Skip("padding", 5),
		U32LE("count"),
	)
	data := []byte{7, 0x34, 0x12, 0, 0, 0, 0, 0, 0x78, 0x56, 0x34, 0x12}

	rec, err := l.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(7), rec.U8("bump"))
	assert.Equal(t, uint16(0x1234), rec.U16("index"))
	assert.Equal(t, uint32(0x12345678), rec.U32("count"))
}
