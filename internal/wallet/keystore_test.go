// ==================================
// File: internal/wallet/keystore_test.go
// ==================================
package wallet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spider_recovery.csv")

	generated, err := Generate("spider_1", 3)
	require.NoError(t, err)
	generated[2].IsReserve = true

	rf, err := NewRecoveryFile(path)
	require.NoError(t, err)
	for _, w := range generated {
		require.NoError(t, rf.Append(w))
	}
	require.NoError(t, rf.Close())

	loaded, err := LoadRecoveryFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, w := range loaded {
		assert.Equal(t, generated[i].Name, w.Name)
		assert.Equal(t, generated[i].PublicKey, w.PublicKey)
		assert.Equal(t, generated[i].PrivateKey, w.PrivateKey)
		assert.Equal(t, generated[i].IsReserve, w.IsReserve)
	}
}

func TestRecoveryFileNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recovery.csv")

	rf, err := NewRecoveryFile(path)
	require.NoError(t, err)
	require.NoError(t, rf.Close())

	_, err = NewRecoveryFile(path)
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	wallets, err := Generate("warm", 5)
	require.NoError(t, err)
	require.Len(t, wallets, 5)

	seen := make(map[string]bool)
	for i, w := range wallets {
		assert.Equal(t, w.PrivateKey.PublicKey(), w.PublicKey)
		assert.False(t, seen[w.PublicKey.String()])
		seen[w.PublicKey.String()] = true
		assert.Contains(t, w.Name, "warm")
		assert.Equal(t, i, int(w.Name[len(w.Name)-1]-'0'))
	}

	_, err = Generate("x", 0)
	assert.Error(t, err)
}

func TestNewWalletRejectsBadKeys(t *testing.T) {
	_, err := NewWallet("w", "not-base58-!!!")
	assert.Error(t, err)

	_, err = NewWallet("w", "3mJr7AoUXx2Wqd") // decodes, wrong length
	assert.Error(t, err)
}
