// =============================
// File: internal/solbc/client_test.go
// =============================
package solbc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// rpcStub answers every JSON-RPC call with a fixed result body.
func rpcStub(result string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
	}))
}

func TestGetAccountBytesWrapsMissingAccount(t *testing.T) {
	// A missing account comes back as "value": null, which solana-go
	// turns into its own not-found sentinel.
	server := rpcStub(`{"context":{"slot":1},"value":null}`)
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	_, err := client.GetAccountBytes(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestGetBalance(t *testing.T) {
	server := rpcStub(`{"context":{"slot":1},"value":5000000000}`)
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	balance, err := client.GetBalance(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), balance)
}
