// =============================
// File: internal/jito/relay.go
// =============================
package jito

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const maxBundleTxs = 5

// BlockEngineRelay talks JSON-RPC to a block engine endpoint.
type BlockEngineRelay struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

func NewRelay(blockEngineURL string, logger *zap.Logger) *BlockEngineRelay {
	return &BlockEngineRelay{
		endpoint: blockEngineURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger.Named("jito"),
	}
}

type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendBundle submits signed transactions base64-encoded via sendBundle.
func (r *BlockEngineRelay) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("empty bundle")
	}
	if len(txs) > maxBundleTxs {
		return "", fmt.Errorf("bundle has %d transactions, limit is %d", len(txs), maxBundleTxs)
	}

	encoded := make([]string, 0, len(txs))
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("failed to serialize bundle transaction %d: %w", i, err)
		}
		encoded = append(encoded, base64.StdEncoding.EncodeToString(raw))
	}

	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params: []interface{}{
			encoded,
			map[string]string{"encoding": "base64"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode sendBundle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build sendBundle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sendBundle request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode sendBundle response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("block engine rejected bundle: %s (code %d)", parsed.Error.Message, parsed.Error.Code)
	}
	if parsed.Result == "" {
		return "", fmt.Errorf("block engine returned no bundle id")
	}

	r.logger.Info("bundle submitted",
		zap.String("bundle_id", parsed.Result),
		zap.Int("txs", len(txs)))
	return parsed.Result, nil
}

var _ Relay = (*BlockEngineRelay)(nil)
