// =============================
// File: internal/dex/jupiter/jupiter.go
// =============================
// Package jupiter is the aggregator fallback: when a direct AMM swap
// fails, the same trade is retried through an external routing service.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// Router quotes and executes aggregated swaps. The HTTP implementation
// below is the default; tests fake it.
type Router interface {
	Swap(ctx context.Context, w *wallet.Wallet, inputMint, outputMint solana.PublicKey, amountIn uint64, slippageBps int) (solana.Signature, error)
}

// HTTPRouter talks to the aggregator's quote/swap API.
type HTTPRouter struct {
	baseURL string
	http    *http.Client
	client  solbc.Client
	logger  *zap.Logger
}

func NewRouter(baseURL string, client solbc.Client, logger *zap.Logger) *HTTPRouter {
	return &HTTPRouter{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		client:  client,
		logger:  logger.Named("jupiter"),
	}
}

type quoteResponse struct {
	OutAmount string          `json:"outAmount"`
	Raw       json.RawMessage `json:"-"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// Swap fetches a route, asks the service to build the transaction, signs
// it locally and submits it.
func (r *HTTPRouter) Swap(ctx context.Context, w *wallet.Wallet, inputMint, outputMint solana.PublicKey, amountIn uint64, slippageBps int) (solana.Signature, error) {
	quoteRaw, err := r.fetchQuote(ctx, inputMint, outputMint, amountIn, slippageBps)
	if err != nil {
		return solana.Signature{}, err
	}

	body, err := json.Marshal(map[string]interface{}{
		"quoteResponse": json.RawMessage(quoteRaw),
		"userPublicKey": w.PublicKey.String(),
		"wrapAndUnwrapSol": true,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to encode swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return solana.Signature{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.http.Do(req)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("swap request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return solana.Signature{}, fmt.Errorf("swap request rejected: status %d", resp.StatusCode)
	}

	var parsed swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to decode swap response: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(parsed.SwapTransaction)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to decode swap transaction: %w", err)
	}
	transaction, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to parse swap transaction: %w", err)
	}
	if err := w.SignTransaction(transaction); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign swap transaction: %w", err)
	}

	sig, err := r.client.SendTransaction(ctx, transaction, solbc.SendOptions{SkipPreflight: true})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("aggregated swap failed: %w", err)
	}
	r.logger.Info("aggregated swap submitted",
		zap.String("wallet", w.Name),
		zap.String("signature", sig.String()))
	return sig, nil
}

func (r *HTTPRouter) fetchQuote(ctx context.Context, inputMint, outputMint solana.PublicKey, amountIn uint64, slippageBps int) ([]byte, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint.String())
	q.Set("outputMint", outputMint.String())
	q.Set("amount", strconv.FormatUint(amountIn, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote request rejected: status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}
	var probe quoteResponse
	if err := json.Unmarshal(buf.Bytes(), &probe); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if probe.OutAmount == "" || probe.OutAmount == "0" {
		return nil, fmt.Errorf("no route for %s -> %s", inputMint, outputMint)
	}
	return buf.Bytes(), nil
}

var _ Router = (*HTTPRouter)(nil)
