// =============================
// File: internal/dex/pumpswap/pool.go
// =============================
package pumpswap

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/solbc"
)

// Pool account byte offsets used for memcmp filters.
const (
	offsetBaseMint  = 8 + 1 + 2 + 32 // discriminator + bump + index + creator
	offsetQuoteMint = offsetBaseMint + 32
)

// PoolManager finds and decodes AMM pools.
type PoolManager struct {
	client solbc.Client
	logger *zap.Logger

	cfgOnce sync.Once
	cfg     *GlobalConfig
	cfgErr  error
}

func NewPoolManager(client solbc.Client, logger *zap.Logger) *PoolManager {
	return &PoolManager{
		client: client,
		logger: logger.Named("pumpswap-pools"),
	}
}

// ParsePool decodes a pool account: discriminator check first, then the
// borsh body. CoinCreator is absent on pools created before the field.
func ParsePool(data []byte) (*Pool, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("data too short for pool")
	}
	for i := 0; i < 8; i++ {
		if data[i] != PoolDiscriminator[i] {
			return nil, fmt.Errorf("invalid pool discriminator")
		}
	}

	pool := &Pool{}
	dec := bin.NewBorshDecoder(data[8:])
	if err := dec.Decode(&pool.PoolBump); err != nil {
		return nil, fmt.Errorf("failed to decode pool bump: %w", err)
	}
	if err := dec.Decode(&pool.Index); err != nil {
		return nil, fmt.Errorf("failed to decode pool index: %w", err)
	}
	for _, dst := range []*solana.PublicKey{
		&pool.Creator, &pool.BaseMint, &pool.QuoteMint,
		&pool.LPMint, &pool.PoolBaseTokenAccount, &pool.PoolQuoteTokenAccount,
	} {
		if err := dec.Decode(dst); err != nil {
			return nil, fmt.Errorf("failed to decode pool key: %w", err)
		}
	}
	if err := dec.Decode(&pool.LPSupply); err != nil {
		return nil, fmt.Errorf("failed to decode lp supply: %w", err)
	}
	if dec.Remaining() >= 32 {
		if err := dec.Decode(&pool.CoinCreator); err != nil {
			return nil, fmt.Errorf("failed to decode coin creator: %w", err)
		}
	}
	return pool, nil
}

// ParseGlobalConfig decodes the program config account.
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("data too short for global config")
	}
	for i := 0; i < 8; i++ {
		if data[i] != GlobalConfigDiscriminator[i] {
			return nil, fmt.Errorf("invalid global config discriminator")
		}
	}

	cfg := &GlobalConfig{}
	dec := bin.NewBorshDecoder(data[8:])
	if err := dec.Decode(&cfg.Admin); err != nil {
		return nil, fmt.Errorf("failed to decode admin: %w", err)
	}
	if err := dec.Decode(&cfg.LPFeeBasisPoints); err != nil {
		return nil, fmt.Errorf("failed to decode lp fee: %w", err)
	}
	if err := dec.Decode(&cfg.ProtocolFeeBasisPoints); err != nil {
		return nil, fmt.Errorf("failed to decode protocol fee: %w", err)
	}
	if err := dec.Decode(&cfg.DisableFlags); err != nil {
		return nil, fmt.Errorf("failed to decode disable flags: %w", err)
	}
	for i := range cfg.ProtocolFeeRecipients {
		if dec.Remaining() < 32 {
			break
		}
		if err := dec.Decode(&cfg.ProtocolFeeRecipients[i]); err != nil {
			return nil, fmt.Errorf("failed to decode fee recipient %d: %w", i, err)
		}
	}
	return cfg, nil
}

// GlobalConfig fetches and caches the program config.
func (pm *PoolManager) GlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	pm.cfgOnce.Do(func() {
		addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedGlobalConfig)}, ProgramID)
		if err != nil {
			pm.cfgErr = fmt.Errorf("failed to derive global config address: %w", err)
			return
		}
		data, err := pm.client.GetAccountBytes(ctx, addr)
		if err != nil {
			pm.cfgErr = fmt.Errorf("failed to fetch global config: %w", err)
			return
		}
		pm.cfg, pm.cfgErr = ParseGlobalConfig(data)
	})
	return pm.cfg, pm.cfgErr
}

// FindPool locates the pool for a mint pair via memcmp filters, trying
// both mint orders. Pools with empty reserves are skipped.
func (pm *PoolManager) FindPool(ctx context.Context, baseMint, quoteMint solana.PublicKey) (*PoolInfo, error) {
	if info, err := pm.findPoolOrdered(ctx, baseMint, quoteMint); err == nil {
		return info, nil
	}
	info, err := pm.findPoolOrdered(ctx, quoteMint, baseMint)
	if err != nil {
		return nil, fmt.Errorf("no pool found for %s / %s", baseMint, quoteMint)
	}
	return info, nil
}

func (pm *PoolManager) findPoolOrdered(ctx context.Context, baseMint, quoteMint solana.PublicKey) (*PoolInfo, error) {
	found, err := pm.client.SearchAccounts(ctx, ProgramID, []solbc.MemcmpFilter{
		{Offset: 0, Bytes: PoolDiscriminator},
		{Offset: offsetBaseMint, Bytes: baseMint.Bytes()},
		{Offset: offsetQuoteMint, Bytes: quoteMint.Bytes()},
	})
	if err != nil {
		return nil, fmt.Errorf("pool search failed: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no pool accounts match %s/%s", baseMint, quoteMint)
	}

	cfg, err := pm.GlobalConfig(ctx)
	if err != nil {
		return nil, err
	}

	for _, acc := range found {
		pool, err := ParsePool(acc.Data)
		if err != nil {
			continue
		}
		raw, err := pm.client.GetMultipleAccountBytes(ctx,
			[]solana.PublicKey{pool.PoolBaseTokenAccount, pool.PoolQuoteTokenAccount})
		if err != nil {
			continue
		}
		baseRes := parseTokenAmount(raw[0])
		quoteRes := parseTokenAmount(raw[1])
		if baseRes == 0 || quoteRes == 0 {
			continue
		}
		return &PoolInfo{
			Address:               acc.Address,
			BaseMint:              pool.BaseMint,
			QuoteMint:             pool.QuoteMint,
			BaseReserves:          baseRes,
			QuoteReserves:         quoteRes,
			LPSupply:              pool.LPSupply,
			LPFeeBasisPoints:      cfg.LPFeeBasisPoints,
			ProtocolFeeBPS:        cfg.ProtocolFeeBasisPoints,
			LPMint:                pool.LPMint,
			PoolBaseTokenAccount:  pool.PoolBaseTokenAccount,
			PoolQuoteTokenAccount: pool.PoolQuoteTokenAccount,
			CoinCreator:           pool.CoinCreator,
		}, nil
	}
	return nil, fmt.Errorf("all candidate pools have zero liquidity for %s/%s", baseMint, quoteMint)
}

// FindPoolWithRetry retries the pool search with exponential backoff. New
// pools take a few slots to become visible after migration.
func (pm *PoolManager) FindPoolWithRetry(ctx context.Context, baseMint, quoteMint solana.PublicKey, maxRetries uint, retryDelay time.Duration) (*PoolInfo, error) {
	if maxRetries == 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryDelay
	policy.MaxInterval = retryDelay * 10

	notify := func(err error, d time.Duration) {
		pm.logger.Info("retrying pool search", zap.Error(err), zap.Duration("backoff", d))
	}

	operation := func() (*PoolInfo, error) {
		return pm.FindPool(ctx, baseMint, quoteMint)
	}
	pool, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxRetries),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, fmt.Errorf("pool search exhausted for %s/%s: %w", baseMint, quoteMint, err)
	}
	return pool, nil
}

func parseTokenAmount(data []byte) uint64 {
	if len(data) < tokenAccountAmountOffset+tokenAccountAmountSize {
		return 0
	}
	return binary.LittleEndian.Uint64(data[tokenAccountAmountOffset : tokenAccountAmountOffset+tokenAccountAmountSize])
}

// Quote prices a swap against pool reserves. The combined fee comes off
// the input; the constant-product output floors.
func Quote(pool *PoolInfo, inputAmount uint64, baseToQuote bool) (uint64, error) {
	if inputAmount == 0 {
		return 0, fmt.Errorf("zero input amount")
	}
	reserveIn, reserveOut := pool.QuoteReserves, pool.BaseReserves
	if baseToQuote {
		reserveIn, reserveOut = pool.BaseReserves, pool.QuoteReserves
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, fmt.Errorf("pool has zero reserves")
	}

	feeBps := pool.LPFeeBasisPoints + pool.ProtocolFeeBPS
	if feeBps >= 10_000 {
		return 0, fmt.Errorf("invalid fee schedule: %d bps", feeBps)
	}

	inAfterFee := new(big.Int).Mul(
		new(big.Int).SetUint64(inputAmount),
		new(big.Int).SetUint64(10_000-feeBps),
	)
	inAfterFee.Div(inAfterFee, big.NewInt(10_000))

	num := new(big.Int).Mul(new(big.Int).SetUint64(reserveOut), inAfterFee)
	den := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), inAfterFee)
	out := num.Div(num, den)
	if out.Sign() <= 0 {
		return 0, fmt.Errorf("input too small to produce output")
	}
	return out.Uint64(), nil
}
