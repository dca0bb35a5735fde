// =============================
// File: internal/runner/runner.go
// =============================
// Package runner drives a multi-wallet snipe: wait for a token launch,
// buy from every wallet the moment the curve exists, then hold while
// price updates stream until the operator sells or stops.
package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekomarov/swarm-bot/internal/dex"
	"github.com/ekomarov/swarm-bot/internal/dex/pumpfun"
	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

// State is the runner's lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateWaitingForLaunchSignal
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForLaunchSignal:
		return "waiting_for_launch_signal"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Params are the numeric knobs the operator can change live.
type Params struct {
	BuyLamports uint64
	Slippage    float64
	Priority    tx.Priority
}

// CommandKind tags operator commands.
type CommandKind int

const (
	CmdStop CommandKind = iota
	CmdSellAll
	CmdReconfigure
)

// Command is one operator instruction.
type Command struct {
	Kind   CommandKind
	Params *Params
}

// LaunchSource resolves when the watched token becomes tradable. The
// push implementation wraps a websocket subscription; PollingSource is
// the RPC fallback.
type LaunchSource interface {
	Wait(ctx context.Context) (solana.PublicKey, error)
}

// PollingSource detects a launch by polling for the curve account.
type PollingSource struct {
	Client solbc.Client
	Mint   solana.PublicKey
	Delay  time.Duration
}

func (p *PollingSource) Wait(ctx context.Context) (solana.PublicKey, error) {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Second
	}
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		if _, err := pumpfun.FetchCurveState(ctx, p.Client, p.Mint); err == nil {
			return p.Mint, nil
		}
		select {
		case <-ctx.Done():
			return solana.PublicKey{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

type msgKind int

const (
	msgBuy msgKind = iota
	msgPrice
	msgSell
	msgStop
)

type workerMsg struct {
	kind    msgKind
	adapter dex.Adapter
	state   *pumpfun.CurveState
	params  Params
}

// Options configures a runner.
type Options struct {
	Params Params
	// MinBalance is the preflight floor every wallet must hold.
	MinBalance uint64
	// PriceDelay is the interval between curve refresh broadcasts.
	PriceDelay time.Duration
	// Push is the subscription launch source; nil means polling only.
	Push LaunchSource
	// Poll overrides the default curve-polling source.
	Poll LaunchSource
	// PollDelay paces the polling fallback.
	PollDelay time.Duration
}

// Runner coordinates one snipe run. Workers are isolated goroutines
// reached only through their message channels.
type Runner struct {
	client  solbc.Client
	factory *dex.Factory
	wallets []*wallet.Wallet
	opts    Options
	logger  *zap.Logger

	state    atomic.Int32
	commands chan Command
	workers  []*workerHandle
	mint     solana.PublicKey
}

// workerHandle pairs a worker's inbox with its exit signal so a dead
// worker never blocks a broadcast.
type workerHandle struct {
	inbox chan workerMsg
	done  chan struct{}
}

func New(client solbc.Client, factory *dex.Factory, wallets []*wallet.Wallet, opts Options, logger *zap.Logger) *Runner {
	return &Runner{
		client:   client,
		factory:  factory,
		wallets:  wallets,
		opts:     opts,
		logger:   logger.Named("runner"),
		commands: make(chan Command, 8),
	}
}

func (r *Runner) State() State { return State(r.state.Load()) }

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	r.logger.Info("state changed", zap.String("state", s.String()))
}

// Stop asks the runner to wind down. In-flight submissions finish.
func (r *Runner) Stop() { r.commands <- Command{Kind: CmdStop} }

// SellAll broadcasts an immediate sell of every wallet's position.
func (r *Runner) SellAll() { r.commands <- Command{Kind: CmdSellAll} }

// Reconfigure swaps the numeric parameters for subsequent operations.
func (r *Runner) Reconfigure(p Params) { r.commands <- Command{Kind: CmdReconfigure, Params: &p} }

// Run executes the full lifecycle for one mint and blocks until the
// runner stops. A worker failing ends that worker only; the others keep
// running and the first error comes back after the drain.
func (r *Runner) Run(ctx context.Context, mint solana.PublicKey) error {
	r.setState(StateIdle)
	r.mint = mint
	if len(r.wallets) == 0 {
		return fmt.Errorf("no wallets assigned")
	}
	if err := r.preflight(ctx); err != nil {
		return err
	}

	// Workers start before the wait so the buy broadcast finds them
	// already listening.
	var g errgroup.Group
	r.workers = make([]*workerHandle, len(r.wallets))
	for i, w := range r.wallets {
		h := &workerHandle{
			inbox: make(chan workerMsg, 4),
			done:  make(chan struct{}),
		}
		r.workers[i] = h
		w := w
		g.Go(func() error {
			defer close(h.done)
			return r.worker(ctx, w, h.inbox)
		})
	}

	r.setState(StateWaitingForLaunchSignal)
	launched, err := r.awaitLaunch(ctx, mint)
	if err != nil {
		r.drain(&g)
		r.setState(StateStopped)
		return err
	}
	if launched {
		adapter, asset, err := r.factory.ForMint(ctx, mint)
		if err != nil {
			r.drain(&g)
			r.setState(StateStopped)
			return err
		}
		r.logger.Info("launch detected",
			zap.String("mint", mint.String()),
			zap.String("venue", string(asset.Venue)))
		params := r.opts.Params
		r.broadcast(workerMsg{kind: msgBuy, adapter: adapter, params: params})

		r.setState(StateRunning)
		if err := r.running(ctx, mint, adapter, params); err != nil && ctx.Err() == nil {
			r.logger.Warn("run loop ended", zap.Error(err))
		}
	}

	workerErr := r.drain(&g)
	r.setState(StateStopped)
	return workerErr
}

// preflight verifies every wallet can fund its buy. Starting a run
// short-handed is worse than not starting.
func (r *Runner) preflight(ctx context.Context) error {
	floor := r.opts.MinBalance
	if floor == 0 {
		floor = r.opts.Params.BuyLamports
	}
	for _, w := range r.wallets {
		balance, err := r.client.GetBalance(ctx, w.PublicKey)
		if err != nil {
			return fmt.Errorf("preflight balance check for %s: %w", w.Name, err)
		}
		if balance < floor {
			return fmt.Errorf("wallet %s underfunded: has %d lamports, needs %d", w.Name, balance, floor)
		}
	}
	return nil
}

// awaitLaunch races the push subscription against polling; the first
// resolution cancels the other. A stop command cancels the wait.
// Returns false when the wait ended without a launch.
func (r *Runner) awaitLaunch(ctx context.Context, mint solana.PublicKey) (bool, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		mint solana.PublicKey
		push bool
		err  error
	}
	results := make(chan outcome, 2)

	poll := r.opts.Poll
	if poll == nil {
		poll = &PollingSource{Client: r.client, Mint: mint, Delay: r.opts.PollDelay}
	}
	pollLive := true
	go func() {
		m, err := poll.Wait(raceCtx)
		results <- outcome{mint: m, err: err}
	}()
	pushLive := r.opts.Push != nil
	if pushLive {
		go func() {
			m, err := r.opts.Push.Wait(raceCtx)
			results <- outcome{mint: m, push: true, err: err}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case cmd := <-r.commands:
			if cmd.Kind == CmdStop {
				r.logger.Info("launch wait cancelled by operator")
				return false, nil
			}
			// Sell and reconfigure are meaningless before a position
			// exists; reconfigure still applies.
			if cmd.Kind == CmdReconfigure && cmd.Params != nil {
				r.opts.Params = *cmd.Params
			}
		case res := <-results:
			if res.err != nil {
				// The failed detector drops out; the other keeps racing.
				if res.push {
					pushLive = false
				} else {
					pollLive = false
				}
				r.logger.Warn("launch detector failed",
					zap.Bool("push", res.push),
					zap.Error(res.err))
				if !pollLive && !pushLive {
					return false, res.err
				}
				continue
			}
			return true, nil
		}
	}
}

// running refreshes the curve on a ticker and services commands until
// the operator stops the run or the context ends.
func (r *Runner) running(ctx context.Context, mint solana.PublicKey, adapter dex.Adapter, params Params) error {
	delay := r.opts.PriceDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			state, err := pumpfun.FetchCurveState(ctx, r.client, mint)
			if err != nil {
				r.logger.Warn("curve refresh failed", zap.Error(err))
				continue
			}
			r.broadcast(workerMsg{kind: msgPrice, state: state, params: params})
		case cmd := <-r.commands:
			switch cmd.Kind {
			case CmdStop:
				return nil
			case CmdSellAll:
				r.broadcast(workerMsg{kind: msgSell, adapter: adapter, params: params})
			case CmdReconfigure:
				if cmd.Params != nil {
					params = *cmd.Params
					r.opts.Params = params
					r.logger.Info("parameters updated",
						zap.Uint64("buy_lamports", params.BuyLamports),
						zap.Float64("slippage", params.Slippage))
				}
			}
		}
	}
}

func (r *Runner) broadcast(msg workerMsg) {
	for _, h := range r.workers {
		select {
		case h.inbox <- msg:
		case <-h.done:
		}
	}
}

// drain closes the inboxes and joins the workers. The first worker
// error is returned; siblings were never cancelled by it.
func (r *Runner) drain(g *errgroup.Group) error {
	r.setState(StateDraining)
	r.broadcast(workerMsg{kind: msgStop})
	for _, h := range r.workers {
		close(h.inbox)
	}
	return g.Wait()
}

// worker owns one wallet. It talks to nothing but its inbox; an error
// terminates this worker without touching the others.
func (r *Runner) worker(ctx context.Context, w *wallet.Wallet, inbox <-chan workerMsg) error {
	log := r.logger.With(zap.String("wallet", w.Name))

	for msg := range inbox {
		switch msg.kind {
		case msgStop:
			return nil
		case msgBuy:
			opts := tx.SendOpts{Priority: msg.params.Priority, SkipPreflight: true, Confirm: true}
			sig, err := msg.adapter.Buy(ctx, w, msg.params.BuyLamports, msg.params.Slippage, opts)
			if err != nil {
				log.Error("buy failed", zap.Error(err))
				return fmt.Errorf("worker %s buy: %w", w.Name, err)
			}
			log.Info("bought", zap.String("signature", sig.String()))
		case msgPrice:
			if msg.state != nil && msg.state.VirtualTokenReserves > 0 {
				price := float64(msg.state.VirtualSolReserves) / float64(msg.state.VirtualTokenReserves)
				log.Debug("price update", zap.Float64("lamports_per_base_unit", price))
			}
		case msgSell:
			balance, err := r.tokenBalance(ctx, w)
			if err != nil {
				log.Error("token balance read failed", zap.Error(err))
				return fmt.Errorf("worker %s balance: %w", w.Name, err)
			}
			if balance == 0 {
				continue
			}
			opts := tx.SendOpts{Priority: msg.params.Priority, SkipPreflight: true, Confirm: true}
			sig, err := msg.adapter.Sell(ctx, w, balance, msg.params.Slippage, opts)
			if err != nil {
				log.Error("sell failed", zap.Error(err))
				return fmt.Errorf("worker %s sell: %w", w.Name, err)
			}
			log.Info("sold", zap.String("signature", sig.String()))
		}
	}
	return nil
}

func (r *Runner) tokenBalance(ctx context.Context, w *wallet.Wallet) (uint64, error) {
	ata, err := w.GetATA(r.mint)
	if err != nil {
		return 0, err
	}
	return r.client.GetTokenBalance(ctx, ata)
}
