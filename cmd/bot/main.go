// =============================
// File: cmd/bot/main.go
// =============================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/batch"
	"github.com/ekomarov/swarm-bot/internal/config"
	"github.com/ekomarov/swarm-bot/internal/dex"
	"github.com/ekomarov/swarm-bot/internal/dex/jupiter"
	"github.com/ekomarov/swarm-bot/internal/dex/pumpfun"
	"github.com/ekomarov/swarm-bot/internal/jito"
	"github.com/ekomarov/swarm-bot/internal/logger"
	"github.com/ekomarov/swarm-bot/internal/runner"
	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/spider"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

const jupiterAPI = "https://quote-api.jup.ag/v6"

type app struct {
	cfg     *config.Config
	log     *logger.Logger
	client  solbc.Client
	sender  *tx.Sender
	factory *dex.Factory
	spider  *spider.Spider
}

func main() {
	configPath := flag.String("config", "configs/config.json", "path to config file")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: bot [-config path] <snipe|buy|sell|dump|warmup|launch|spider|sweep> [args]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, log)
	if err != nil {
		log.LogError("startup failed", err)
		os.Exit(1)
	}

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.LogError("command failed", err, zap.String("command", flag.Arg(0)))
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	zl := log.WithOperation("startup")
	client := solbc.NewClient(cfg.RPCList[0], zl).
		WithCommitment(rpc.CommitmentType(cfg.ConfirmCommitment))

	var relay jito.Relay
	if cfg.JitoBlockEngine != "" {
		relay = jito.NewRelay(cfg.JitoBlockEngine, zl)
	}
	sender := tx.NewSender(client, relay, zl)
	router := jupiter.NewRouter(jupiterAPI, client, zl)

	return &app{
		cfg:     cfg,
		log:     log,
		client:  client,
		sender:  sender,
		factory: dex.NewFactory(client, sender, router, zl),
		spider: spider.New(client, sender, zl, cfg.SpiderReserve, tx.RetryOpts{
			MaxAttempts: uint(cfg.Retries),
			Delay:       time.Duration(cfg.RPCDelay) * time.Millisecond,
		}),
	}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "snipe":
		return a.snipe(ctx, args)
	case "buy":
		return a.trade(ctx, args, true)
	case "sell":
		return a.trade(ctx, args, false)
	case "warmup":
		return a.warmup(ctx, args)
	case "dump":
		return a.dump(ctx, args)
	case "launch":
		return a.launch(ctx, args)
	case "spider":
		return a.spiderTransfer(ctx, args)
	case "sweep":
		return a.sweep(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// wallets loads the keystore and returns non-reserve wallets in stable
// name order.
func (a *app) wallets() ([]*wallet.Wallet, error) {
	byName, err := wallet.LoadWallets(a.cfg.KeystorePath)
	if err != nil {
		return nil, err
	}
	var list []*wallet.Wallet
	for _, w := range byName {
		if !w.IsReserve {
			list = append(list, w)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("keystore %s has no trading wallets", a.cfg.KeystorePath)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (a *app) funder() (*wallet.Wallet, error) {
	byName, err := wallet.LoadWallets(a.cfg.KeystorePath)
	if err != nil {
		return nil, err
	}
	for _, w := range byName {
		if w.IsReserve {
			return w, nil
		}
	}
	return nil, fmt.Errorf("keystore %s has no reserve wallet", a.cfg.KeystorePath)
}

func (a *app) snipe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snipe", flag.ContinueOnError)
	mintStr := fs.String("mint", "", "mint to snipe")
	lamports := fs.Uint64("lamports", 100_000_000, "buy size per wallet")
	slippage := fs.Float64("slippage", 0.1, "slippage fraction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mint, err := solana.PublicKeyFromBase58(*mintStr)
	if err != nil {
		return fmt.Errorf("invalid mint: %w", err)
	}
	wallets, err := a.wallets()
	if err != nil {
		return err
	}
	if a.cfg.Workers > 0 && len(wallets) > a.cfg.Workers {
		wallets = wallets[:a.cfg.Workers]
	}

	opts := runner.Options{
		Params: runner.Params{
			BuyLamports: *lamports,
			Slippage:    *slippage,
			Priority:    tx.PriorityHigh,
		},
		MinBalance: *lamports + a.cfg.SpiderReserve,
		PriceDelay: time.Duration(a.cfg.PriceDelay) * time.Millisecond,
		PollDelay:  time.Duration(a.cfg.MonitorDelay) * time.Millisecond,
	}
	if a.cfg.WebSocketURL != "" {
		opts.Push = &runner.WSSource{URL: a.cfg.WebSocketURL, Mint: mint, Logger: a.log.Logger}
	}
	r := runner.New(a.client, a.factory, wallets, opts, a.log.WithOperation("snipe"))

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return r.Run(ctx, mint)
}

func (a *app) trade(ctx context.Context, args []string, buy bool) error {
	fs := flag.NewFlagSet("trade", flag.ContinueOnError)
	mintStr := fs.String("mint", "", "token mint")
	lamports := fs.Uint64("lamports", 100_000_000, "buy size per wallet (buy only)")
	slippage := fs.Float64("slippage", 0.25, "slippage fraction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mint, err := solana.PublicKeyFromBase58(*mintStr)
	if err != nil {
		return fmt.Errorf("invalid mint: %w", err)
	}
	wallets, err := a.wallets()
	if err != nil {
		return err
	}
	adapter, asset, err := a.factory.ForMint(ctx, mint)
	if err != nil {
		return err
	}
	zl := a.log.WithOperation("batch-trade")
	zl.Info("venue resolved", zap.String("venue", string(asset.Venue)))

	opts := tx.SendOpts{Priority: tx.PriorityHigh, Confirm: true}
	o := batch.NewOrchestrator(zl, time.Duration(a.cfg.BatchDelay)*time.Millisecond)
	failures := o.Run(ctx, wallets, func(ctx context.Context, w *wallet.Wallet) error {
		if buy {
			_, err := adapter.Buy(ctx, w, *lamports, *slippage, opts)
			return err
		}
		ata, err := w.GetATA(mint)
		if err != nil {
			return err
		}
		balance, err := a.client.GetTokenBalance(ctx, ata)
		if err != nil || balance == 0 {
			return err
		}
		_, err = adapter.Sell(ctx, w, balance, *slippage, opts)
		return err
	})
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d wallets failed, first: %v", len(failures), len(wallets), failures[0])
	}
	return nil
}

func (a *app) warmup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("warmup", flag.ContinueOnError)
	mintStr := fs.String("mint", "", "token mint")
	lamports := fs.Uint64("lamports", 10_000_000, "warmup buy size")
	slippage := fs.Float64("slippage", 0.25, "slippage fraction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mint, err := solana.PublicKeyFromBase58(*mintStr)
	if err != nil {
		return fmt.Errorf("invalid mint: %w", err)
	}
	wallets, err := a.wallets()
	if err != nil {
		return err
	}
	adapter, _, err := a.factory.ForMint(ctx, mint)
	if err != nil {
		return err
	}
	zl := a.log.WithOperation("warmup")
	opts := tx.SendOpts{Priority: tx.PriorityMedium, Confirm: true}
	o := batch.NewOrchestrator(zl, time.Duration(a.cfg.BatchDelay)*time.Millisecond)
	failures := o.Run(ctx, wallets, func(ctx context.Context, w *wallet.Wallet) error {
		return batch.Warmup(ctx, a.client, adapter, mint, w, *lamports, *slippage, opts)
	})
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d warmups failed, first: %v", len(failures), len(wallets), failures[0])
	}
	return nil
}

// dump sells every wallet's position atomically through the bundle
// relay, so either the whole exit lands in one block or none of it does.
func (a *app) dump(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	mintStr := fs.String("mint", "", "token mint")
	slippage := fs.Float64("slippage", 0.5, "slippage fraction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mint, err := solana.PublicKeyFromBase58(*mintStr)
	if err != nil {
		return fmt.Errorf("invalid mint: %w", err)
	}
	wallets, err := a.wallets()
	if err != nil {
		return err
	}
	zl := a.log.WithOperation("dump")
	d, err := pumpfun.New(ctx, a.client, a.sender, zl, mint)
	if err != nil {
		return err
	}
	tipPayer, err := a.funder()
	if err != nil {
		return err
	}
	bundleIDs, err := d.SellAllBundled(ctx, pumpfun.ExitParams{
		Wallets:         wallets,
		Slippage:        *slippage,
		TipPayer:        tipPayer,
		TipLamports:     a.cfg.JitoTipLamports,
		MaxWalletsPerTx: a.cfg.MaxWalletsPerTx,
		MaxTxsPerBundle: a.cfg.MaxTxsPerBundle,
		Priority:        tx.PriorityVeryHigh,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exit submitted in %d bundle(s)\n", len(bundleIDs))
	return nil
}

func (a *app) launch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	name := fs.String("name", "", "token name")
	symbol := fs.String("symbol", "", "token symbol")
	uri := fs.String("uri", "", "metadata uri")
	devBuy := fs.Uint64("dev-buy", 0, "creator buy inside the create transaction")
	buyLamports := fs.Uint64("lamports", 100_000_000, "buy size per wallet")
	slippage := fs.Float64("slippage", 0.5, "slippage fraction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *symbol == "" {
		return fmt.Errorf("launch requires -name and -symbol")
	}
	creator, err := a.funder()
	if err != nil {
		return err
	}
	wallets, err := a.wallets()
	if err != nil {
		return err
	}

	buyers := make([]pumpfun.LaunchBuyer, len(wallets))
	for i, w := range wallets {
		buyers[i] = pumpfun.LaunchBuyer{Wallet: w, SolLamports: *buyLamports, Slippage: *slippage}
	}

	l := pumpfun.NewLauncher(a.sender, a.log.WithOperation("launch"))
	mint, bundleID, err := l.Launch(ctx, pumpfun.LaunchParams{
		Creator:        creator,
		Meta:           pumpfun.TokenMeta{Name: *name, Symbol: *symbol, URI: *uri},
		DevBuyLamports: *devBuy,
		DevBuySlippage: *slippage,
		Buyers:         buyers,
		TipLamports:    a.cfg.JitoTipLamports,
		Priority:       tx.PriorityHigh,
	})
	if err != nil {
		return err
	}
	fmt.Printf("mint %s launched in bundle %s\n", mint, bundleID)
	return nil
}

func (a *app) spiderTransfer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("spider", flag.ContinueOnError)
	lamports := fs.Uint64("lamports", 0, "amount per destination wallet")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *lamports == 0 {
		return fmt.Errorf("spider requires -lamports")
	}
	funder, err := a.funder()
	if err != nil {
		return err
	}
	wallets, err := a.wallets()
	if err != nil {
		return err
	}

	dests := make([]solana.PublicKey, len(wallets))
	amounts := make([]uint64, len(wallets))
	for i, w := range wallets {
		dests[i] = w.PublicKey
		amounts[i] = *lamports
	}
	tree, err := a.spider.BuildTree(dests, amounts)
	if err != nil {
		return err
	}

	recoveryPath := filepath.Join(a.cfg.RecoveryDir, fmt.Sprintf("spider_%d.csv", time.Now().Unix()))
	rf, err := wallet.NewRecoveryFile(recoveryPath)
	if err != nil {
		return err
	}
	if err := a.spider.Backup(tree, rf); err != nil {
		rf.Close()
		return err
	}
	if err := rf.Close(); err != nil {
		return err
	}

	if err := a.spider.Transfer(ctx, tree, funder); err != nil {
		return fmt.Errorf("transfer aborted, sweep %s to recover: %w", recoveryPath, err)
	}
	if failures := a.spider.Distribute(ctx, tree); len(failures) > 0 {
		return fmt.Errorf("%d leaves failed, sweep %s to recover, first: %v", len(failures), recoveryPath, failures[0])
	}
	fmt.Printf("funded %d wallets through %d layers, recovery at %s\n", len(wallets), tree.Layers, recoveryPath)
	return nil
}

func (a *app) sweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	path := fs.String("recovery", "", "recovery file to drain")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("sweep requires -recovery")
	}
	funder, err := a.funder()
	if err != nil {
		return err
	}
	if failures := a.spider.SweepRecovery(ctx, *path, funder.PublicKey); len(failures) > 0 {
		return fmt.Errorf("%d sweeps failed, first: %v", len(failures), failures[0])
	}
	return nil
}
