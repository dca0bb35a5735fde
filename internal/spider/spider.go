// =============================
// File: internal/spider/spider.go
// =============================
// Package spider moves funds from one funder to many wallets through a
// tree of ephemeral intermediaries, so no destination receives directly
// from the funder. Every intermediary key is written to a recovery file
// before the first lamport moves.
package spider

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"github.com/ekomarov/swarm-bot/internal/solbc"
	"github.com/ekomarov/swarm-bot/internal/tx"
	"github.com/ekomarov/swarm-bot/internal/wallet"
)

const (
	// baseFee is the network fee budget kept back on sweeps.
	baseFee = 5_000
	// maxBundleTxs mirrors the relay's bundle size limit.
	maxBundleTxs = 5
)

// Node is one ephemeral wallet in the transfer tree.
type Node struct {
	Wallet   *wallet.Wallet
	Children []*Node
	// Amount is what this node must receive: everything its subtree
	// forwards plus its own fee reserve.
	Amount uint64
	Depth  int
	Index  int
}

// Tree is a built transfer tree. Leaves[i] serves Destinations[i].
type Tree struct {
	Root         *Node
	Leaves       []*Node
	Layers       int
	Destinations []solana.PublicKey
	Amounts      []uint64

	backedUp bool
}

// Spider builds and drives transfer trees.
type Spider struct {
	client  solbc.Client
	sender  *tx.Sender
	logger  *zap.Logger
	reserve uint64
	retry   tx.RetryOpts
}

func New(client solbc.Client, sender *tx.Sender, logger *zap.Logger, reserve uint64, retry tx.RetryOpts) *Spider {
	return &Spider{
		client:  client,
		sender:  sender,
		logger:  logger.Named("spider"),
		reserve: reserve,
		retry:   retry,
	}
}

// BuildTree creates the ephemeral tree for the given destinations. The
// tree has ceil(log2(N))+1 layers; each parent funds at most two
// children. Amounts propagate up so the root carries the whole budget.
func (s *Spider) BuildTree(destinations []solana.PublicKey, amounts []uint64) (*Tree, error) {
	if len(destinations) == 0 {
		return nil, fmt.Errorf("no destinations")
	}
	if len(destinations) != len(amounts) {
		return nil, fmt.Errorf("destinations and amounts differ: %d vs %d", len(destinations), len(amounts))
	}

	layers := 1
	if n := len(destinations); n > 1 {
		layers = int(math.Ceil(math.Log2(float64(n)))) + 1
	}

	leafDepth := layers - 1
	leafWallets, err := wallet.Generate(fmt.Sprintf("layer_%d", leafDepth), len(destinations))
	if err != nil {
		return nil, err
	}
	level := make([]*Node, len(destinations))
	leaves := make([]*Node, len(destinations))
	for i, w := range leafWallets {
		level[i] = &Node{
			Wallet: w,
			Amount: amounts[i] + s.reserve,
			Depth:  leafDepth,
			Index:  i,
		}
		leaves[i] = level[i]
	}

	for depth := leafDepth - 1; depth >= 0; depth-- {
		parentCount := (len(level) + 1) / 2
		parentWallets, err := wallet.Generate(fmt.Sprintf("layer_%d", depth), parentCount)
		if err != nil {
			return nil, err
		}
		parents := make([]*Node, parentCount)
		for i, w := range parentWallets {
			children := level[i*2 : min(i*2+2, len(level))]
			// One reserve per child covers the fees and rent floor of
			// that hop.
			var sum uint64
			for _, c := range children {
				sum += c.Amount + s.reserve
			}
			parents[i] = &Node{
				Wallet:   w,
				Children: children,
				Amount:   sum,
				Depth:    depth,
				Index:    i,
			}
		}
		level = parents
	}

	return &Tree{
		Root:         level[0],
		Leaves:       leaves,
		Layers:       layers,
		Destinations: destinations,
		Amounts:      amounts,
	}, nil
}

// Backup writes every ephemeral key in the tree to the recovery file.
// Transfer refuses to run until this has happened.
func (s *Spider) Backup(tree *Tree, rf *wallet.RecoveryFile) error {
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if err := rf.Append(n.Wallet); err != nil {
			return fmt.Errorf("failed to back up %s: %w", n.Wallet.Name, err)
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(tree.Root); err != nil {
		return err
	}
	tree.backedUp = true
	s.logger.Info("tree keys backed up", zap.Int("layers", tree.Layers))
	return nil
}

// Transfer funds the root from the funder and walks the tree top-down,
// each parent funding its children. An exhausted hop aborts the whole
// walk: everything past a broken edge was never funded, so continuing
// would only strand more reserves. The recovery file holds the keys for
// the sweep.
func (s *Spider) Transfer(ctx context.Context, tree *Tree, funder *wallet.Wallet) error {
	if !tree.backedUp {
		return fmt.Errorf("tree not backed up: refusing to move funds")
	}

	if err := s.hop(ctx, funder, tree.Root.Wallet.PublicKey, tree.Root.Amount+s.reserve); err != nil {
		return fmt.Errorf("failed to fund root: %w", err)
	}

	var walk func(n *Node) error
	walk = func(n *Node) error {
		for _, c := range n.Children {
			if err := s.hop(ctx, n.Wallet, c.Wallet.PublicKey, c.Amount); err != nil {
				s.logger.Error("hop failed, aborting walk",
					zap.String("from", n.Wallet.Name),
					zap.String("to", c.Wallet.Name),
					zap.Error(err))
				return fmt.Errorf("hop %s -> %s: %w", n.Wallet.Name, c.Wallet.Name, err)
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(tree.Root)
}

// Distribute sends each leaf's payload to its destination. Leaves are
// independent; one failing does not stop the rest.
func (s *Spider) Distribute(ctx context.Context, tree *Tree) []error {
	var failures []error
	for i, leaf := range tree.Leaves {
		if err := s.hop(ctx, leaf.Wallet, tree.Destinations[i], tree.Amounts[i]); err != nil {
			failures = append(failures, fmt.Errorf("distribute %s: %w", leaf.Wallet.Name, err))
		}
	}
	return failures
}

// Collect sweeps every ephemeral wallet's remaining balance to dest.
func (s *Spider) Collect(ctx context.Context, tree *Tree, dest solana.PublicKey) []error {
	var wallets []*wallet.Wallet
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			walk(c)
		}
		wallets = append(wallets, n.Wallet)
	}
	walk(tree.Root)
	return s.sweep(ctx, wallets, dest)
}

// SweepRecovery loads a recovery file and drains every wallet in it to
// dest. This is the disaster path after an interrupted transfer.
func (s *Spider) SweepRecovery(ctx context.Context, path string, dest solana.PublicKey) []error {
	wallets, err := wallet.LoadRecoveryFile(path)
	if err != nil {
		return []error{err}
	}
	return s.sweep(ctx, wallets, dest)
}

func (s *Spider) sweep(ctx context.Context, wallets []*wallet.Wallet, dest solana.PublicKey) []error {
	var failures []error
	for _, w := range wallets {
		balance, err := s.client.GetBalance(ctx, w.PublicKey)
		if err != nil {
			failures = append(failures, fmt.Errorf("balance of %s: %w", w.Name, err))
			continue
		}
		if balance <= baseFee {
			continue
		}
		if err := s.hop(ctx, w, dest, balance-baseFee); err != nil {
			failures = append(failures, fmt.Errorf("sweep %s: %w", w.Name, err))
		}
	}
	return failures
}

// DepthChain moves one amount to dest through a linear chain of hops.
// With bundled set the whole chain lands as a single atomic bundle.
func (s *Spider) DepthChain(ctx context.Context, funder *wallet.Wallet, dest solana.PublicKey, amount uint64, depth int, bundled bool, rf *wallet.RecoveryFile, tipLamports uint64) error {
	if depth < 1 {
		return fmt.Errorf("invalid chain depth: %d", depth)
	}
	if bundled && depth+1 > maxBundleTxs {
		return fmt.Errorf("chain of depth %d needs %d transactions, bundle limit is %d", depth, depth+1, maxBundleTxs)
	}

	chain, err := wallet.Generate("chain", depth)
	if err != nil {
		return err
	}
	for _, w := range chain {
		if err := rf.Append(w); err != nil {
			return fmt.Errorf("failed to back up %s: %w", w.Name, err)
		}
	}

	// Hop i carries the payload plus the reserves still needed below it.
	carried := func(i int) uint64 {
		return amount + s.reserve*uint64(depth-i)
	}

	if bundled {
		groups := make([][]solana.Instruction, 0, depth+1)
		signerGroups := make([][]*wallet.Wallet, 0, depth+1)
		groups = append(groups, []solana.Instruction{transferIx(funder.PublicKey, chain[0].PublicKey, carried(0))})
		signerGroups = append(signerGroups, []*wallet.Wallet{funder})
		for i := 0; i < depth; i++ {
			to := dest
			if i < depth-1 {
				to = chain[i+1].PublicKey
			}
			groups = append(groups, []solana.Instruction{transferIx(chain[i].PublicKey, to, carried(i+1))})
			signerGroups = append(signerGroups, []*wallet.Wallet{chain[i]})
		}
		_, err := s.sender.SendBundle(ctx, groups, signerGroups, funder, tipLamports, tx.SendOpts{})
		return err
	}

	if err := s.hop(ctx, funder, chain[0].PublicKey, carried(0)); err != nil {
		return fmt.Errorf("failed to fund chain: %w", err)
	}
	for i := 0; i < depth; i++ {
		to := dest
		if i < depth-1 {
			to = chain[i+1].PublicKey
		}
		if err := s.hop(ctx, chain[i], to, carried(i+1)); err != nil {
			return fmt.Errorf("chain hop %d: %w", i, err)
		}
	}
	return nil
}

// hop sends lamports with retries, re-reading the payer's live balance
// each attempt so a partially landed attempt cannot overspend.
func (s *Spider) hop(ctx context.Context, from *wallet.Wallet, to solana.PublicKey, lamports uint64) error {
	buildPayload := func(spendable uint64) ([]solana.Instruction, error) {
		if spendable < lamports+baseFee {
			return nil, fmt.Errorf("insufficient balance: have %d, need %d", spendable, lamports+baseFee)
		}
		return []solana.Instruction{transferIx(from.PublicKey, to, lamports)}, nil
	}
	_, err := s.sender.RetrySend(ctx, from, buildPayload, []*wallet.Wallet{from}, tx.SendOpts{Confirm: true}, s.retry)
	return err
}

func transferIx(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}
