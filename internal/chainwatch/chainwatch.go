// Package chainwatch runs one chain's watch loop: subscribe to new block
// headers, fetch and process each block serially, and dispatch any
// resulting alerts. Ported in spirit from strategy.rs's WalletWatcher;
// logs and continues on a per-block failure rather than terminating the
// process, matching the Rust Strategy trait's behavior.
package chainwatch

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/chainsentry/wallet-watcher/internal/alertdispatch"
	"github.com/chainsentry/wallet-watcher/internal/alertmsg"
	"github.com/chainsentry/wallet-watcher/internal/erc20meta"
	"github.com/chainsentry/wallet-watcher/internal/rpcfeed"
	"github.com/chainsentry/wallet-watcher/internal/rpcprovider"
	"github.com/chainsentry/wallet-watcher/internal/watchconfig"
	"github.com/chainsentry/wallet-watcher/pnl"
)

// Watcher owns one chain's provider connection, its watched wallets, and
// the components needed to turn a new block into dispatched alerts.
type Watcher struct {
	ChainID    uint64
	Provider   *rpcprovider.Provider
	Fetcher    *rpcfeed.Fetcher
	Engine     *pnl.BlockPnLEngine
	Wallets    []watchconfig.RoutedWallet
	TokenCache *erc20meta.Cache
	Dispatcher alertdispatch.Dispatcher

	// blockQueue buffers headers between the subscription callback and
	// the single goroutine that processes them, so blocks for this chain
	// are always handled one at a time and in order, while the
	// subscription itself only blocks on a slow block once the buffer is
	// full.
	blockQueue chan *types.Header
}

// New builds a Watcher. blockQueueSize bounds how many pending headers can
// back up if block processing falls behind the chain's block time.
func New(chainID uint64, provider *rpcprovider.Provider, fetcher *rpcfeed.Fetcher, engine *pnl.BlockPnLEngine, wallets []watchconfig.RoutedWallet, tokenCache *erc20meta.Cache, dispatcher alertdispatch.Dispatcher, blockQueueSize int) *Watcher {
	if blockQueueSize <= 0 {
		blockQueueSize = 16
	}
	return &Watcher{
		ChainID:    chainID,
		Provider:   provider,
		Fetcher:    fetcher,
		Engine:     engine,
		Wallets:    wallets,
		TokenCache: tokenCache,
		Dispatcher: dispatcher,
		blockQueue: make(chan *types.Header, blockQueueSize),
	}
}

// Run subscribes to new heads and processes blocks serially until ctx is
// canceled or the subscription fails. One goroutine per chain is expected
// to call Run; processing itself never runs concurrently within a chain
// because the single loop below both receives headers and processes them.
func (w *Watcher) Run(ctx context.Context) error {
	sub, err := w.Provider.Eth.SubscribeNewHead(ctx, w.blockQueue)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case header := <-w.blockQueue:
			w.processBlock(ctx, header.Number.Uint64())
		}
	}
}

// processBlock fetches, accounts for, formats and dispatches alerts for
// one block. Any failure is logged with the block number and the chain
// keeps running — a single bad block must never take down the watcher.
func (w *Watcher) processBlock(ctx context.Context, blockNumber uint64) {
	start := time.Now()

	block, err := w.Fetcher.FetchBlock(ctx, blockNumber)
	if err != nil {
		log.Error("chainwatch: fetch failed", "chain", w.ChainID, "block", blockNumber, "err", err)
		return
	}

	contexts := make([]*pnl.WalletContext, len(w.Wallets))
	for i, rw := range w.Wallets {
		contexts[i] = rw.Context
	}

	reports, err := w.Engine.ProcessBlock(block, contexts)
	if err != nil {
		log.Error("chainwatch: process failed", "chain", w.ChainID, "block", blockNumber, "err", err)
		return
	}

	tokenLookup := func(tok common.Address) erc20meta.Info { return w.TokenCache.Lookup(ctx, tok) }

	for _, rw := range w.Wallets {
		report, ok := reports[rw.Context]
		if !ok {
			continue
		}
		text, err := alertmsg.Generate(w.ChainID, blockNumber, rw.Context, report, tokenLookup)
		if err != nil {
			log.Error("chainwatch: format failed", "chain", w.ChainID, "block", blockNumber, "wallet", rw.Context.Name, "err", err)
			continue
		}
		if err := w.Dispatcher.Send(ctx, rw.Alert, text); err != nil {
			log.Error("chainwatch: dispatch failed", "chain", w.ChainID, "block", blockNumber, "wallet", rw.Context.Name, "err", err)
		}
	}

	log.Info("chainwatch: processed block", "chain", w.ChainID, "block", blockNumber, "elapsed", time.Since(start))
}
