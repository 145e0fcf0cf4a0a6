package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/chainsentry/wallet-watcher/internal/alertdispatch"
	"github.com/chainsentry/wallet-watcher/internal/chainwatch"
	"github.com/chainsentry/wallet-watcher/internal/erc20meta"
	"github.com/chainsentry/wallet-watcher/internal/rpcfeed"
	"github.com/chainsentry/wallet-watcher/internal/rpcprovider"
	"github.com/chainsentry/wallet-watcher/internal/watchconfig"
	"github.com/chainsentry/wallet-watcher/pnl"
)

var startCommand = &cli.Command{
	Name:      "start",
	Usage:     "watch every chain/wallet in a configuration file",
	ArgsUsage: "[config-path]",
	Action:    runStart,
}

// runStart loads the config and spawns one goroutine per configured
// chain, each running its own chainwatch.Watcher until the process is
// stopped or a chain's subscription fails unrecoverably. Ported from
// cli/start.rs's per-chain tokio::spawn loop.
func runStart(c *cli.Context) error {
	path := "config.toml"
	if c.NArg() > 0 {
		path = c.Args().Get(0)
	}
	cfg, err := watchconfig.FromFile(path)
	if err != nil {
		return err
	}

	ctx := c.Context
	g, gctx := errgroup.WithContext(ctx)
	dispatcher := alertdispatch.NewTelegramDispatcher()

	for chainName, rpcURL := range cfg.Chains {
		chainName, rpcURL := chainName, rpcURL
		g.Go(func() error {
			return runChain(gctx, cfg, chainName, rpcURL, dispatcher)
		})
	}

	return g.Wait()
}

func runChain(ctx context.Context, cfg *watchconfig.Config, chainName, rpcURL string, dispatcher alertdispatch.Dispatcher) error {
	provider, err := rpcprovider.New(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("chain %s: dial: %w", chainName, err)
	}
	defer provider.Close()

	chainID, err := provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain %s: fetch chain id: %w", chainName, err)
	}

	wallets, err := cfg.WalletsByChain(chainName)
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		log.Warn("no wallets configured for chain, skipping", "chain", chainName)
		return nil
	}

	watcher := chainwatch.New(
		chainID,
		provider,
		rpcfeed.New(provider.RPC),
		pnl.NewBlockPnLEngine(chainID),
		wallets,
		erc20meta.New(chainID, provider.Eth),
		dispatcher,
		16,
	)

	log.Info("watching chain", "chain", chainName, "chain_id", chainID, "wallets", len(wallets))
	return watcher.Run(ctx)
}
