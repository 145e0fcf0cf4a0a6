package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/chainsentry/wallet-watcher/internal/alertmsg"
	"github.com/chainsentry/wallet-watcher/internal/erc20meta"
	"github.com/chainsentry/wallet-watcher/internal/rpcfeed"
	"github.com/chainsentry/wallet-watcher/internal/rpcprovider"
	"github.com/chainsentry/wallet-watcher/pnl"
)

var (
	builderFlag          = &cli.StringFlag{Name: "builder", Usage: "builder address this wallet controls, if any"}
	otherAddressesFlag   = &cli.StringFlag{Name: "other-addresses", Usage: "comma-separated extra addresses folded into the same report"}
	includeRecipientFlag = &cli.BoolFlag{Name: "include-recipient", Usage: "fold in one hop of direct transaction recipients"}
)

var runBlockCommand = &cli.Command{
	Name:      "run-block",
	Usage:     "process one block for one wallet and print the resulting report",
	ArgsUsage: "<block-number> <address>",
	Flags:     []cli.Flag{rpcURLFlag, builderFlag, otherAddressesFlag, includeRecipientFlag},
	Action:    runBlockAction,
}

// runBlockAction builds a single WalletContext, processes the block, and
// prints both the raw report and its rendered alert text. Ported from
// cli/run.rs's BlockArgs handler.
func runBlockAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: walletwatcher run-block <block-number> <address> --rpc-url <url>")
	}
	blockNumber, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid block number: %w", err)
	}
	address := common.HexToAddress(c.Args().Get(1))

	var other []common.Address
	if raw := c.String(otherAddressesFlag.Name); raw != "" {
		for _, a := range strings.Split(raw, ",") {
			other = append(other, common.HexToAddress(strings.TrimSpace(a)))
		}
	}

	ctx := c.Context
	provider, err := rpcprovider.New(ctx, c.String(rpcURLFlag.Name))
	if err != nil {
		return err
	}
	defer provider.Close()

	chainID, err := provider.ChainID(ctx)
	if err != nil {
		return err
	}

	block, err := rpcfeed.New(provider.RPC).FetchBlock(ctx, blockNumber)
	if err != nil {
		return err
	}

	var builder *common.Address
	if raw := c.String(builderFlag.Name); raw != "" {
		b := common.HexToAddress(raw)
		builder = &b
	}
	wc := pnl.NewWalletContext(address.Hex(), address, builder, other, c.Bool(includeRecipientFlag.Name))

	reports, err := pnl.NewBlockPnLEngine(chainID).ProcessBlock(block, []*pnl.WalletContext{wc})
	if err != nil {
		return err
	}
	report, ok := reports[wc]
	if !ok {
		fmt.Println("no report: wallet had nothing to account for in this block")
		return nil
	}

	fmt.Printf("native pnl: %s\n", report.NativePnL.String())
	for token, delta := range report.TokenChanges {
		fmt.Printf("token %s: %s\n", token.Hex(), delta.String())
	}

	tokenCache := erc20meta.New(chainID, provider.Eth)
	text, err := alertmsg.Generate(chainID, blockNumber, wc, report, func(t common.Address) erc20meta.Info { return tokenCache.Lookup(ctx, t) })
	if err != nil {
		return err
	}
	fmt.Println("---")
	fmt.Println(text)
	return nil
}
