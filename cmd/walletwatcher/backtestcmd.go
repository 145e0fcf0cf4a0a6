package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/chainsentry/wallet-watcher/internal/backtest"
	alog "github.com/chainsentry/wallet-watcher/log"
)

var generateFlag = &cli.BoolFlag{
	Name:  "generate",
	Usage: "replay every case and rewrite the fixture file with freshly computed reports",
}

var chainIDFlag = &cli.Uint64Flag{
	Name:     "chain-id",
	Usage:    "chain id to replay against",
	Required: true,
}

var backtestCommand = &cli.Command{
	Name:      "backtest",
	Usage:     "replay recorded (block, wallet) fixtures against a live RPC endpoint",
	ArgsUsage: "<test-data.yaml>",
	Flags:     []cli.Flag{rpcURLFlag, chainIDFlag, generateFlag},
	Action:    runBacktest,
}

func runBacktest(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: walletwatcher backtest <test-data.yaml> --rpc-url <url> --chain-id <id>")
	}
	path := c.Args().Get(0)
	rpcURL := c.String(rpcURLFlag.Name)
	chainID := c.Uint64(chainIDFlag.Name)

	cases, err := backtest.Load(path)
	if err != nil {
		return err
	}

	ctx := c.Context
	if c.Bool(generateFlag.Name) {
		if err := backtest.Generate(ctx, rpcURL, chainID, path, cases); err != nil {
			return err
		}
		fmt.Printf("regenerated %d cases into %s\n", len(cases), path)
		return nil
	}

	summary := backtest.Run(ctx, rpcURL, chainID, cases)
	passed, unmatched, failed := summary.Counts()
	for _, r := range summary.Results {
		line := fmt.Sprintf("[%d] block=%d address=%s remark=%q: %s", r.Index, r.Case.Block, r.Case.Address, r.Case.Remark, r.Outcome)
		if r.Err != nil {
			line += fmt.Sprintf(" (%v)", r.Err)
		}
		fmt.Println(alog.Uncolor(line))
	}
	fmt.Printf("\n%d passed, %d unmatched, %d failed\n", passed, unmatched, failed)
	if failed > 0 || unmatched > 0 {
		return fmt.Errorf("backtest: %d unmatched, %d failed", unmatched, failed)
	}
	return nil
}
