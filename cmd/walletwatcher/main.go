// Command walletwatcher watches configured EVM wallets and alerts on their
// per-block realized PnL. Ported from cli/mod.rs's Start/RunTx/RunBlock/
// Backtest command dispatch.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var rpcURLFlag = &cli.StringFlag{
	Name:    "rpc-url",
	Usage:   "JSON-RPC endpoint URL (http(s)://, ws(s)://, file://)",
	EnvVars: []string{"ETH_RPC_URL"},
}

func main() {
	app := &cli.App{
		Name:  "walletwatcher",
		Usage: "watch EVM wallets and alert on per-block realized PnL",
		Flags: loggingFlags,
		Before: func(c *cli.Context) error {
			return setupLogging(c)
		},
		Commands: []*cli.Command{
			startCommand,
			runTxCommand,
			runBlockCommand,
			backtestCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("walletwatcher exiting", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
