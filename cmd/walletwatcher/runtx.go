package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/urfave/cli/v2"

	"github.com/chainsentry/wallet-watcher/internal/rpcprovider"
	"github.com/chainsentry/wallet-watcher/pnl"
)

var runTxCommand = &cli.Command{
	Name:      "run-tx",
	Usage:     "print the balance-change sheet produced by a single transaction",
	ArgsUsage: "<tx-hash>",
	Flags:     []cli.Flag{rpcURLFlag},
	Action:    runTxAction,
}

// runTxAction fetches one transaction's receipt and trace, builds the
// involved-wallets set from its from/to addresses, and prints the
// resulting balance-change sheet — a debugging aid ported from
// cli/run.rs's TxArgs handler.
func runTxAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: walletwatcher run-tx <tx-hash> --rpc-url <url>")
	}
	hash := common.HexToHash(c.Args().Get(0))

	ctx := c.Context
	provider, err := rpcprovider.New(ctx, c.String(rpcURLFlag.Name))
	if err != nil {
		return err
	}
	defer provider.Close()

	receipt, trace, err := fetchTxReceiptAndTrace(ctx, provider.RPC, hash)
	if err != nil {
		return err
	}

	only := map[common.Address]struct{}{receipt.From: {}}
	if receipt.To != nil {
		only[*receipt.To] = struct{}{}
	}

	chainID, err := provider.ChainID(ctx)
	if err != nil {
		return err
	}
	extractor := pnl.NewTransferExtractor(chainID).WithOnlyAddresses(only)
	sheet, err := extractor.Extract(trace.Result)
	if err != nil {
		return err
	}

	for account, td := range sheet {
		fmt.Printf("%s:\n", account.Hex())
		for token, delta := range td {
			fmt.Printf("  %s: %s\n", token.Hex(), delta.String())
		}
	}
	return nil
}

func fetchTxReceiptAndTrace(ctx context.Context, client *rpc.Client, hash common.Hash) (*pnl.Receipt, *pnl.TxTrace, error) {
	var receipt pnl.Receipt
	var frame pnl.CallFrame
	batch := []rpc.BatchElem{
		{Method: "eth_getTransactionReceipt", Args: []interface{}{hash}, Result: &receipt},
		{Method: "debug_traceTransaction", Args: []interface{}{hash, map[string]interface{}{"tracer": "callTracer", "tracerConfig": map[string]bool{"withLog": true}}}, Result: &frame},
	}
	if err := client.BatchCallContext(ctx, batch); err != nil {
		return nil, nil, err
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return nil, nil, fmt.Errorf("%s: %w", elem.Method, elem.Error)
		}
	}
	return &receipt, &pnl.TxTrace{TxHash: hash, Result: &frame}, nil
}
