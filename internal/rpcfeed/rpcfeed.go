// Package rpcfeed fetches one block's receipts and call-tracer traces in a
// single batched JSON-RPC round trip. Grounded on the coinbase-mesh
// Optimism client's getTransactionTraces/getBlockReceipts, which build
// rpc.BatchElem slices and submit them together via BatchCallContext
// instead of one call per transaction.
package rpcfeed

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/chainsentry/wallet-watcher/internal/pnlerr"
	"github.com/chainsentry/wallet-watcher/pnl"
)

// traceConfig matches the shape debug_traceBlockByNumber expects for its
// second argument when requesting the callTracer with logs attached.
type traceConfig struct {
	Tracer       string            `json:"tracer"`
	TracerConfig traceTracerConfig `json:"tracerConfig"`
}

type traceTracerConfig struct {
	WithLog bool `json:"withLog"`
}

var defaultTraceConfig = traceConfig{
	Tracer:       "callTracer",
	TracerConfig: traceTracerConfig{WithLog: true},
}

// Fetcher retrieves BlockInput values for a single chain's RPC endpoint.
type Fetcher struct {
	client *rpc.Client
}

// New wraps an already-dialed *rpc.Client.
func New(client *rpc.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchBlock retrieves the header, every transaction receipt and every
// transaction's call-tracer trace for blockNumber, running the header
// lookup concurrently with the batched receipts+traces round trip.
func (f *Fetcher) FetchBlock(ctx context.Context, blockNumber uint64) (*pnl.BlockInput, error) {
	hexBlock := fmt.Sprintf("0x%x", blockNumber)

	var header *pnl.Header
	var receipts []*pnl.Receipt
	var traces []*pnl.TxTrace

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := f.fetchHeader(gctx, hexBlock)
		if err != nil {
			return err
		}
		header = h
		return nil
	})
	g.Go(func() error {
		r, t, err := f.fetchReceiptsAndTraces(gctx, hexBlock)
		if err != nil {
			return err
		}
		receipts, traces = r, t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(receipts) != len(traces) {
		return nil, pnlerr.New(pnlerr.MalformedTrace, "rpcfeed.FetchBlock",
			fmt.Errorf("block %d: %d receipts but %d traces", blockNumber, len(receipts), len(traces)))
	}

	return &pnl.BlockInput{Header: header, Receipts: receipts, Traces: traces}, nil
}

func (f *Fetcher) fetchHeader(ctx context.Context, hexBlock string) (*pnl.Header, error) {
	var h pnl.Header
	if err := f.client.CallContext(ctx, &h, "eth_getBlockByNumber", hexBlock, false); err != nil {
		return nil, pnlerr.New(pnlerr.RpcFailure, "rpcfeed.fetchHeader", err)
	}
	return &h, nil
}

// fetchReceiptsAndTraces submits eth_getBlockReceipts and
// debug_traceBlockByNumber as a single batch, the block-level analogue of
// the pack's per-transaction BatchElem pattern.
func (f *Fetcher) fetchReceiptsAndTraces(ctx context.Context, hexBlock string) ([]*pnl.Receipt, []*pnl.TxTrace, error) {
	var receipts []*pnl.Receipt
	var traces []*pnl.TxTrace

	batch := []rpc.BatchElem{
		{
			Method: "eth_getBlockReceipts",
			Args:   []interface{}{hexBlock},
			Result: &receipts,
		},
		{
			Method: "debug_traceBlockByNumber",
			Args:   []interface{}{hexBlock, defaultTraceConfig},
			Result: &traces,
		},
	}

	if err := f.client.BatchCallContext(ctx, batch); err != nil {
		return nil, nil, pnlerr.New(pnlerr.RpcFailure, "rpcfeed.fetchReceiptsAndTraces", err)
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return nil, nil, pnlerr.New(pnlerr.RpcFailure, "rpcfeed.fetchReceiptsAndTraces",
				fmt.Errorf("%s: %w", elem.Method, elem.Error))
		}
	}
	return receipts, traces, nil
}
