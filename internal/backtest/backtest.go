// Package backtest replays recorded (chain, block, wallet) scenarios
// against a live RPC endpoint and checks the engine reproduces the stored
// report. Ported from cli/backtest.rs: each case gets its own provider
// connection so one stuck RPC call can't head-of-line block the rest, and
// concurrency is capped at 2x the CPU count via a bounded worker group.
package backtest

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/chainsentry/wallet-watcher/internal/rpcfeed"
	"github.com/chainsentry/wallet-watcher/internal/rpcprovider"
	"github.com/chainsentry/wallet-watcher/pnl"
)

// TestCase is one fixture entry: which block to replay, which wallet to
// evaluate, and (once --generate has run) the report the engine produced
// last time, checked against on every subsequent run.
type TestCase struct {
	Remark           string         `yaml:"remark,omitempty"`
	Block            uint64         `yaml:"block"`
	Address          string         `yaml:"address"`
	Builder          string         `yaml:"builder,omitempty"`
	OtherAddresses   []string       `yaml:"other_addresses,omitempty"`
	IncludeRecipient bool           `yaml:"include_recipient,omitempty"`
	Report           *pnl.PnlReport `yaml:"report,omitempty"`
}

// Outcome classifies one case's result.
type Outcome int

const (
	Passed Outcome = iota
	Unmatched
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Unmatched:
		return "unmatched"
	default:
		return "failed"
	}
}

// Result is one case's run outcome.
type Result struct {
	Index   int
	Case    TestCase
	Outcome Outcome
	Err     error
	Got     *pnl.PnlReport
}

// Summary aggregates every case's Result.
type Summary struct {
	Results []Result
}

func (s Summary) Counts() (passed, unmatched, failed int) {
	for _, r := range s.Results {
		switch r.Outcome {
		case Passed:
			passed++
		case Unmatched:
			unmatched++
		case Failed:
			failed++
		}
	}
	return
}

// Run replays every case in cases against rpcURL, dialing one independent
// provider per case, bounded to 2x runtime.NumCPU() concurrent cases.
func Run(ctx context.Context, rpcURL string, chainID uint64, cases []TestCase) Summary {
	results := make([]Result, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2 * runtime.NumCPU())

	var mu sync.Mutex
	for i, tc := range cases {
		i, tc := i, tc
		g.Go(func() error {
			res := runCase(gctx, rpcURL, chainID, i, tc)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-case errors are captured in Result, never aborts the batch

	return Summary{Results: results}
}

func runCase(ctx context.Context, rpcURL string, chainID uint64, index int, tc TestCase) Result {
	if !common.IsHexAddress(tc.Address) {
		return Result{Index: index, Case: tc, Outcome: Failed, Err: fmt.Errorf("invalid address %q", tc.Address)}
	}

	provider, err := rpcprovider.New(ctx, rpcURL)
	if err != nil {
		return Result{Index: index, Case: tc, Outcome: Failed, Err: fmt.Errorf("dial: %w", err)}
	}
	defer provider.Close()

	fetcher := rpcfeed.New(provider.RPC)
	block, err := fetcher.FetchBlock(ctx, tc.Block)
	if err != nil {
		return Result{Index: index, Case: tc, Outcome: Failed, Err: fmt.Errorf("fetch block %d: %w", tc.Block, err)}
	}

	if tc.Builder != "" && !common.IsHexAddress(tc.Builder) {
		return Result{Index: index, Case: tc, Outcome: Failed, Err: fmt.Errorf("invalid builder address %q", tc.Builder)}
	}
	var builder *common.Address
	if tc.Builder != "" {
		b := common.HexToAddress(tc.Builder)
		builder = &b
	}
	other := make([]common.Address, 0, len(tc.OtherAddresses))
	for _, a := range tc.OtherAddresses {
		other = append(other, common.HexToAddress(a))
	}
	wc := pnl.NewWalletContext(tc.Address, common.HexToAddress(tc.Address), builder, other, tc.IncludeRecipient)

	engine := pnl.NewBlockPnLEngine(chainID)
	reports, err := engine.ProcessBlock(block, []*pnl.WalletContext{wc})
	if err != nil {
		return Result{Index: index, Case: tc, Outcome: Failed, Err: fmt.Errorf("process block %d: %w", tc.Block, err)}
	}
	got := reports[wc]

	if tc.Report == nil {
		return Result{Index: index, Case: tc, Outcome: Unmatched, Got: got}
	}
	if !reportsEqual(tc.Report, got) {
		return Result{Index: index, Case: tc, Outcome: Unmatched, Got: got,
			Err: fmt.Errorf("reproduce with: walletwatcher run-block %d %s --rpc-url %s", tc.Block, tc.Address, rpcURL)}
	}
	return Result{Index: index, Case: tc, Outcome: Passed, Got: got}
}

func reportsEqual(a, b *pnl.PnlReport) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Generate replays every case and rewrites path with the freshly computed
// report attached to each, preserving input order, so the fixture file can
// be regenerated after a deliberate accounting change.
func Generate(ctx context.Context, rpcURL string, chainID uint64, path string, cases []TestCase) error {
	summary := Run(ctx, rpcURL, chainID, cases)

	updated := make([]TestCase, len(cases))
	for _, r := range summary.Results {
		tc := r.Case
		tc.Report = r.Got
		updated[r.Index] = tc
	}

	out, err := yaml.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal updated fixtures: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

// Load reads a YAML fixture file into a slice of TestCase.
func Load(path string) ([]TestCase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []TestCase
	if err := yaml.Unmarshal(raw, &cases); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return cases, nil
}
