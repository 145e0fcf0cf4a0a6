package pnl

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/chainsentry/wallet-watcher/internal/chainmeta"
)

// Well-known event signatures decoded directly from topic0, matching the
// hand-decoded style the pack's deposit watcher uses rather than reflecting
// over generated contract bindings.
var (
	transferTopic0   = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	depositTopic0    = common.HexToHash("0xe1fffcc4923d04b559f4d29a8bfc6cda04eb5b0d3c460751c2402c5c5cc9109c")
	withdrawalTopic0 = common.HexToHash("0x7fcf532c15f0a6db0bd6d0e038bea71d30d808c7d98cb3bf7268a95bf5081b65")
)

// TransferExtractor walks a transaction's call-tracer frame tree and emits
// every balance-moving event it finds — ERC-20 Transfer logs, WETH9
// Deposit/Withdrawal logs translated into native-currency transfers, and
// native value carried by CALL/CALLCODE/CREATE/CREATE2/SELFDESTRUCT frames
// (never DELEGATECALL/STATICCALL, which cannot move value).
type TransferExtractor struct {
	ChainID uint64

	// OnlyAddresses, when non-empty, restricts emitted transfers to those
	// touching at least one of these accounts on either side. A nil/empty
	// map means no filtering.
	OnlyAddresses map[common.Address]struct{}
}

// NewTransferExtractor builds an extractor for chainID with no address
// filter.
func NewTransferExtractor(chainID uint64) *TransferExtractor {
	return &TransferExtractor{ChainID: chainID}
}

// WithOnlyAddresses returns a copy of the extractor restricted to the given
// address set.
func (x *TransferExtractor) WithOnlyAddresses(addrs map[common.Address]struct{}) *TransferExtractor {
	return &TransferExtractor{ChainID: x.ChainID, OnlyAddresses: addrs}
}

func (x *TransferExtractor) passesFilter(from, to common.Address) bool {
	if len(x.OnlyAddresses) == 0 {
		return true
	}
	if _, ok := x.OnlyAddresses[from]; ok {
		return true
	}
	if _, ok := x.OnlyAddresses[to]; ok {
		return true
	}
	return false
}

// Extract walks root breadth-first (an explicit slice-backed queue, not
// recursion, so a pathologically deep call tree cannot blow the Go stack)
// and returns the resulting BalanceChangeSheet for the whole transaction.
// Reverted/errored frames are skipped entirely: neither their logs nor
// their own value movement took effect on-chain, and nothing beneath a
// failed frame can have taken effect either, so its subtree is never
// enqueued.
func (x *TransferExtractor) Extract(root *CallFrame) (BalanceChangeSheet, error) {
	sheet := NewBalanceChangeSheet()
	if root == nil {
		return sheet, nil
	}

	queue := []*CallFrame{root}
	for len(queue) > 0 {
		frame := queue[0]
		queue = queue[1:]

		if frame.Failed() {
			continue
		}

		if err := x.emitLogTransfers(sheet, frame); err != nil {
			return nil, err
		}
		if err := x.emitNativeTransfer(sheet, frame); err != nil {
			return nil, err
		}

		queue = append(queue, frame.Calls...)
	}

	return sheet.PruneZero(), nil
}

func (x *TransferExtractor) emitNativeTransfer(sheet BalanceChangeSheet, frame *CallFrame) error {
	if !frame.Type.MovesNativeValue() {
		return nil
	}
	value := frame.NativeValue()
	if value.IsZero() {
		return nil
	}
	if !x.passesFilter(frame.From, frame.To) {
		return nil
	}
	delta := SignedFromUnsigned256(value)
	var zero common.Address
	if err := sheet.AppendTransfer(frame.From, frame.To, zero, delta); err != nil {
		return wrapOverflow("TransferExtractor.emitNativeTransfer", err)
	}
	return nil
}

func (x *TransferExtractor) emitLogTransfers(sheet BalanceChangeSheet, frame *CallFrame) error {
	weth9 := chainmeta.IsWETH9Emitter(x.ChainID)
	wrapped, hasWrapped := chainmeta.WrappedNative(x.ChainID)

	for _, l := range frame.Logs {
		if len(l.Topics) == 0 {
			continue
		}
		switch l.Topics[0] {
		case transferTopic0:
			if err := x.handleTransferLog(sheet, l); err != nil {
				return err
			}
		case depositTopic0:
			if weth9 && hasWrapped && l.Address == wrapped {
				if err := x.handleWETH9Deposit(sheet, l, wrapped); err != nil {
					return err
				}
			}
		case withdrawalTopic0:
			if weth9 && hasWrapped && l.Address == wrapped {
				if err := x.handleWETH9Withdrawal(sheet, l, wrapped); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// handleTransferLog decodes Transfer(address indexed from, address indexed
// to, uint256 value): topics[1]/topics[2] are the padded addresses, data is
// the 32-byte value.
func (x *TransferExtractor) handleTransferLog(sheet BalanceChangeSheet, l CallLog) error {
	if len(l.Topics) < 3 || len(l.Data) < 32 {
		return nil // non-standard Transfer-shaped event (e.g. indexed value); skip rather than fail the block
	}
	from := common.BytesToAddress(l.Topics[1].Bytes())
	to := common.BytesToAddress(l.Topics[2].Bytes())
	if !x.passesFilter(from, to) {
		return nil
	}
	value := new(uint256.Int).SetBytes(l.Data[:32])
	delta := SignedFromUnsigned256(value)
	if err := sheet.AppendTransfer(from, to, l.Address, delta); err != nil {
		return wrapOverflow("TransferExtractor.handleTransferLog", err)
	}
	return nil
}

// handleWETH9Deposit decodes Deposit(address indexed dst, uint256 wad) and
// translates it into a mint of the wrapped-native token to dst: the
// native-value CALL frame carrying this log books dst's native outflow to
// the WETH9 contract, so the wrap itself only needs to credit the token side.
func (x *TransferExtractor) handleWETH9Deposit(sheet BalanceChangeSheet, l CallLog, wrapped common.Address) error {
	if len(l.Topics) < 2 || len(l.Data) < 32 {
		return nil
	}
	dst := common.BytesToAddress(l.Topics[1].Bytes())
	var zero common.Address
	if !x.passesFilter(zero, dst) {
		return nil
	}
	value := new(uint256.Int).SetBytes(l.Data[:32])
	delta := SignedFromUnsigned256(value)
	if err := sheet.AppendTransfer(zero, dst, wrapped, delta); err != nil {
		return wrapOverflow("TransferExtractor.handleWETH9Deposit", err)
	}
	return nil
}

// handleWETH9Withdrawal decodes Withdrawal(address indexed src, uint256
// wad): a burn of the wrapped-native token from src, mirroring
// handleWETH9Deposit.
func (x *TransferExtractor) handleWETH9Withdrawal(sheet BalanceChangeSheet, l CallLog, wrapped common.Address) error {
	if len(l.Topics) < 2 || len(l.Data) < 32 {
		return nil
	}
	src := common.BytesToAddress(l.Topics[1].Bytes())
	var zero common.Address
	if !x.passesFilter(src, zero) {
		return nil
	}
	value := new(uint256.Int).SetBytes(l.Data[:32])
	delta := SignedFromUnsigned256(value)
	if err := sheet.AppendTransfer(src, zero, wrapped, delta); err != nil {
		return wrapOverflow("TransferExtractor.handleWETH9Withdrawal", err)
	}
	return nil
}
