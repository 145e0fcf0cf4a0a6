package pnl

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/chainsentry/wallet-watcher/internal/chainmeta"
)

func topicAddr(a common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], a.Bytes())
	return h
}

func dataUint(v int64) []byte {
	var h common.Hash
	big.NewInt(v).FillBytes(h[:])
	return h[:]
}

func TestExtractNativeValueCallTransfer(t *testing.T) {
	a, b := addr("0x1"), addr("0x2")
	root := &CallFrame{
		Type:  CallKindCall,
		From:  a,
		To:    b,
		Value: (*hexutil.Big)(big.NewInt(1000)),
	}

	x := NewTransferExtractor(chainMainnetForTest)
	sheet, err := x.Extract(root)
	if err != nil {
		t.Fatal(err)
	}
	var native common.Address
	if sheet[a][native].Big().Cmp(big.NewInt(-1000)) != 0 {
		t.Fatalf("sender delta: %v", sheet[a])
	}
	if sheet[b][native].Big().Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("recipient delta: %v", sheet[b])
	}
}

func TestExtractDelegateCallNeverMovesValue(t *testing.T) {
	a, b := addr("0x1"), addr("0x2")
	root := &CallFrame{
		Type:  CallKindDelegateCall,
		From:  a,
		To:    b,
		Value: (*hexutil.Big)(big.NewInt(1000)),
	}
	x := NewTransferExtractor(chainMainnetForTest)
	sheet, err := x.Extract(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(sheet) != 0 {
		t.Fatalf("DELEGATECALL must never move value, got %v", sheet)
	}
}

func TestExtractRevertedFrameIsolated(t *testing.T) {
	a, b, c := addr("0x1"), addr("0x2"), addr("0x3")
	root := &CallFrame{
		Type: CallKindCall,
		From: a,
		To:   b,
		Calls: []*CallFrame{
			{
				Type:  CallKindCall,
				From:  b,
				To:    c,
				Value: (*hexutil.Big)(big.NewInt(500)),
				Error: "execution reverted",
			},
		},
	}
	x := NewTransferExtractor(chainMainnetForTest)
	sheet, err := x.Extract(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(sheet) != 0 {
		t.Fatalf("reverted subtree must not contribute transfers, got %v", sheet)
	}
}

func TestExtractERC20TransferLog(t *testing.T) {
	token := addr("0x70")
	from, to := addr("0x1"), addr("0x2")
	root := &CallFrame{
		Type: CallKindCall,
		From: from,
		To:   token,
		Logs: []CallLog{
			{
				Address: token,
				Topics:  []common.Hash{transferTopic0, topicAddr(from), topicAddr(to)},
				Data:    dataUint(42),
			},
		},
	}
	x := NewTransferExtractor(chainMainnetForTest)
	sheet, err := x.Extract(root)
	if err != nil {
		t.Fatal(err)
	}
	if sheet[from][token].Big().Cmp(big.NewInt(-42)) != 0 {
		t.Fatalf("sender token delta: %v", sheet[from])
	}
	if sheet[to][token].Big().Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("recipient token delta: %v", sheet[to])
	}
}

func TestExtractOnlyAddressesFilter(t *testing.T) {
	a, b, c := addr("0x1"), addr("0x2"), addr("0x3")
	root := &CallFrame{
		Type: CallKindCall,
		From: a,
		To:   b,
		Calls: []*CallFrame{
			{Type: CallKindCall, From: b, To: c, Value: (*hexutil.Big)(big.NewInt(1))},
		},
	}
	x := NewTransferExtractor(chainMainnetForTest).WithOnlyAddresses(map[common.Address]struct{}{a: {}})
	sheet, err := x.Extract(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sheet[c]; ok {
		t.Fatalf("transfer not touching the filter set should be excluded, got %v", sheet)
	}
}

func TestExtractWETH9DepositMintsWrappedNative(t *testing.T) {
	wrapped, ok := chainmeta.WrappedNative(chainMainnetForTest)
	if !ok {
		t.Fatal("mainnet must have a wrapped-native token configured")
	}
	a := addr("0xA")
	const amount = 2_000_000_000_000_000_000

	root := &CallFrame{
		Type:  CallKindCall,
		From:  a,
		To:    wrapped,
		Value: (*hexutil.Big)(big.NewInt(amount)),
		Logs: []CallLog{
			{
				Address: wrapped,
				Topics:  []common.Hash{depositTopic0, topicAddr(a)},
				Data:    dataUint(amount),
			},
		},
	}

	x := NewTransferExtractor(chainMainnetForTest)
	sheet, err := x.Extract(root)
	if err != nil {
		t.Fatal(err)
	}

	var zero common.Address
	if sheet[a][zero].Big().Cmp(big.NewInt(-amount)) != 0 {
		t.Fatalf("expected native outflow from the wrapping CALL itself, got %v", sheet[a])
	}
	if sheet[a][wrapped].Big().Cmp(big.NewInt(amount)) != 0 {
		t.Fatalf("expected a wrapped-native mint to %s, got %v", a, sheet[a])
	}
}

func TestExtractWETH9WithdrawalBurnsWrappedNative(t *testing.T) {
	wrapped, ok := chainmeta.WrappedNative(chainMainnetForTest)
	if !ok {
		t.Fatal("mainnet must have a wrapped-native token configured")
	}
	a := addr("0xA")
	const amount = 2_000_000_000_000_000_000

	root := &CallFrame{
		Type:  CallKindCall,
		From:  wrapped,
		To:    a,
		Value: (*hexutil.Big)(big.NewInt(amount)),
		Logs: []CallLog{
			{
				Address: wrapped,
				Topics:  []common.Hash{withdrawalTopic0, topicAddr(a)},
				Data:    dataUint(amount),
			},
		},
	}

	x := NewTransferExtractor(chainMainnetForTest)
	sheet, err := x.Extract(root)
	if err != nil {
		t.Fatal(err)
	}

	var zero common.Address
	if sheet[a][zero].Big().Cmp(big.NewInt(amount)) != 0 {
		t.Fatalf("expected native inflow from the unwrapping CALL itself, got %v", sheet[a])
	}
	if sheet[a][wrapped].Big().Cmp(big.NewInt(-amount)) != 0 {
		t.Fatalf("expected a wrapped-native burn from %s, got %v", a, sheet[a])
	}
}

const chainMainnetForTest = 1
