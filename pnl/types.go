package pnl

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// CallKind mirrors the opcode/call-type strings geth's callTracer emits.
type CallKind string

const (
	CallKindCall         CallKind = "CALL"
	CallKindCallCode     CallKind = "CALLCODE"
	CallKindDelegateCall CallKind = "DELEGATECALL"
	CallKindStaticCall   CallKind = "STATICCALL"
	CallKindCreate       CallKind = "CREATE"
	CallKindCreate2      CallKind = "CREATE2"
	CallKindSelfDestruct CallKind = "SELFDESTRUCT"
)

// MovesNativeValue reports whether a frame of this kind can carry a native
// value transfer from caller to callee. DELEGATECALL and STATICCALL never
// move value by construction; a CALL/CALLCODE/CREATE/CREATE2/SELFDESTRUCT
// frame moves value only when its Value field is non-zero.
func (k CallKind) MovesNativeValue() bool {
	switch k {
	case CallKindCall, CallKindCallCode, CallKindCreate, CallKindCreate2, CallKindSelfDestruct:
		return true
	default:
		return false
	}
}

func (k CallKind) IsAnyCreate() bool {
	return k == CallKindCreate || k == CallKindCreate2
}

// CallFrame is one node of the call-tracer tree returned by
// debug_traceBlockByNumber/debug_traceTransaction with tracer "callTracer".
type CallFrame struct {
	Type    CallKind       `json:"type"`
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Value   *hexutil.Big   `json:"value,omitempty"`
	Gas     hexutil.Uint64 `json:"gas"`
	GasUsed hexutil.Uint64 `json:"gasUsed"`
	Input   hexutil.Bytes  `json:"input"`
	Output  hexutil.Bytes  `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
	Revert  string         `json:"revertReason,omitempty"`
	Calls   []*CallFrame   `json:"calls,omitempty"`
	Logs    []CallLog      `json:"logs,omitempty"`
}

// NativeValue returns the frame's value as an Unsigned256, treating a nil
// Value (common for zero-value calls) as zero.
func (f *CallFrame) NativeValue() *uint256.Int {
	if f.Value == nil {
		return new(uint256.Int)
	}
	v, overflow := uint256.FromBig(f.Value.ToInt())
	if overflow {
		return new(uint256.Int)
	}
	return v
}

// Failed reports whether the frame reverted or otherwise errored; its
// emitted logs and inner value movements never took effect on-chain.
func (f *CallFrame) Failed() bool { return f.Error != "" || f.Revert != "" }

// CallLog is one log entry emitted inside a traced call frame, in the shape
// debug_traceBlockByNumber's callTracer attaches with WithLog: true.
type CallLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// TxTrace pairs one transaction's call-tracer root frame with its hash, the
// shape debug_traceBlockByNumber returns per-element.
type TxTrace struct {
	TxHash common.Hash `json:"txHash"`
	Result *CallFrame  `json:"result"`
}

// Receipt is the subset of eth_getBlockReceipts/eth_getTransactionReceipt
// fields the engine needs. ExtraL1Fee is populated only on Optimism-family
// chains (chainmeta.IsOptimismFamily) from the receipt's "l1Fee" field.
type Receipt struct {
	TxHash            common.Hash     `json:"transactionHash"`
	TransactionIndex  hexutil.Uint64  `json:"transactionIndex"`
	From              common.Address  `json:"from"`
	To                *common.Address `json:"to"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice"`
	Status            hexutil.Uint64  `json:"status"`
	ExtraL1Fee        *hexutil.Big    `json:"l1Fee,omitempty"`
}

// Reverted reports whether the transaction's top-level status is failure.
func (r *Receipt) Reverted() bool { return r.Status == 0 }

// Header is the subset of eth_getBlockByNumber fields the engine needs.
type Header struct {
	Number     hexutil.Uint64 `json:"number"`
	Hash       common.Hash    `json:"hash"`
	Miner      common.Address `json:"miner"`
	BaseFeeWei *hexutil.Big   `json:"baseFeePerGas,omitempty"`
	Timestamp  hexutil.Uint64 `json:"timestamp"`
	ParentHash common.Hash    `json:"parentHash"`
}

// BlockInput is everything BlockPnLEngine.ProcessBlock needs about one
// block: its header plus, per transaction in order, the receipt and the
// root call frame of its trace.
type BlockInput struct {
	Header   *Header
	Receipts []*Receipt
	Traces   []*TxTrace
}
