package pnl

import (
	"errors"

	"github.com/chainsentry/wallet-watcher/internal/pnlerr"
)

// ErrArithmeticOverflow is wrapped by pnlerr.ArithmeticOverflow whenever a
// balance delta would leave the representable 256-bit two's-complement range.
var ErrArithmeticOverflow = errors.New("256-bit arithmetic overflow")

// ErrMalformedTrace marks a call-tracer frame that does not match the shape
// BlockPnLEngine expects (missing fields, unknown call type, unparsable log).
var ErrMalformedTrace = errors.New("malformed trace")

func wrapOverflow(op string, err error) error {
	return pnlerr.New(pnlerr.ArithmeticOverflow, op, err)
}

func wrapTrace(op string, err error) error {
	return pnlerr.New(pnlerr.MalformedTrace, op, err)
}
