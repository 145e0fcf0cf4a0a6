// Package pnl computes per-block, per-wallet realized profit-and-loss from
// transaction receipts and their call-tracer frames.
package pnl

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// maxAbs256 is 2**256, the modulus used to reinterpret a raw uint256 as a
// two's-complement value.
var maxAbs256 = new(big.Int).Lsh(big.NewInt(1), 256)

// minSigned256 and maxSigned256 bound the 256-bit two's-complement range
// [-2**255, 2**255-1]; arithmetic that leaves it indicates a malformed
// trace rather than a legitimate on-chain balance.
var (
	maxSigned256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minSigned256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// Signed256 is a 256-bit two's-complement signed integer, used for every
// balance delta so outflows can be represented as negatives.
type Signed256 struct {
	v *big.Int
}

// ZeroSigned256 returns the additive identity.
func ZeroSigned256() Signed256 {
	return Signed256{v: new(big.Int)}
}

// NewSigned256 wraps an existing *big.Int without copying.
func NewSigned256(v *big.Int) Signed256 {
	if v == nil {
		return ZeroSigned256()
	}
	return Signed256{v: v}
}

// SignedFromUnsigned256 reinterprets an Unsigned256 as a 256-bit
// two's-complement signed value: if the top bit is set the value is
// negative (value - 2**256), matching on-chain ERC-20 Transfer/WETH9
// log decoding where a raw uint256 is used verbatim as a signed delta.
func SignedFromUnsigned256(u *uint256.Int) Signed256 {
	b := u.ToBig()
	if u.Sign() != 0 && b.Bit(255) == 1 {
		b = new(big.Int).Sub(b, maxAbs256)
	}
	return Signed256{v: b}
}

func (s Signed256) Big() *big.Int { return s.v }

func (s Signed256) IsZero() bool { return s.v.Sign() == 0 }

func (s Signed256) IsNegative() bool { return s.v.Sign() < 0 }

func (s Signed256) IsPositive() bool { return s.v.Sign() > 0 }

func (s Signed256) Sign() int { return s.v.Sign() }

func (s Signed256) Neg() Signed256 { return Signed256{v: new(big.Int).Neg(s.v)} }

// Add returns s+other, checked for 256-bit overflow.
func (s Signed256) Add(other Signed256) (Signed256, error) {
	r := new(big.Int).Add(s.v, other.v)
	if err := checkOverflow(r); err != nil {
		return Signed256{}, err
	}
	return Signed256{v: r}, nil
}

// Sub returns s-other, checked for 256-bit overflow.
func (s Signed256) Sub(other Signed256) (Signed256, error) {
	r := new(big.Int).Sub(s.v, other.v)
	if err := checkOverflow(r); err != nil {
		return Signed256{}, err
	}
	return Signed256{v: r}, nil
}

// Mul returns s*other, checked for 256-bit overflow. Used for the
// (priority-fee-per-gas × gas-used) term of builder-reward accounting.
func (s Signed256) Mul(other Signed256) (Signed256, error) {
	r := new(big.Int).Mul(s.v, other.v)
	if err := checkOverflow(r); err != nil {
		return Signed256{}, err
	}
	return Signed256{v: r}, nil
}

func checkOverflow(v *big.Int) error {
	if v.Cmp(maxSigned256) > 0 || v.Cmp(minSigned256) < 0 {
		return fmt.Errorf("%w: value %s exceeds 256-bit range", ErrArithmeticOverflow, v.String())
	}
	return nil
}

func (s Signed256) String() string { return s.v.String() }

// AbsAndSign splits the value into its magnitude and a sign string ("" or
// "-"), the shape message formatting wants.
func (s Signed256) AbsAndSign() (*big.Int, string) {
	if s.v.Sign() < 0 {
		return new(big.Int).Abs(s.v), "-"
	}
	return new(big.Int).Set(s.v), ""
}
