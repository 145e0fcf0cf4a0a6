package pnl

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func addr(s string) common.Address { return common.HexToAddress(s) }

func TestAppendTransferConservation(t *testing.T) {
	sheet := NewBalanceChangeSheet()
	a, b := addr("0x1"), addr("0x2")
	var token common.Address
	amt := NewSigned256(big.NewInt(100))

	if err := sheet.AppendTransfer(a, b, token, amt); err != nil {
		t.Fatalf("AppendTransfer: %v", err)
	}

	total := new(big.Int)
	for _, td := range sheet {
		for _, d := range td {
			total.Add(total, d.Big())
		}
	}
	if total.Sign() != 0 {
		t.Fatalf("sheet not conserved: total=%s", total)
	}
	if sheet[a][token].Big().Cmp(big.NewInt(-100)) != 0 {
		t.Fatalf("sender delta wrong: %s", sheet[a][token])
	}
	if sheet[b][token].Big().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("recipient delta wrong: %s", sheet[b][token])
	}
}

func TestPruneZeroIdempotent(t *testing.T) {
	sheet := NewBalanceChangeSheet()
	a, b := addr("0x1"), addr("0x2")
	var token common.Address
	amt := NewSigned256(big.NewInt(50))

	if err := sheet.AppendTransfer(a, b, token, amt); err != nil {
		t.Fatal(err)
	}
	if err := sheet.AppendTransfer(b, a, token, amt); err != nil {
		t.Fatal(err)
	}

	sheet.PruneZero()
	if len(sheet) != 0 {
		t.Fatalf("expected fully pruned sheet after round trip, got %v", sheet)
	}

	// pruning an already-empty sheet is a no-op
	sheet.PruneZero()
	if len(sheet) != 0 {
		t.Fatalf("second prune mutated empty sheet: %v", sheet)
	}
}

func TestExtendSums(t *testing.T) {
	a := addr("0x1")
	var token common.Address

	s1 := NewBalanceChangeSheet()
	s1[a] = TokenDelta{token: NewSigned256(big.NewInt(10))}

	s2 := NewBalanceChangeSheet()
	s2[a] = TokenDelta{token: NewSigned256(big.NewInt(5))}

	if err := s1.Extend(s2); err != nil {
		t.Fatal(err)
	}
	if s1[a][token].Big().Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("want 15, got %s", s1[a][token])
	}
}

func TestSignedFromUnsignedReinterpretsTopBit(t *testing.T) {
	maxU256, _ := new(big.Int).SetString("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", 16)
	u := uint256.MustFromBig(maxU256)
	s := SignedFromUnsigned256(u)
	if s.Big().Cmp(big.NewInt(-1)) != 0 {
		t.Fatalf("want -1, got %s", s)
	}
}

func TestRetainAccountsDoesNotMutateSource(t *testing.T) {
	a, b := addr("0x1"), addr("0x2")
	var token common.Address
	sheet := NewBalanceChangeSheet()
	sheet[a] = TokenDelta{token: NewSigned256(big.NewInt(1))}
	sheet[b] = TokenDelta{token: NewSigned256(big.NewInt(-1))}

	keep := map[common.Address]struct{}{a: {}}
	filtered := sheet.RetainAccounts(keep)

	if _, ok := filtered[b]; ok {
		t.Fatalf("filtered sheet should not contain b")
	}
	if _, ok := sheet[b]; !ok {
		t.Fatalf("RetainAccounts mutated the source sheet")
	}
}
