package pnl

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainsentry/wallet-watcher/internal/chainmeta"
)

// TokenDelta maps a token address to the signed change in an account's
// balance of that token over some span of activity. The zero address is
// used for the chain's native currency.
type TokenDelta map[common.Address]Signed256

// BalanceChangeSheet maps an account to its TokenDelta, the full
// per-account, per-token ledger of balance movements for a block or a
// single transaction.
type BalanceChangeSheet map[common.Address]TokenDelta

// NewBalanceChangeSheet returns an empty sheet.
func NewBalanceChangeSheet() BalanceChangeSheet {
	return make(BalanceChangeSheet)
}

// AppendTransfer records token moving amount from `from` to `to`. A zero
// `from` or `to` (e.g. a mint/burn, or a CREATE with no prior balance
// owner) still books the one side that is non-zero; callers pass
// common.Address{} for the side that doesn't apply, and no entry is ever
// created for the zero address.
func (s BalanceChangeSheet) AppendTransfer(from, to, token common.Address, amount Signed256) error {
	if amount.IsZero() {
		return nil
	}
	if (from != common.Address{}) {
		if err := s.add(from, token, amount.Neg()); err != nil {
			return err
		}
	}
	if (to != common.Address{}) {
		if err := s.add(to, token, amount); err != nil {
			return err
		}
	}
	return nil
}

func (s BalanceChangeSheet) add(account, token common.Address, delta Signed256) error {
	td, ok := s[account]
	if !ok {
		td = make(TokenDelta)
		s[account] = td
	}
	cur, ok := td[token]
	if !ok {
		td[token] = delta
		return nil
	}
	next, err := cur.Add(delta)
	if err != nil {
		return wrapOverflow("BalanceChangeSheet.add", err)
	}
	td[token] = next
	return nil
}

// PruneZero removes every (account, token) entry whose delta is exactly
// zero, and every account left with no token entries at all. It mutates
// the sheet in place and also returns it for chaining.
func (s BalanceChangeSheet) PruneZero() BalanceChangeSheet {
	for account, td := range s {
		for token, delta := range td {
			if delta.IsZero() {
				delete(td, token)
			}
		}
		if len(td) == 0 {
			delete(s, account)
		}
	}
	return s
}

// Extend folds other into s, account by account and token by token,
// summing deltas where both sheets touch the same (account, token) pair.
func (s BalanceChangeSheet) Extend(other BalanceChangeSheet) error {
	for account, td := range other {
		for token, delta := range td {
			if err := s.add(account, token, delta); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the sheet.
func (s BalanceChangeSheet) Clone() BalanceChangeSheet {
	out := make(BalanceChangeSheet, len(s))
	for account, td := range s {
		cp := make(TokenDelta, len(td))
		for token, delta := range td {
			cp[token] = delta
		}
		out[account] = cp
	}
	return out
}

// RetainAccounts returns a new sheet containing only the entries for
// accounts present in keep, without mutating s. Used to cache both the
// full per-tx sheet and the filtered (involved-wallets-only) view.
func (s BalanceChangeSheet) RetainAccounts(keep map[common.Address]struct{}) BalanceChangeSheet {
	out := make(BalanceChangeSheet)
	for account, td := range s {
		if _, ok := keep[account]; !ok {
			continue
		}
		cp := make(TokenDelta, len(td))
		for token, delta := range td {
			cp[token] = delta
		}
		out[account] = cp
	}
	return out
}

// ExtractEther removes and returns the native-currency (zero address) and,
// when chainID has one, the wrapped-native token's entries from td, summed
// together. This operates on a single wallet's already-merged token-delta
// map, the point in the pipeline where "how much ether did this wallet
// really gain or lose" is computed — wrapping/unwrapping nets out against
// itself rather than counting as a separate token position. Mirrors
// balance_changes.rs's BalanceChange::extract_ether.
func (td TokenDelta) ExtractEther(chainID uint64) (Signed256, error) {
	var zero common.Address
	total := ZeroSigned256()

	if delta, ok := td[zero]; ok {
		delete(td, zero)
		next, err := total.Add(delta)
		if err != nil {
			return Signed256{}, wrapOverflow("TokenDelta.ExtractEther", err)
		}
		total = next
	}

	if wrapped, ok := chainmeta.WrappedNative(chainID); ok {
		if delta, ok := td[wrapped]; ok {
			delete(td, wrapped)
			next, err := total.Add(delta)
			if err != nil {
				return Signed256{}, wrapOverflow("TokenDelta.ExtractEther", err)
			}
			total = next
		}
	}

	return total, nil
}

// NativeDelta returns the account's native-currency delta, or zero if it
// has none.
func (s BalanceChangeSheet) NativeDelta(account common.Address) Signed256 {
	td, ok := s[account]
	if !ok {
		return ZeroSigned256()
	}
	var zero common.Address
	d, ok := td[zero]
	if !ok {
		return ZeroSigned256()
	}
	return d
}
