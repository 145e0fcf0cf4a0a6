package pnl

import "github.com/ethereum/go-ethereum/common"

// WalletContext describes one watched wallet for one chain: its primary
// address, an optional block-builder address it controls (subject to
// builder-reward/validator-bribe accounting in addition to ordinary PnL),
// any other addresses it controls that should be folded into the same
// report, and whether transfers to addresses it merely sent to (not
// itself) should also be surfaced. Mirrors config.rs's WalletWithContext.
type WalletContext struct {
	Name             string
	Address          common.Address
	Builder          *common.Address
	OtherAddresses   []common.Address
	IncludeRecipient bool

	// involvedWallets is the precomputed union of Address, Builder (if
	// set) and OtherAddresses, the set BlockPnLEngine filters the per-tx
	// sheet down to before deciding whether the tx belongs in the report.
	involvedWallets map[common.Address]struct{}
}

// NewWalletContext builds a WalletContext and precomputes its involved-set.
// builder is nil when the wallet does not control a block builder.
func NewWalletContext(name string, address common.Address, builder *common.Address, other []common.Address, includeRecipient bool) *WalletContext {
	wc := &WalletContext{
		Name:             name,
		Address:          address,
		Builder:          builder,
		OtherAddresses:   other,
		IncludeRecipient: includeRecipient,
	}
	wc.involvedWallets = make(map[common.Address]struct{}, 2+len(other))
	wc.involvedWallets[address] = struct{}{}
	if builder != nil {
		wc.involvedWallets[*builder] = struct{}{}
	}
	for _, a := range other {
		wc.involvedWallets[a] = struct{}{}
	}
	return wc
}

// InvolvedWallets returns the precomputed address ∪ builder ∪
// other-addresses set.
func (wc *WalletContext) InvolvedWallets() map[common.Address]struct{} {
	return wc.involvedWallets
}

// Owns reports whether addr is the wallet's primary address, its builder
// address, or one of its other addresses.
func (wc *WalletContext) Owns(addr common.Address) bool {
	_, ok := wc.involvedWallets[addr]
	return ok
}
