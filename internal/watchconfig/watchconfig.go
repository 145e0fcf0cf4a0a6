// Package watchconfig loads and validates the watcher's YAML configuration
// file: which chains to watch, which wallets to watch on them, and which
// Telegram channels receive each wallet's alerts. Ported from config.rs.
package watchconfig

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/chainsentry/wallet-watcher/internal/alertdispatch"
	"github.com/chainsentry/wallet-watcher/internal/pnlerr"
	"github.com/chainsentry/wallet-watcher/pnl"
)

// Wallet is one watched wallet's configuration, exactly as it appears
// nested inside a channel in the YAML file: a display name, the primary
// address, an optional builder address it controls, any other addresses
// folded into the same report, which chains (by name) it should be
// watched on — empty meaning every configured chain — and whether
// single-hop recipient forwarding is enabled.
type Wallet struct {
	Name             string   `yaml:"name"`
	Address          string   `yaml:"address"`
	Builder          string   `yaml:"builder,omitempty"`
	OtherAddresses   []string `yaml:"other_addresses"`
	Chains           []string `yaml:"chains"`
	IncludeRecipient bool     `yaml:"include_recipient"`
}

// Channel groups a Telegram delivery target with the wallets whose alerts
// it receives. Mirrors config.rs's Channel, which flattens AlertTo's
// fields directly onto the channel document.
type Channel struct {
	BotToken string   `yaml:"bot_token"`
	ChatID   string   `yaml:"chat_id"`
	ThreadID string   `yaml:"thread_id,omitempty"`
	Wallets  []Wallet `yaml:"wallets"`
}

// Config is the top-level YAML document shape: a plain chain-name to
// RPC-URL map, and the list of channels, each carrying its own wallets.
// There is no top-level wallet list and no name-based indirection between
// channels and wallets — a wallet listed under two channels is two
// independent entries, routed to two different destinations.
type Config struct {
	Chains   map[string]string `yaml:"chains"`
	Channels []Channel         `yaml:"channels"`
}

// RoutedWallet pairs one wallet's PnL context with the alert destination
// it was configured under. Mirrors config.rs's WalletWithContext, which
// embeds its own Arc<AlertTo> rather than looking one up by name.
type RoutedWallet struct {
	Context *pnl.WalletContext
	Alert   alertdispatch.AlertTarget
}

// FromFile reads and validates a Config at path.
func FromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pnlerr.New(pnlerr.ConfigInvalid, "watchconfig.FromFile", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, pnlerr.New(pnlerr.ConfigInvalid, "watchconfig.FromFile", fmt.Errorf("parse yaml: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every chain reference and wallet field is well-formed,
// failing fast at startup rather than surfacing a bad config mid-run.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return pnlerr.New(pnlerr.ConfigInvalid, "Config.Validate", fmt.Errorf("no chains configured"))
	}
	for name, rpcURL := range c.Chains {
		if name == "" || rpcURL == "" {
			return pnlerr.New(pnlerr.ConfigInvalid, "Config.Validate", fmt.Errorf("chain %q: name and rpc url are required", name))
		}
	}

	for i, ch := range c.Channels {
		if ch.BotToken == "" || ch.ChatID == "" {
			return pnlerr.New(pnlerr.ConfigInvalid, "Config.Validate", fmt.Errorf("channel %d: bot_token and chat_id are required", i))
		}
		if len(ch.Wallets) == 0 {
			return pnlerr.New(pnlerr.ConfigInvalid, "Config.Validate", fmt.Errorf("channel %d: no wallets", i))
		}
		for _, w := range ch.Wallets {
			if err := w.validate(c.Chains); err != nil {
				return pnlerr.New(pnlerr.ConfigInvalid, "Config.Validate", fmt.Errorf("channel %d: %w", i, err))
			}
		}
	}
	return nil
}

func (w *Wallet) validate(chains map[string]string) error {
	if w.Name == "" {
		return fmt.Errorf("wallet with empty name")
	}
	if !common.IsHexAddress(w.Address) {
		return fmt.Errorf("wallet %q: invalid address %q", w.Name, w.Address)
	}
	if w.Builder != "" && !common.IsHexAddress(w.Builder) {
		return fmt.Errorf("wallet %q: invalid builder address %q", w.Name, w.Builder)
	}
	for _, a := range w.OtherAddresses {
		if !common.IsHexAddress(a) {
			return fmt.Errorf("wallet %q: invalid other_address %q", w.Name, a)
		}
	}
	for _, name := range w.Chains {
		if _, ok := chains[name]; !ok {
			return fmt.Errorf("wallet %q references unconfigured chain %q", w.Name, name)
		}
	}
	return nil
}

// WalletsByChain returns one RoutedWallet per (channel, wallet) entry
// configured for chainName, converted to pnl.WalletContext values with
// their involved-address sets precomputed. Mirrors config.rs's
// to_wallet_with_context_by_chain.
func (c *Config) WalletsByChain(chainName string) ([]RoutedWallet, error) {
	var out []RoutedWallet
	for _, ch := range c.Channels {
		target := alertdispatch.AlertTarget{BotToken: ch.BotToken, ChatID: ch.ChatID, ThreadID: ch.ThreadID}
		for _, w := range ch.Wallets {
			if len(w.Chains) > 0 && !containsChain(w.Chains, chainName) {
				continue
			}
			wc, err := w.toWalletContext()
			if err != nil {
				return nil, err
			}
			out = append(out, RoutedWallet{Context: wc, Alert: target})
		}
	}
	return out, nil
}

func (w *Wallet) toWalletContext() (*pnl.WalletContext, error) {
	if !common.IsHexAddress(w.Address) {
		return nil, pnlerr.New(pnlerr.ConfigInvalid, "Wallet.toWalletContext", fmt.Errorf("wallet %q: invalid address %q", w.Name, w.Address))
	}
	var builder *common.Address
	if w.Builder != "" {
		if !common.IsHexAddress(w.Builder) {
			return nil, pnlerr.New(pnlerr.ConfigInvalid, "Wallet.toWalletContext", fmt.Errorf("wallet %q: invalid builder address %q", w.Name, w.Builder))
		}
		b := common.HexToAddress(w.Builder)
		builder = &b
	}
	other := make([]common.Address, 0, len(w.OtherAddresses))
	for _, a := range w.OtherAddresses {
		if !common.IsHexAddress(a) {
			return nil, pnlerr.New(pnlerr.ConfigInvalid, "Wallet.toWalletContext", fmt.Errorf("wallet %q: invalid other_address %q", w.Name, a))
		}
		other = append(other, common.HexToAddress(a))
	}
	return pnl.NewWalletContext(w.Name, common.HexToAddress(w.Address), builder, other, w.IncludeRecipient), nil
}

func containsChain(chains []string, name string) bool {
	for _, c := range chains {
		if c == name {
			return true
		}
	}
	return false
}
