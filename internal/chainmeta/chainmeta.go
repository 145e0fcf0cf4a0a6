// Package chainmeta is a small table-driven lookup of per-chain facts the
// watcher needs: the wrapped-native token address, whether that token
// emits WETH9-style Deposit/Withdrawal events, whether the chain charges an
// Optimism-style L1 data fee, and the block-explorer/Phalcon identifiers
// used when formatting alerts. Modeled on the teacher's table-driven
// per-chain parameter pattern (params/config_arbitrum.go's ArbitrumChainParams)
// and utils.rs's is_weth9/to_phalcon_chain_tag chain switches.
package chainmeta

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Chain ids for every network the watcher has a capability entry for.
const (
	Mainnet       uint64 = 1
	Optimism      uint64 = 10
	BSC           uint64 = 56
	Gnosis        uint64 = 100
	Polygon       uint64 = 137
	Fantom        uint64 = 250
	Moonriver     uint64 = 1285
	Base          uint64 = 8453
	Arbitrum      uint64 = 42161
	Celo          uint64 = 42220
	Avalanche     uint64 = 43114
	Blast         uint64 = 81457
	Scroll        uint64 = 534352
	GoerliTestnet uint64 = 5
	SepoliaTestnet uint64 = 11155111
)

// Capabilities is the full set of per-chain facts the watcher consults.
type Capabilities struct {
	Name             string
	NativeSymbol     string
	WrappedNative    common.Address
	IsWETH9Emitter   bool
	IsOptimismFamily bool
	PhalconTag       string
	ExplorerBaseURL  string
}

var table = map[uint64]Capabilities{
	Mainnet: {
		Name: "Ethereum", NativeSymbol: "ETH",
		WrappedNative: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		IsWETH9Emitter: true, PhalconTag: "eth",
		ExplorerBaseURL: "https://etherscan.io",
	},
	Optimism: {
		Name: "Optimism", NativeSymbol: "ETH",
		WrappedNative: common.HexToAddress("0x4200000000000000000000000000000000000006"),
		IsWETH9Emitter: true, IsOptimismFamily: true, PhalconTag: "optimism",
		ExplorerBaseURL: "https://optimistic.etherscan.io",
	},
	BSC: {
		Name: "BNB Smart Chain", NativeSymbol: "BNB",
		WrappedNative: common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"),
		IsWETH9Emitter: true, PhalconTag: "bsc",
		ExplorerBaseURL: "https://bscscan.com",
	},
	Gnosis: {
		Name: "Gnosis Chain", NativeSymbol: "xDAI",
		WrappedNative: common.HexToAddress("0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d"),
		PhalconTag: "xdai",
		ExplorerBaseURL: "https://gnosisscan.io",
	},
	Polygon: {
		Name: "Polygon", NativeSymbol: "MATIC",
		WrappedNative: common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
		IsWETH9Emitter: true, PhalconTag: "polygon",
		ExplorerBaseURL: "https://polygonscan.com",
	},
	Fantom: {
		Name: "Fantom", NativeSymbol: "FTM",
		WrappedNative: common.HexToAddress("0x21be370D5312f44cB42ce377BC9b8a0cEF1A4C83"),
		PhalconTag: "fantom",
		ExplorerBaseURL: "https://ftmscan.com",
	},
	Moonriver: {
		Name: "Moonriver", NativeSymbol: "MOVR",
		WrappedNative: common.HexToAddress("0x98878B06940aE243284CA214f92Bb71a2b032B8A"),
		PhalconTag: "moonriver",
		ExplorerBaseURL: "https://moonriver.moonscan.io",
	},
	Base: {
		Name: "Base", NativeSymbol: "ETH",
		WrappedNative: common.HexToAddress("0x4200000000000000000000000000000000000006"),
		IsWETH9Emitter: true, IsOptimismFamily: true, PhalconTag: "base",
		ExplorerBaseURL: "https://basescan.org",
	},
	Arbitrum: {
		Name: "Arbitrum One", NativeSymbol: "ETH",
		WrappedNative: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		PhalconTag: "arbitrum",
		ExplorerBaseURL: "https://arbiscan.io",
	},
	Celo: {
		Name: "Celo", NativeSymbol: "CELO",
		PhalconTag:      "celo",
		ExplorerBaseURL: "https://celoscan.io",
	},
	Avalanche: {
		Name: "Avalanche", NativeSymbol: "AVAX",
		WrappedNative: common.HexToAddress("0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"),
		PhalconTag: "avax",
		ExplorerBaseURL: "https://snowtrace.io",
	},
	Blast: {
		Name: "Blast", NativeSymbol: "ETH",
		WrappedNative: common.HexToAddress("0x4300000000000000000000000000000000000004"),
		IsWETH9Emitter: true, IsOptimismFamily: true, PhalconTag: "blast",
		ExplorerBaseURL: "https://blastscan.io",
	},
	Scroll: {
		Name: "Scroll", NativeSymbol: "ETH",
		WrappedNative: common.HexToAddress("0x5300000000000000000000000000000000000004"),
		PhalconTag: "scroll",
		ExplorerBaseURL: "https://scrollscan.com",
	},
	GoerliTestnet: {
		Name: "Goerli", NativeSymbol: "ETH",
		PhalconTag:      "eth-goerli",
		ExplorerBaseURL: "https://goerli.etherscan.io",
	},
	SepoliaTestnet: {
		Name: "Sepolia", NativeSymbol: "ETH",
		PhalconTag:      "eth-sepolia",
		ExplorerBaseURL: "https://sepolia.etherscan.io",
	},
}

// Lookup returns the Capabilities for chainID, or false if the chain is not
// one the watcher has been taught.
func Lookup(chainID uint64) (Capabilities, bool) {
	c, ok := table[chainID]
	return c, ok
}

// MustLookup is Lookup but panics on an unknown chain.
func MustLookup(chainID uint64) Capabilities {
	c, ok := table[chainID]
	if !ok {
		panic(fmt.Sprintf("chainmeta: unknown chain id %d", chainID))
	}
	return c
}

// WrappedNative returns the chain's wrapped-native token address, if any.
func WrappedNative(chainID uint64) (common.Address, bool) {
	c, ok := table[chainID]
	if !ok || c.WrappedNative == (common.Address{}) {
		return common.Address{}, false
	}
	return c.WrappedNative, true
}

// IsWETH9Emitter reports whether chainID's wrapped-native token emits
// WETH9-style Deposit/Withdrawal events that should be translated into
// native-currency transfers.
func IsWETH9Emitter(chainID uint64) bool {
	c, ok := table[chainID]
	return ok && c.IsWETH9Emitter
}

// IsOptimismFamily reports whether chainID charges an additional L1 data
// fee on top of gasUsed*effectiveGasPrice.
func IsOptimismFamily(chainID uint64) bool {
	c, ok := table[chainID]
	return ok && c.IsOptimismFamily
}

// NativeCurrencySymbol returns the chain's native currency ticker, or "ETH"
// for an unknown chain.
func NativeCurrencySymbol(chainID uint64) string {
	c, ok := table[chainID]
	if !ok {
		return "ETH"
	}
	return c.NativeSymbol
}

// PhalconTag returns the chain tag Phalcon's explorer uses in its tx URLs.
func PhalconTag(chainID uint64) string {
	c, ok := table[chainID]
	if !ok {
		return ""
	}
	return c.PhalconTag
}

// ExplorerTxURL, ExplorerAddressURL and ExplorerBlockURL build links into
// the chain's block explorer. They return "" for an unknown chain so
// callers can omit the link rather than emit a broken one.
func ExplorerTxURL(chainID uint64, hash common.Hash) string {
	c, ok := table[chainID]
	if !ok || c.ExplorerBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", c.ExplorerBaseURL, hash.Hex())
}

func ExplorerAddressURL(chainID uint64, addr common.Address) string {
	c, ok := table[chainID]
	if !ok || c.ExplorerBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/address/%s", c.ExplorerBaseURL, addr.Hex())
}

func ExplorerBlockURL(chainID uint64, block uint64) string {
	c, ok := table[chainID]
	if !ok || c.ExplorerBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/block/%d", c.ExplorerBaseURL, block)
}

// PhalconTxURL builds a Phalcon "explain this transaction" deep link, or ""
// if the chain has no Phalcon tag.
func PhalconTxURL(chainID uint64, hash common.Hash) string {
	tag := PhalconTag(chainID)
	if tag == "" {
		return ""
	}
	return fmt.Sprintf("https://explorer.phalcon.xyz/tx/%s/%s", tag, hash.Hex())
}
