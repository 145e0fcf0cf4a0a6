// Package erc20meta caches ERC-20 token symbol/decimals lookups for the
// lifetime of the process. Ported from message.rs's
// MessageGenerator::load_symbol_and_decimal, including the Mainnet MKR
// special case (MKR's symbol() returns bytes32, not string).
package erc20meta

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/chainsentry/wallet-watcher/internal/chainmeta"
	"github.com/chainsentry/wallet-watcher/internal/pnlerr"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

const bytes32SymbolABIJSON = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"type":"function"}
]`

var (
	erc20ABI         abi.ABI
	bytes32SymbolABI abi.ABI
)

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("erc20meta: bad embedded ABI: %v", err))
	}
	bytes32SymbolABI, err = abi.JSON(strings.NewReader(bytes32SymbolABIJSON))
	if err != nil {
		panic(fmt.Sprintf("erc20meta: bad embedded bytes32 ABI: %v", err))
	}
}

// Info is a token's display metadata.
type Info struct {
	Symbol   string
	Decimals uint8
}

// mkrMainnet is the one hand-coded exception message.rs carries: MKR's
// symbol() getter predates the ERC-20 string convention and returns
// bytes32 instead.
var mkrMainnet = common.HexToAddress("0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2")

// ContractCaller is the narrow subset of bind.ContractCaller the cache
// needs, satisfied by *ethclient.Client.
type ContractCaller = bind.ContractCaller

// Cache is a process-lifetime, chain-scoped token metadata cache. One
// Cache is safe for concurrent use; its map is guarded by a mutex.
type Cache struct {
	chainID uint64
	caller  ContractCaller

	mu    sync.Mutex
	byTok map[common.Address]Info
}

// New builds a Cache that resolves unknown tokens against caller.
func New(chainID uint64, caller ContractCaller) *Cache {
	return &Cache{chainID: chainID, caller: caller, byTok: make(map[common.Address]Info)}
}

// Lookup returns token's symbol and decimals, querying the chain on first
// use and caching the result. A lookup failure never propagates as an
// engine-fatal error: it falls back to a short address and 18 decimals,
// per spec's TokenMetadataLookup error kind.
func (c *Cache) Lookup(ctx context.Context, token common.Address) Info {
	c.mu.Lock()
	if info, ok := c.byTok[token]; ok {
		c.mu.Unlock()
		return info
	}
	c.mu.Unlock()

	info, err := c.fetch(ctx, token)
	if err != nil {
		log.Warn("erc20meta: falling back on token metadata lookup failure",
			"token", token, "err", pnlerr.New(pnlerr.TokenMetadataLookup, "erc20meta.Lookup", err))
		info = fallback(token)
	}

	c.mu.Lock()
	c.byTok[token] = info
	c.mu.Unlock()
	return info
}

func (c *Cache) fetch(ctx context.Context, token common.Address) (Info, error) {
	bound := bind.NewBoundContract(token, erc20ABI, c.caller, nil, nil)

	if c.chainID == chainmeta.Mainnet && token == mkrMainnet {
		return c.fetchBytes32Symbol(ctx, token)
	}

	var symbolOut []interface{}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &symbolOut, "symbol"); err != nil {
		// Some tokens (MKR-alikes) only expose a bytes32 symbol; retry before failing.
		return c.fetchBytes32Symbol(ctx, token)
	}
	symbol, _ := symbolOut[0].(string)

	var decimalsOut []interface{}
	decimals := uint8(18)
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &decimalsOut, "decimals"); err == nil && len(decimalsOut) == 1 {
		if d, ok := decimalsOut[0].(uint8); ok {
			decimals = d
		}
	}

	return Info{Symbol: symbol, Decimals: decimals}, nil
}

func (c *Cache) fetchBytes32Symbol(ctx context.Context, token common.Address) (Info, error) {
	bound := bind.NewBoundContract(token, bytes32SymbolABI, c.caller, nil, nil)
	var out []interface{}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "symbol"); err != nil {
		return Info{}, fmt.Errorf("symbol() (bytes32 fallback): %w", err)
	}
	raw, ok := out[0].([32]byte)
	if !ok {
		return Info{}, fmt.Errorf("unexpected symbol() return type %T", out[0])
	}
	symbol := strings.TrimRight(string(raw[:]), "\x00")
	return Info{Symbol: symbol, Decimals: 18}, nil
}

func fallback(token common.Address) Info {
	hex := token.Hex()
	short := hex
	if len(hex) > 10 {
		short = hex[:6] + "…" + hex[len(hex)-4:]
	}
	return Info{Symbol: short, Decimals: 18}
}
