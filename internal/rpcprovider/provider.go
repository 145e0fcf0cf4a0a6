// Package rpcprovider dials a JSON-RPC endpoint by URL scheme and wraps the
// resulting client together with an ethclient.Client built over it. Grounded
// on rpc/client_arbitrum.go's DialTransport scheme switch.
package rpcprovider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/chainsentry/wallet-watcher/internal/pnlerr"
)

// Provider wraps a dialed JSON-RPC client. rpc.DialContext already
// dispatches on URL scheme (http(s)/ws(s)/ipc path), so Provider's own
// scheme switch only needs to special-case file:// the way
// rpc/client_arbitrum.go treats an empty scheme as an IPC path.
type Provider struct {
	RawURL string
	RPC    *rpc.Client
	Eth    *ethclient.Client
}

// New dials rawURL, matching the scheme dispatch of the teacher's
// DialTransport: http(s):// and ws(s):// go through rpc.DialContext
// directly, file:// is rewritten to a bare filesystem path for
// rpc.DialIPC, a URL with no scheme is dialled as an IPC path as-is, and
// any other scheme is rejected rather than silently guessed at.
func New(ctx context.Context, rawURL string) (*Provider, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, pnlerr.New(pnlerr.ConfigInvalid, "rpcprovider.New", fmt.Errorf("parse rpc url: %w", err))
	}

	var client *rpc.Client
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		client, err = rpc.DialContext(ctx, rawURL)
	case "file":
		client, err = rpc.DialIPC(ctx, u.Path)
	case "":
		client, err = rpc.DialIPC(ctx, rawURL)
	default:
		return nil, pnlerr.New(pnlerr.ConfigInvalid, "rpcprovider.New",
			fmt.Errorf("no known transport for scheme %q in url %s", u.Scheme, rawURL))
	}
	if err != nil {
		return nil, pnlerr.New(pnlerr.RpcFailure, "rpcprovider.New", err)
	}

	return &Provider{
		RawURL: rawURL,
		RPC:    client,
		Eth:    ethclient.NewClient(client),
	}, nil
}

// Close releases the underlying RPC connection.
func (p *Provider) Close() {
	if p.RPC != nil {
		p.RPC.Close()
	}
}

// ChainID fetches the connected chain's id via eth_chainId.
func (p *Provider) ChainID(ctx context.Context) (uint64, error) {
	id, err := p.Eth.ChainID(ctx)
	if err != nil {
		return 0, pnlerr.New(pnlerr.RpcFailure, "rpcprovider.ChainID", err)
	}
	return id.Uint64(), nil
}
