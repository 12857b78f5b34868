// Package chain wraps wallet provider selection and chain-client construction.
//
// A Provider is an external piece of software that holds keys and authorizes
// transactions (a local keystore or a remote wallet bridge). Connecting a
// provider yields a Handle: a signing-capable Client plus the authorized
// accounts and a stream of account-change notifications.
package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client bundles an RPC-backed eth client with the signer for the active
// provider. Read-only clients have no signer; TransactOpts fails on them.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	signer  bind.SignerFn // nil for read-only clients
}

// NewReadOnlyClient dials a public endpoint for unauthenticated reads.
func NewReadOnlyClient(ctx context.Context, rpcURL string, chainID *big.Int) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return &Client{eth: eth, chainID: chainID}, nil
}

// NewSigningClient wraps an eth client with a provider-supplied signer.
func NewSigningClient(eth *ethclient.Client, chainID *big.Int, signer bind.SignerFn) *Client {
	return &Client{eth: eth, chainID: chainID, signer: signer}
}

// Eth returns the underlying RPC client.
func (c *Client) Eth() *ethclient.Client { return c.eth }

// ChainID returns the chain the client is bound to.
func (c *Client) ChainID() *big.Int { return c.chainID }

// CanSign reports whether the client can authorize writes.
func (c *Client) CanSign() bool { return c.signer != nil }

// TransactOpts builds transaction options submitting "from" the given account
// hex address, signed by the provider that produced this client.
func (c *Client) TransactOpts(ctx context.Context, account string) (*bind.TransactOpts, error) {
	if c.signer == nil {
		return nil, errors.New("read-only client cannot sign")
	}
	return &bind.TransactOpts{
		From:    common.HexToAddress(account),
		Signer:  c.signer,
		Context: ctx,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}
