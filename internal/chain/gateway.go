package chain

import (
	"context"
	"fmt"
	"math/big"
)

// Provider is a wallet transport that can authorize a session.
type Provider interface {
	// Name identifies the provider in the selection flow.
	Name() string
	// Connect performs the interactive authorization (unlock prompt, remote
	// approval) and returns a live handle.
	Connect(ctx context.Context) (*Handle, error)
	// Authorized reports accounts that are already usable without prompting
	// the user. An empty slice means no restorable session.
	Authorized(ctx context.Context) ([]string, error)
}

// Handle is a connected provider session: a signing client, the authorized
// accounts, and a stream of account-change notifications. The stream carries
// the provider's full account list; consumers take the first entry.
type Handle struct {
	client   *Client
	accounts []string
	changes  <-chan []string
	closeFn  func()
}

// NewHandle assembles a handle. closeFn may be nil.
func NewHandle(client *Client, accounts []string, changes <-chan []string, closeFn func()) *Handle {
	return &Handle{client: client, accounts: accounts, changes: changes, closeFn: closeFn}
}

// Client returns the signing-capable chain client for this session.
func (h *Handle) Client() *Client { return h.client }

// Accounts returns the accounts authorized at connect time.
func (h *Handle) Accounts() []string { return h.accounts }

// AccountsChanged returns the provider's account-change stream. Notifications
// arrive in the order the provider emitted them.
func (h *Handle) AccountsChanged() <-chan []string { return h.changes }

// Close tears down the provider session. The external wallet's own
// authorization is not revoked.
func (h *Handle) Close() {
	if h.closeFn != nil {
		h.closeFn()
	}
}

// Chooser presents the registered provider names to the user and returns the
// chosen one. It returns errs.ErrSelectionCancelled when the user aborts.
type Chooser func(names []string) (string, error)

// Gateway owns provider registration and selection, and constructs the
// default read-only client used before any wallet is connected.
type Gateway struct {
	rpcURL    string
	chainID   *big.Int
	choose    Chooser
	providers []Provider
}

// NewGateway builds a gateway over a fixed public RPC endpoint.
func NewGateway(rpcURL string, chainID *big.Int, choose Chooser, providers ...Provider) *Gateway {
	return &Gateway{rpcURL: rpcURL, chainID: chainID, choose: choose, providers: providers}
}

// Providers lists the registered providers.
func (g *Gateway) Providers() []Provider { return g.providers }

// DefaultReadOnlyClient returns a non-authenticated client for reads issued
// before any wallet is connected.
func (g *Gateway) DefaultReadOnlyClient(ctx context.Context) (*Client, error) {
	return NewReadOnlyClient(ctx, g.rpcURL, g.chainID)
}

// SelectProvider runs the selection flow and connects the chosen provider.
// The user aborting surfaces as errs.ErrSelectionCancelled; provider errors
// pass through unmodified.
func (g *Gateway) SelectProvider(ctx context.Context) (*Handle, error) {
	if len(g.providers) == 0 {
		return nil, fmt.Errorf("no wallet providers registered")
	}
	names := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		names = append(names, p.Name())
	}
	choice, err := g.choose(names)
	if err != nil {
		return nil, err
	}
	for _, p := range g.providers {
		if p.Name() == choice {
			return p.Connect(ctx)
		}
	}
	return nil, fmt.Errorf("unknown provider %q", choice)
}

// compile-time checks for the shipped providers
var (
	_ Provider = (*KeystoreProvider)(nil)
	_ Provider = (*BridgeProvider)(nil)
)
