package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gorilla/websocket"
)

// bridgeFrame is the wire format of the wallet bridge: requests carry
// id/method/params, responses carry id/result/error, and unsolicited pushes
// carry event/accounts.
type bridgeFrame struct {
	ID       uint64          `json:"id,omitempty"`
	Method   string          `json:"method,omitempty"`
	Params   []any           `json:"params,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Event    string          `json:"event,omitempty"`
	Accounts []string        `json:"accounts,omitempty"`
}

// BridgeProvider talks to a remote wallet over a websocket session. The
// remote end holds the keys: account enumeration and transaction signing are
// round-trips, and account switches arrive as pushed accountsChanged events.
type BridgeProvider struct {
	bridgeURL string
	rpcURL    string
	chainID   *big.Int
	dialer    *websocket.Dialer

	mu      sync.Mutex // guards conn, pending, nextID, writes
	conn    *websocket.Conn
	nextID  uint64
	pending map[uint64]chan bridgeFrame
	changes chan []string
}

// NewBridgeProvider points at a wallet bridge endpoint.
func NewBridgeProvider(bridgeURL, rpcURL string, chainID *big.Int) *BridgeProvider {
	return &BridgeProvider{
		bridgeURL: bridgeURL,
		rpcURL:    rpcURL,
		chainID:   chainID,
		dialer:    websocket.DefaultDialer,
		pending:   make(map[uint64]chan bridgeFrame),
	}
}

// Name implements Provider.
func (p *BridgeProvider) Name() string { return "bridge" }

// Connect establishes the bridge session, requests account authorization from
// the remote wallet (which may prompt its user), and returns a handle whose
// signer round-trips transactions through the bridge.
func (p *BridgeProvider) Connect(ctx context.Context) (*Handle, error) {
	if err := p.ensureConn(ctx); err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	raw, err := p.call(ctx, "wallet_requestAccounts")
	if err != nil {
		return nil, fmt.Errorf("bridge: request accounts: %w", err)
	}
	var accts []string
	if err := json.Unmarshal(raw, &accts); err != nil {
		return nil, fmt.Errorf("bridge: request accounts: %w", err)
	}
	if len(accts) == 0 {
		return nil, errors.New("bridge: wallet authorized no accounts")
	}

	eth, err := ethclient.DialContext(ctx, p.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial rpc: %w", err)
	}

	signer := func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
		return p.signRemote(addr, tx)
	}
	client := NewSigningClient(eth, p.chainID, signer)

	closeFn := func() {
		eth.Close()
		p.closeConn()
	}
	return NewHandle(client, accts, p.changes, closeFn), nil
}

// Authorized implements Provider: asks the remote wallet which accounts are
// already authorized for this client, without prompting.
func (p *BridgeProvider) Authorized(ctx context.Context) ([]string, error) {
	if err := p.ensureConn(ctx); err != nil {
		return nil, err
	}
	raw, err := p.call(ctx, "wallet_accounts")
	if err != nil {
		return nil, err
	}
	var accts []string
	if err := json.Unmarshal(raw, &accts); err != nil {
		return nil, err
	}
	return accts, nil
}

// signRemote ships the unsigned transaction to the wallet and decodes the
// signed raw transaction it returns.
func (p *BridgeProvider) signRemote(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
	bin, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	raw, err := p.call(context.Background(), "wallet_signTransaction", addr.Hex(), hexutil.Encode(bin))
	if err != nil {
		return nil, err
	}
	var rawHex string
	if err := json.Unmarshal(raw, &rawHex); err != nil {
		return nil, err
	}
	signedBin, err := hexutil.Decode(rawHex)
	if err != nil {
		return nil, err
	}
	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(signedBin); err != nil {
		return nil, err
	}
	return signed, nil
}

func (p *BridgeProvider) ensureConn(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return nil
	}
	conn, _, err := p.dialer.DialContext(ctx, p.bridgeURL, nil)
	if err != nil {
		return err
	}
	p.conn = conn
	p.changes = make(chan []string, 16)
	go p.readLoop(conn)
	return nil
}

// readLoop delivers responses to their waiting callers and forwards
// accountsChanged pushes, preserving receipt order.
func (p *BridgeProvider) readLoop(conn *websocket.Conn) {
	for {
		var f bridgeFrame
		if err := conn.ReadJSON(&f); err != nil {
			p.failPending(err)
			return
		}
		if f.Event == "accountsChanged" {
			p.mu.Lock()
			ch := p.changes
			p.mu.Unlock()
			if ch != nil {
				ch <- f.Accounts
			}
			continue
		}
		p.mu.Lock()
		waiter, ok := p.pending[f.ID]
		if ok {
			delete(p.pending, f.ID)
		}
		p.mu.Unlock()
		if ok {
			waiter <- f
		}
	}
}

func (p *BridgeProvider) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	p.mu.Lock()
	if p.conn == nil {
		p.mu.Unlock()
		return nil, errors.New("bridge session closed")
	}
	p.nextID++
	id := p.nextID
	waiter := make(chan bridgeFrame, 1)
	p.pending[id] = waiter
	err := p.conn.WriteJSON(bridgeFrame{ID: id, Method: method, Params: params})
	p.mu.Unlock()
	if err != nil {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, err
	}
	select {
	case f := <-waiter:
		if f.Error != "" {
			return nil, errors.New(f.Error)
		}
		return f.Result, nil
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (p *BridgeProvider) failPending(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, waiter := range p.pending {
		waiter <- bridgeFrame{ID: id, Error: err.Error()}
		delete(p.pending, id)
	}
	if p.changes != nil {
		close(p.changes)
		p.changes = nil
	}
	p.conn = nil
}

func (p *BridgeProvider) closeConn() {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn != nil {
		_ = conn.Close() // readLoop exits and fails any stragglers
	}
}
