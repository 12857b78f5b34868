// Package wallet owns the wallet session: connection lifecycle, the active
// account, and balance queries. Exactly one Session exists per client
// process; consumers receive it by reference and read account/client state
// through its accessors, never by writing into it.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/justart/artmarket/internal/chain"
	"github.com/justart/artmarket/internal/contracts"
	"github.com/justart/artmarket/internal/errs"
)

// State is the session lifecycle state.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateConnecting    State = "connecting"
	StateConnected     State = "connected"
	StateDisconnecting State = "disconnecting"
)

// TokenBinder rebinds the payment token contract against a client. The
// session cannot cache the binding because the client changes on connect.
type TokenBinder func(*chain.Client) contracts.TokenHandle

// Session is the process-wide wallet session. All mutation happens in its own
// methods and in the single account-change listener it registers per
// connection.
type Session struct {
	gateway   *chain.Gateway
	readOnly  *chain.Client
	bindToken TokenBinder
	decimals  int32

	mu      sync.Mutex
	state   State
	account string // lower-cased hex, "" when absent
	client  *chain.Client
	handle  *chain.Handle
	stop    chan struct{} // closes the active listener; replaced per connect
}

// NewSession builds a disconnected session. Reads go through readOnly until a
// wallet is connected.
func NewSession(gateway *chain.Gateway, readOnly *chain.Client, bindToken TokenBinder, decimals int32) *Session {
	return &Session{
		gateway:   gateway,
		readOnly:  readOnly,
		bindToken: bindToken,
		decimals:  decimals,
		state:     StateDisconnected,
		client:    readOnly,
	}
}

// Connect runs the provider selection flow and establishes the session. The
// first reported account, lower-cased, becomes the active account; a listener
// keeps it current with provider account changes until disconnect. A user
// abort surfaces as errs.ErrSelectionCancelled; everything else as
// errs.ErrConnectFailed.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		st := s.state
		s.mu.Unlock()
		return errs.Wrap(errs.ErrConnectFailed, fmt.Errorf("connect while %s", st))
	}
	s.state = StateConnecting
	s.mu.Unlock()

	h, err := s.gateway.SelectProvider(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		if errors.Is(err, errs.ErrSelectionCancelled) {
			return err
		}
		return errs.Wrap(errs.ErrConnectFailed, err)
	}
	accounts := h.Accounts()
	if len(accounts) == 0 {
		h.Close()
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return errs.Wrap(errs.ErrConnectFailed, errors.New("provider reported no accounts"))
	}

	stop := make(chan struct{})
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
	}
	s.stop = stop
	s.handle = h
	s.client = h.Client()
	s.account = strings.ToLower(accounts[0])
	s.state = StateConnected
	s.mu.Unlock()

	go s.listen(h.AccountsChanged(), stop)
	return nil
}

// listen applies account-change notifications in receipt order: the most
// recent notification wins, including over the value set by Connect. The
// stop-channel identity check keeps a stale listener from writing after a
// reconnect replaced it.
func (s *Session) listen(changes <-chan []string, stop chan struct{}) {
	for {
		select {
		case accounts, ok := <-changes:
			if !ok {
				return
			}
			if len(accounts) == 0 {
				continue
			}
			s.mu.Lock()
			if s.stop == stop {
				s.account = strings.ToLower(accounts[0])
			}
			s.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// Disconnect clears local session state and returns to Disconnected. The
// external wallet's own authorization is not revoked.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state != StateConnected {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("disconnect while %s", st)
	}
	s.state = StateDisconnecting
	h := s.handle
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.handle = nil
	s.account = ""
	s.client = s.readOnly
	s.state = StateDisconnected
	s.mu.Unlock()

	if h != nil {
		h.Close()
	}
	return nil
}

// CheckConnection restores a session from a provider that is already
// authorized, without an interactive prompt. A live connected session is left
// untouched. Provider errors are treated as "not connected", never surfaced.
func (s *Session) CheckConnection(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateConnected && s.handle != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	for _, p := range s.gateway.Providers() {
		accounts, err := p.Authorized(ctx)
		if err != nil || len(accounts) == 0 {
			continue
		}
		s.mu.Lock()
		s.account = strings.ToLower(accounts[0])
		s.state = StateConnected
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.account = ""
	s.state = StateDisconnected
	s.mu.Unlock()
}

// Balance reads the active account's token balance in human-decimal units.
// Callers must hold a connected account; calling without one fails with
// errs.ErrBalanceQuery before any network round-trip.
func (s *Session) Balance(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	account, client := s.account, s.client
	s.mu.Unlock()

	if account == "" {
		return decimal.Decimal{}, errs.Wrap(errs.ErrBalanceQuery, errors.New("no account connected"))
	}
	token := s.bindToken(client)
	raw, err := token.BalanceOf(ctx, account)
	if err != nil {
		return decimal.Decimal{}, errs.Wrap(errs.ErrBalanceQuery, err)
	}
	return decimal.NewFromBigInt(raw, -s.decimals), nil
}

// Account returns the active account, or false when no wallet is connected.
func (s *Session) Account() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, s.account != ""
}

// Client returns the active chain client: the provider's signing client while
// connected, the read-only default otherwise. Contract handles must be
// rebound through it after every connect/disconnect.
func (s *Session) Client() *chain.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
