package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/justart/artmarket/internal/chain"
	"github.com/justart/artmarket/internal/contracts"
	"github.com/justart/artmarket/internal/errs"
	"github.com/justart/artmarket/internal/model"
)

type fakeProvider struct {
	name       string
	accounts   []string
	connectErr error
	changes    chan []string

	authOut []string
	authErr error

	mu     sync.Mutex
	closed bool
}

var _ chain.Provider = (*fakeProvider)(nil)

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Connect(context.Context) (*chain.Handle, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return chain.NewHandle(nil, f.accounts, f.changes, func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
	}), nil
}

func (f *fakeProvider) Authorized(context.Context) ([]string, error) {
	return f.authOut, f.authErr
}

func (f *fakeProvider) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeToken struct {
	mu           sync.Mutex
	balanceOut   *big.Int
	balanceErr   error
	balanceCalls int
}

var _ contracts.TokenHandle = (*fakeToken)(nil)

func (f *fakeToken) Approve(context.Context, string, string, *big.Int) (model.Receipt, error) {
	return model.Receipt{}, errors.New("not implemented")
}

func (f *fakeToken) Allowance(context.Context, string, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeToken) BalanceOf(context.Context, string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	return f.balanceOut, f.balanceErr
}

func (f *fakeToken) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceCalls
}

func pickFirst(names []string) (string, error) {
	return names[0], nil
}

func newTestSession(tok *fakeToken, providers ...chain.Provider) *Session {
	gw := chain.NewGateway("http://localhost:0", big.NewInt(1), pickFirst, providers...)
	binder := func(*chain.Client) contracts.TokenHandle { return tok }
	return NewSession(gw, nil, binder, 18)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestConnect_LowercasesFirstAccount(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{name: "fake", accounts: []string{"0xABCDEF0123", "0x999"}}
	s := newTestSession(&fakeToken{}, p)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	account, ok := s.Account()
	if !ok || account != "0xabcdef0123" {
		t.Fatalf("account = %q, ok=%v", account, ok)
	}
	if s.State() != StateConnected {
		t.Fatalf("state = %s", s.State())
	}
}

func TestConnect_SelectionCancelled(t *testing.T) {
	t.Parallel()
	cancelled := func([]string) (string, error) { return "", errs.ErrSelectionCancelled }
	gw := chain.NewGateway("http://localhost:0", big.NewInt(1), cancelled, &fakeProvider{name: "fake"})
	s := NewSession(gw, nil, func(*chain.Client) contracts.TokenHandle { return &fakeToken{} }, 18)

	err := s.Connect(context.Background())
	if !errors.Is(err, errs.ErrSelectionCancelled) {
		t.Fatalf("want ErrSelectionCancelled, got %v", err)
	}
	if errors.Is(err, errs.ErrConnectFailed) {
		t.Fatal("cancellation must not be reported as a connect failure")
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state = %s", s.State())
	}
}

func TestConnect_ProviderError(t *testing.T) {
	t.Parallel()
	cause := errors.New("bridge unreachable")
	p := &fakeProvider{name: "fake", connectErr: cause}
	s := newTestSession(&fakeToken{}, p)

	err := s.Connect(context.Background())
	if !errors.Is(err, errs.ErrConnectFailed) || !errors.Is(err, cause) {
		t.Fatalf("want wrapped ErrConnectFailed, got %v", err)
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state = %s", s.State())
	}
}

func TestConnect_WhileConnected(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{name: "fake", accounts: []string{"0xA"}}
	s := newTestSession(&fakeToken{}, p)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Connect(context.Background()); !errors.Is(err, errs.ErrConnectFailed) {
		t.Fatalf("want ErrConnectFailed on double connect, got %v", err)
	}
}

func TestAccountsChanged_LastReceivedWins(t *testing.T) {
	t.Parallel()
	changes := make(chan []string, 4)
	p := &fakeProvider{name: "fake", accounts: []string{"0xAAA"}, changes: changes}
	s := newTestSession(&fakeToken{}, p)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	changes <- []string{"0xBBB"}
	changes <- []string{"0xCCC"}

	waitFor(t, func() bool {
		account, _ := s.Account()
		return account == "0xccc"
	})
}

func TestDisconnect_ClearsStateAndBlocksBalance(t *testing.T) {
	t.Parallel()
	tok := &fakeToken{balanceOut: big.NewInt(1)}
	p := &fakeProvider{name: "fake", accounts: []string{"0xAAA"}}
	s := newTestSession(tok, p)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !p.wasClosed() {
		t.Fatal("provider handle must be closed")
	}
	if _, ok := s.Account(); ok {
		t.Fatal("account must be absent after disconnect")
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state = %s", s.State())
	}

	_, err := s.Balance(context.Background())
	if !errors.Is(err, errs.ErrBalanceQuery) {
		t.Fatalf("want ErrBalanceQuery, got %v", err)
	}
	if tok.calls() != 0 {
		t.Fatal("balance query must not reach the network without an account")
	}
}

func TestDisconnect_WhileDisconnected(t *testing.T) {
	t.Parallel()
	s := newTestSession(&fakeToken{}, &fakeProvider{name: "fake"})
	if err := s.Disconnect(); err == nil {
		t.Fatal("want error on disconnect while disconnected")
	}
}

func TestBalance_HumanUnits(t *testing.T) {
	t.Parallel()
	raw, ok := new(big.Int).SetString("10500000000000000000", 10)
	if !ok {
		t.Fatal("bad literal")
	}
	tok := &fakeToken{balanceOut: raw}
	p := &fakeProvider{name: "fake", accounts: []string{"0xAAA"}}
	s := newTestSession(tok, p)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	balance, err := s.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.String() != "10.5" {
		t.Fatalf("balance = %s, want 10.5", balance)
	}
}

func TestBalance_QueryError(t *testing.T) {
	t.Parallel()
	cause := errors.New("rpc: connection refused")
	tok := &fakeToken{balanceErr: cause}
	p := &fakeProvider{name: "fake", accounts: []string{"0xAAA"}}
	s := newTestSession(tok, p)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_, err := s.Balance(context.Background())
	if !errors.Is(err, errs.ErrBalanceQuery) || !errors.Is(err, cause) {
		t.Fatalf("want wrapped ErrBalanceQuery, got %v", err)
	}
}

func TestCheckConnection_RestoresAuthorizedAccount(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{name: "fake", authOut: []string{"0xDDD111"}}
	s := newTestSession(&fakeToken{}, p)

	s.CheckConnection(context.Background())
	account, ok := s.Account()
	if !ok || account != "0xddd111" {
		t.Fatalf("account = %q, ok=%v", account, ok)
	}
}

func TestCheckConnection_ErrorMeansNotConnected(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{name: "fake", authErr: errors.New("bridge down")}
	s := newTestSession(&fakeToken{}, p)

	s.CheckConnection(context.Background())
	if _, ok := s.Account(); ok {
		t.Fatal("a failing check must be treated as not connected")
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state = %s", s.State())
	}
}

func TestReconnect_StaleListenerCannotWrite(t *testing.T) {
	t.Parallel()
	staleChanges := make(chan []string, 4)
	p1 := &fakeProvider{name: "fake", accounts: []string{"0xAAA"}, changes: staleChanges}
	s := newTestSession(&fakeToken{}, p1)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	p1.accounts = []string{"0xBBB"}
	p1.changes = make(chan []string, 4)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}

	// a notification on the first connection's stream must not clobber the
	// account of the new connection
	staleChanges <- []string{"0xEEE"}
	time.Sleep(50 * time.Millisecond)
	account, _ := s.Account()
	if account != "0xbbb" {
		t.Fatalf("account = %q, stale listener wrote through", account)
	}
}
