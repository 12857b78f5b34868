package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// bridgeStub is a minimal remote wallet: answers account requests and can
// push accountsChanged events to the connected client.
type bridgeStub struct {
	accounts []string
	pushes   chan []string
}

func (b *bridgeStub) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		requests := make(chan bridgeFrame)
		go func() {
			defer close(requests)
			for {
				var f bridgeFrame
				if err := conn.ReadJSON(&f); err != nil {
					return
				}
				requests <- f
			}
		}()

		for {
			select {
			case f, ok := <-requests:
				if !ok {
					return
				}
				switch f.Method {
				case "wallet_requestAccounts", "wallet_accounts":
					result, _ := json.Marshal(b.accounts)
					_ = conn.WriteJSON(bridgeFrame{ID: f.ID, Result: result})
				default:
					_ = conn.WriteJSON(bridgeFrame{ID: f.ID, Error: "unknown method " + f.Method})
				}
			case accounts := <-b.pushes:
				_ = conn.WriteJSON(bridgeFrame{Event: "accountsChanged", Accounts: accounts})
			}
		}
	}
}

func startBridge(t *testing.T, stub *bridgeStub) string {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestBridgeProvider_Authorized(t *testing.T) {
	stub := &bridgeStub{accounts: []string{"0xAbC123"}, pushes: make(chan []string)}
	url := startBridge(t, stub)

	p := NewBridgeProvider(url, "http://localhost:0", big.NewInt(44787))
	accounts, err := p.Authorized(context.Background())
	if err != nil {
		t.Fatalf("Authorized: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != "0xAbC123" {
		t.Fatalf("accounts = %v", accounts)
	}
}

func TestBridgeProvider_ConnectAndAccountsChanged(t *testing.T) {
	stub := &bridgeStub{accounts: []string{"0xAbC123"}, pushes: make(chan []string)}
	url := startBridge(t, stub)

	p := NewBridgeProvider(url, "http://localhost:0", big.NewInt(44787))
	h, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer h.Close()

	if got := h.Accounts(); len(got) != 1 || got[0] != "0xAbC123" {
		t.Fatalf("accounts = %v", got)
	}
	if !h.Client().CanSign() {
		t.Fatal("bridge handle must be able to sign")
	}

	stub.pushes <- []string{"0xDeF456"}
	select {
	case accounts := <-h.AccountsChanged():
		if len(accounts) != 1 || accounts[0] != "0xDeF456" {
			t.Fatalf("pushed accounts = %v", accounts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("accountsChanged push not delivered")
	}
}

func TestBridgeProvider_Unreachable(t *testing.T) {
	p := NewBridgeProvider("ws://127.0.0.1:1", "http://localhost:0", big.NewInt(44787))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := p.Authorized(ctx); err == nil {
		t.Fatal("want error dialing an unreachable bridge")
	}
}
