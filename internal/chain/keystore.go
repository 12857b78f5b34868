package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// PassphraseFunc asks the user for the passphrase of the given account.
type PassphraseFunc func(account string) (string, error)

// KeystoreProvider signs locally with keys held in a go-ethereum keystore
// directory. It is the "installed wallet" transport: keys never leave the
// user's machine.
type KeystoreProvider struct {
	ks         *keystore.KeyStore
	rpcURL     string
	chainID    *big.Int
	passphrase PassphraseFunc

	mu       sync.Mutex
	unlocked bool
}

// NewKeystoreProvider opens (or creates) a keystore directory.
func NewKeystoreProvider(dir, rpcURL string, chainID *big.Int, passphrase PassphraseFunc) *KeystoreProvider {
	return &KeystoreProvider{
		ks:         keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		rpcURL:     rpcURL,
		chainID:    chainID,
		passphrase: passphrase,
	}
}

// Name implements Provider.
func (p *KeystoreProvider) Name() string { return "keystore" }

// Connect unlocks the first keystore account and returns a signing handle.
// Keystore wallet events (keys added or dropped) are forwarded as account
// changes for the lifetime of the handle.
func (p *KeystoreProvider) Connect(ctx context.Context) (*Handle, error) {
	accts := p.ks.Accounts()
	if len(accts) == 0 {
		return nil, fmt.Errorf("keystore: no accounts")
	}
	pass, err := p.passphrase(accts[0].Address.Hex())
	if err != nil {
		return nil, fmt.Errorf("keystore: passphrase: %w", err)
	}
	if err := p.ks.Unlock(accts[0], pass); err != nil {
		return nil, fmt.Errorf("keystore: unlock: %w", err)
	}
	p.mu.Lock()
	p.unlocked = true
	p.mu.Unlock()

	eth, err := ethclient.DialContext(ctx, p.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("keystore: dial: %w", err)
	}

	signer := func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
		return p.ks.SignTx(accounts.Account{Address: addr}, tx, p.chainID)
	}
	client := NewSigningClient(eth, p.chainID, signer)

	sink := make(chan accounts.WalletEvent, 16)
	sub := p.ks.Subscribe(sink)
	changes := make(chan []string, 16)
	done := make(chan struct{})
	go func() {
		defer close(changes)
		for {
			select {
			case <-sink:
				changes <- p.addressList()
			case <-done:
				return
			}
		}
	}()

	closeFn := func() {
		sub.Unsubscribe()
		close(done)
		eth.Close()
	}
	return NewHandle(client, p.addressList(), changes, closeFn), nil
}

// Authorized implements Provider: the keystore is restorable only while an
// account is unlocked in this process.
func (p *KeystoreProvider) Authorized(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.unlocked {
		return nil, nil
	}
	return p.addressList(), nil
}

func (p *KeystoreProvider) addressList() []string {
	accts := p.ks.Accounts()
	out := make([]string, 0, len(accts))
	for _, a := range accts {
		out = append(out, a.Address.Hex())
	}
	return out
}
