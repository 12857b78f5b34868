package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/justart/artmarket/internal/chain"
	"github.com/justart/artmarket/internal/model"
)

// Token is the bound ERC-20 payment token contract.
type Token struct {
	address  common.Address
	contract *bind.BoundContract
	client   *chain.Client
}

// BindToken binds the token contract at a fixed address against the given
// client. Not cached: rebind after every client change.
func BindToken(client *chain.Client, address string) *Token {
	addr := common.HexToAddress(address)
	return &Token{
		address:  addr,
		contract: bind.NewBoundContract(addr, tokenABI, client.Eth(), client.Eth(), client.Eth()),
		client:   client,
	}
}

// Address returns the contract's fixed address.
func (t *Token) Address() string { return t.address.Hex() }

// Approve grants spender an allowance of amount base units from account.
func (t *Token) Approve(ctx context.Context, account, spender string, amount *big.Int) (model.Receipt, error) {
	opts, err := t.client.TransactOpts(ctx, account)
	if err != nil {
		return model.Receipt{}, err
	}
	tx, err := t.contract.Transact(opts, "approve", common.HexToAddress(spender), amount)
	if err != nil {
		return model.Receipt{}, err
	}
	return waitMined(ctx, t.client, tx)
}

// Allowance reads the remaining allowance spender holds on owner's balance.
func (t *Token) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	var out []interface{}
	err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance",
		common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// BalanceOf reads owner's token balance in base units.
func (t *Token) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	var out []interface{}
	err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
