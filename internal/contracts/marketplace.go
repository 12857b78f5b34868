package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/justart/artmarket/internal/chain"
	"github.com/justart/artmarket/internal/model"
)

// chainItem mirrors the marketplace Item tuple for ABI decoding.
type chainItem struct {
	Id          string
	Owner       common.Address
	Name        string
	Description string
	Image       string
	Location    string
	Price       *big.Int
	IsListed    bool
	History     []chainTransaction
}

// chainTransaction mirrors the history entry tuple.
type chainTransaction struct {
	Id        string
	TxType    string
	From      common.Address
	Price     *big.Int
	CreatedAt *big.Int
}

func (c chainItem) toModel() model.Item {
	history := make([]model.Transaction, 0, len(c.History))
	for _, tx := range c.History {
		history = append(history, model.Transaction{
			ID:        tx.Id,
			Type:      model.TxType(tx.TxType),
			From:      strings.ToLower(tx.From.Hex()),
			Price:     tx.Price,
			CreatedAt: time.Unix(tx.CreatedAt.Int64(), 0).UTC(),
		})
	}
	return model.Item{
		ID:          c.Id,
		Owner:       strings.ToLower(c.Owner.Hex()),
		Name:        c.Name,
		Description: c.Description,
		Image:       c.Image,
		Location:    c.Location,
		Price:       c.Price,
		IsListed:    c.IsListed,
		History:     history,
	}
}

// Marketplace is the bound marketplace contract.
type Marketplace struct {
	address  common.Address
	contract *bind.BoundContract
	client   *chain.Client
}

// BindMarketplace binds the marketplace contract at a fixed address against
// the given client. Not cached: rebind after every client change.
func BindMarketplace(client *chain.Client, address string) *Marketplace {
	addr := common.HexToAddress(address)
	return &Marketplace{
		address:  addr,
		contract: bind.NewBoundContract(addr, marketplaceABI, client.Eth(), client.Eth(), client.Eth()),
		client:   client,
	}
}

// Address returns the contract's fixed address.
func (m *Marketplace) Address() string { return m.address.Hex() }

// AddNewItem submits a listing creation signed by account.
func (m *Marketplace) AddNewItem(ctx context.Context, account string, item model.Item) (model.Receipt, error) {
	return m.transact(ctx, account, "addNewItem",
		item.ID, item.Name, item.Description, item.Image, item.Location, item.Price)
}

// BuyItems submits a purchase of the given item.
func (m *Marketplace) BuyItems(ctx context.Context, account, itemID string) (model.Receipt, error) {
	return m.transact(ctx, account, "buyItems", itemID)
}

// RelistItem updates location and price of an item owned by account.
func (m *Marketplace) RelistItem(ctx context.Context, account, itemID, location string, price *big.Int) (model.Receipt, error) {
	return m.transact(ctx, account, "relistItem", itemID, location, price)
}

// UnlistItem delists an item owned by account.
func (m *Marketplace) UnlistItem(ctx context.Context, account, itemID string) (model.Receipt, error) {
	return m.transact(ctx, account, "unlistItem", itemID)
}

// GetUserItems returns the ids of all items owned by account.
func (m *Marketplace) GetUserItems(ctx context.Context, account string) ([]string, error) {
	var out []interface{}
	err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getUserItems", common.HexToAddress(account))
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]string)).(*[]string), nil
}

// GetItemFromID fetches one item by id.
func (m *Marketplace) GetItemFromID(ctx context.Context, itemID string) (model.Item, error) {
	var out []interface{}
	err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getItemFromID", itemID)
	if err != nil {
		return model.Item{}, err
	}
	raw := *abi.ConvertType(out[0], new(chainItem)).(*chainItem)
	return raw.toModel(), nil
}

// GetItemCounts returns the total number of items ever listed.
func (m *Marketplace) GetItemCounts(ctx context.Context) (int64, error) {
	var out []interface{}
	err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getItemCounts")
	if err != nil {
		return 0, err
	}
	count := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return count.Int64(), nil
}

// GetItemFromCountMap fetches the item at a creation-order index.
func (m *Marketplace) GetItemFromCountMap(ctx context.Context, index int64) (model.Item, error) {
	var out []interface{}
	err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getItemFromCountMap", big.NewInt(index))
	if err != nil {
		return model.Item{}, err
	}
	raw := *abi.ConvertType(out[0], new(chainItem)).(*chainItem)
	return raw.toModel(), nil
}

func (m *Marketplace) transact(ctx context.Context, account, method string, params ...interface{}) (model.Receipt, error) {
	opts, err := m.client.TransactOpts(ctx, account)
	if err != nil {
		return model.Receipt{}, err
	}
	tx, err := m.contract.Transact(opts, method, params...)
	if err != nil {
		return model.Receipt{}, err
	}
	return waitMined(ctx, m.client, tx)
}

// waitMined blocks until the transaction is confirmed and reports the mined
// receipt. A reverted transaction is an error, not a receipt.
func waitMined(ctx context.Context, client *chain.Client, tx *types.Transaction) (model.Receipt, error) {
	rcpt, err := bind.WaitMined(ctx, client.Eth(), tx)
	if err != nil {
		return model.Receipt{}, err
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		return model.Receipt{}, fmt.Errorf("transaction %s reverted", rcpt.TxHash.Hex())
	}
	return model.Receipt{
		TxHash:      rcpt.TxHash.Hex(),
		BlockNumber: rcpt.BlockNumber.Uint64(),
		Confirmed:   true,
	}, nil
}
