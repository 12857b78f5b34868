package contracts

import (
	"context"
	"math/big"

	"github.com/justart/artmarket/internal/model"
)

// MarketplaceHandle is the bound marketplace contract as consumed by the
// market layer. Writes submit "from" the given account and return once the
// transaction is mined.
type MarketplaceHandle interface {
	AddNewItem(ctx context.Context, account string, item model.Item) (model.Receipt, error)
	BuyItems(ctx context.Context, account, itemID string) (model.Receipt, error)
	RelistItem(ctx context.Context, account, itemID, location string, price *big.Int) (model.Receipt, error)
	UnlistItem(ctx context.Context, account, itemID string) (model.Receipt, error)
	GetUserItems(ctx context.Context, account string) ([]string, error)
	GetItemFromID(ctx context.Context, itemID string) (model.Item, error)
	GetItemCounts(ctx context.Context) (int64, error)
	GetItemFromCountMap(ctx context.Context, index int64) (model.Item, error)
}

// TokenHandle is the bound ERC-20 token contract.
type TokenHandle interface {
	Approve(ctx context.Context, account, spender string, amount *big.Int) (model.Receipt, error)
	Allowance(ctx context.Context, owner, spender string) (*big.Int, error)
	BalanceOf(ctx context.Context, owner string) (*big.Int, error)
}

var (
	_ MarketplaceHandle = (*Marketplace)(nil)
	_ TokenHandle       = (*Token)(nil)
)
