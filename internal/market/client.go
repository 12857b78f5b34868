// Package market translates domain operations into marketplace and token
// contract calls. Every operation takes its contract handle and the active
// account explicitly; nothing here reads session state by reference.
package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/sync/errgroup"

	"github.com/justart/artmarket/internal/contracts"
	"github.com/justart/artmarket/internal/errs"
	"github.com/justart/artmarket/internal/model"
)

// Client performs marketplace operations with a fixed token decimal exponent.
type Client struct {
	decimals int32
}

// New returns a market client for a token with the given decimals.
func New(decimals int32) *Client {
	return &Client{decimals: decimals}
}

// CreateListing assigns a fresh id to the draft, converts its price to base
// units, and submits the creation transaction signed by account. Returns the
// new item id. Signing/broadcast failures surface as errs.ErrSubmissionFailed
// with the cause wrapped unmodified.
func (c *Client) CreateListing(ctx context.Context, draft model.ListingDraft, mkt contracts.MarketplaceHandle, account string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	price, err := ToBaseUnits(draft.Price, c.decimals)
	if err != nil {
		return "", fmt.Errorf("validation: %w", err)
	}
	item := model.Item{
		ID:          id.String(),
		Name:        draft.Name,
		Description: draft.Description,
		Image:       draft.Image,
		Location:    draft.Location,
		Price:       price,
	}
	if _, err := mkt.AddNewItem(ctx, account, item); err != nil {
		return "", errs.Wrap(errs.ErrSubmissionFailed, err)
	}
	return item.ID, nil
}

// BuyItem submits a purchase. The caller is responsible for ensuring the
// spend allowance covers the item price; no allowance check happens here —
// an insufficient allowance simply comes back as the remote submission error.
func (c *Client) BuyItem(ctx context.Context, itemID string, mkt contracts.MarketplaceHandle, account string) (model.Receipt, error) {
	rcpt, err := mkt.BuyItems(ctx, account, itemID)
	if err != nil {
		return model.Receipt{}, errs.Wrap(errs.ErrSubmissionFailed, err)
	}
	return rcpt, nil
}

// ApproveSpend grants the marketplace contract an allowance of amount base
// units on account's token balance.
func (c *Client) ApproveSpend(ctx context.Context, amount *big.Int, token contracts.TokenHandle, marketAddress, account string) (model.Receipt, error) {
	rcpt, err := token.Approve(ctx, account, marketAddress, amount)
	if err != nil {
		return model.Receipt{}, errs.Wrap(errs.ErrSubmissionFailed, err)
	}
	return rcpt, nil
}

// RelistItem converts newPrice to base units and submits the update.
// Ownership is enforced by the remote contract; a rejection surfaces as
// errs.ErrSubmissionFailed.
func (c *Client) RelistItem(ctx context.Context, itemID, newPrice, newLocation string, mkt contracts.MarketplaceHandle, account string) (model.Receipt, error) {
	price, err := ToBaseUnits(newPrice, c.decimals)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("validation: %w", err)
	}
	rcpt, err := mkt.RelistItem(ctx, account, itemID, newLocation, price)
	if err != nil {
		return model.Receipt{}, errs.Wrap(errs.ErrSubmissionFailed, err)
	}
	return rcpt, nil
}

// UnlistItem submits a delist transaction.
func (c *Client) UnlistItem(ctx context.Context, itemID string, mkt contracts.MarketplaceHandle, account string) (model.Receipt, error) {
	rcpt, err := mkt.UnlistItem(ctx, account, itemID)
	if err != nil {
		return model.Receipt{}, errs.Wrap(errs.ErrSubmissionFailed, err)
	}
	return rcpt, nil
}

// GetItem fetches a single item by id. An id the contract does not know
// surfaces as errs.ErrNotFound.
func (c *Client) GetItem(ctx context.Context, itemID string, mkt contracts.MarketplaceHandle) (model.Item, error) {
	item, err := mkt.GetItemFromID(ctx, itemID)
	if err != nil {
		return model.Item{}, errs.Wrap(errs.ErrNotFound, err)
	}
	if item.ID == "" {
		return model.Item{}, errs.Wrap(errs.ErrNotFound, errors.New("no item with id "+itemID))
	}
	return item, nil
}

// GetUserItemIDs fetches the ids of all items owned by account.
func (c *Client) GetUserItemIDs(ctx context.Context, account string, mkt contracts.MarketplaceHandle) ([]string, error) {
	return mkt.GetUserItems(ctx, account)
}

// ListAllItems reads the item count, then fans out one concurrent read per
// index and joins on all of them. Any single failed read fails the whole
// aggregation; the result is assembled in index order, not completion order.
func (c *Client) ListAllItems(ctx context.Context, mkt contracts.MarketplaceHandle) ([]model.Item, error) {
	count, err := mkt.GetItemCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("item count: %w", err)
	}
	items := make([]model.Item, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := int64(0); i < count; i++ {
		i := i
		g.Go(func() error {
			item, err := mkt.GetItemFromCountMap(gctx, i)
			if err != nil {
				return fmt.Errorf("item at index %d: %w", i, err)
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
