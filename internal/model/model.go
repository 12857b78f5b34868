// Package model defines domain entities shared by the wallet, contract, and
// market layers.
package model

import (
	"math/big"
	"time"
)

// TxType classifies an entry in an item's on-chain history.
type TxType string

const (
	TxList    TxType = "list"
	TxRelist  TxType = "relist"
	TxUnlist  TxType = "unlist"
	TxBuy     TxType = "buy"
	TxApprove TxType = "approve"
)

// Transaction is a single append-only history entry recorded by the contract.
type Transaction struct {
	ID        string
	Type      TxType
	From      string   // lower-cased hex address
	Price     *big.Int // base token units
	CreatedAt time.Time
}

// Item is a marketplace listing as stored on chain. Price is always an
// integer in base token units; display conversion happens at the edge and is
// never written back into this struct.
type Item struct {
	ID          string // client-generated at creation time
	Owner       string // lower-cased hex address
	Name        string
	Description string
	Image       string // URI
	Location    string
	Price       *big.Int // base token units
	IsListed    bool
	History     []Transaction
}

// ListingDraft is the consumer's input for a new listing. Price is a
// human-decimal string; the market layer converts it to base units exactly
// once, on submission.
type ListingDraft struct {
	Name        string
	Description string
	Image       string
	Location    string
	Price       string
}

// Receipt reports a confirmed on-chain write.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Confirmed   bool
}
