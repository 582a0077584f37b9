package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NullAddress is the sentinel for "no winner assigned".
var NullAddress = common.Address{}

// ItemSpec describes one catalog entry at engine initialization.
type ItemSpec struct {
	Name       string          `json:"name"`
	Supply     uint64          `json:"supply"`
	TokenPrice decimal.Decimal `json:"token_price"`
}

// Participant is a registered bidder. The address is the third field.
type Participant struct {
	Index   int            `json:"index"`
	Receipt uuid.UUID      `json:"receipt"`
	Address common.Address `json:"address"`
}

// Item is the live state of a catalog entry.
type Item struct {
	Index      int             `json:"index"`
	Name       string          `json:"name"`
	Supply     uint64          `json:"supply"`
	Remaining  uint64          `json:"remaining"`
	TokenPrice decimal.Decimal `json:"token_price"`
}

// Bid is an accepted request for a quantity of an item's tokens.
type Bid struct {
	Seq         int            `json:"seq"`
	Participant int            `json:"participant"`
	Address     common.Address `json:"address"`
	Item        int            `json:"item"`
	Quantity    uint64         `json:"quantity"`
}

// ItemOutcome is the resolution of a single item in a reveal.
type ItemOutcome struct {
	Item        int             `json:"item"`
	HasWinner   bool            `json:"has_winner"`
	Winner      common.Address  `json:"winner"`
	WinnerIndex int             `json:"winner_index"`
	Quantity    uint64          `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
}

// RevealResult contains the complete results of one successful reveal.
type RevealResult struct {
	// Round counts successful reveals, starting at 1
	Round int `json:"round"`

	// BidCount is the number of accepted bids the reveal covered
	BidCount int `json:"bid_count"`

	// BidsDigest commits to those bids in acceptance order
	BidsDigest string `json:"bids_digest"`

	Outcomes []ItemOutcome `json:"outcomes"`
}

// DefaultCatalog returns three items with a supply of 5 tokens priced at 1.
func DefaultCatalog() []ItemSpec {
	return []ItemSpec{
		{Name: "item-0", Supply: 5, TokenPrice: decimal.NewFromInt(1)},
		{Name: "item-1", Supply: 5, TokenPrice: decimal.NewFromInt(1)},
		{Name: "item-2", Supply: 5, TokenPrice: decimal.NewFromInt(1)},
	}
}
