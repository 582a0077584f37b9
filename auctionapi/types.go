package auctionapi

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/tokenauction/core"
)

// Request types
const (
	TypePing          = "ping"
	TypeRegister      = "register"
	TypePersonDetails = "person_details"
	TypeBid           = "bid"
	TypeRevealWinners = "reveal_winners"
	TypeWinner        = "winner"
	TypeItem          = "item"

	// TypeError is the response type for requests that could not be decoded or dispatched
	TypeError = "error"
)

// ResponseType returns the response type for a request type, e.g. "bid_response".
func ResponseType(requestType string) string {
	return requestType + "_response"
}

// Request is the single request envelope accepted by the server.
// Only the fields relevant to Type are read.
type Request struct {
	Type     string         `json:"type"`
	Caller   common.Address `json:"caller,omitempty"`   // register, bid, reveal_winners
	Index    int            `json:"index,omitempty"`    // person_details
	Item     int            `json:"item,omitempty"`     // bid, winner, item
	Quantity uint64         `json:"quantity,omitempty"` // bid
}

// ParticipantView is the wire form of a participant. Fields keep the
// index, metadata slot, address order.
type ParticipantView struct {
	Index   int            `json:"index"`
	Receipt uuid.UUID      `json:"receipt"`
	Address common.Address `json:"address"`
}

// ItemView is the wire form of an item's live state.
type ItemView struct {
	Index      int             `json:"index"`
	Name       string          `json:"name"`
	Supply     uint64          `json:"supply"`
	Remaining  uint64          `json:"remaining"`
	TokenPrice decimal.Decimal `json:"token_price"`
}

// BidView is the wire form of an accepted bid.
type BidView struct {
	Seq         int            `json:"seq"`
	Participant int            `json:"participant"`
	Address     common.Address `json:"address"`
	Item        int            `json:"item"`
	Quantity    uint64         `json:"quantity"`
}

// OutcomeView is the wire form of one item's resolution.
type OutcomeView struct {
	Item        int             `json:"item"`
	HasWinner   bool            `json:"has_winner"`
	Winner      common.Address  `json:"winner"`
	WinnerIndex int             `json:"winner_index"`
	Quantity    uint64          `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
}

// RevealView is the wire form of a reveal result.
type RevealView struct {
	Round      int           `json:"round"`
	BidCount   int           `json:"bid_count"`
	BidsDigest string        `json:"bids_digest"`
	Outcomes   []OutcomeView `json:"outcomes"`
	Receipt    RevealReceipt `json:"receipt,omitempty"` // compact encoding of the whole result
}

// Response is returned for every request.
type Response struct {
	Type           string           `json:"type"`
	Success        bool             `json:"success"`
	Message        string           `json:"message"`
	ErrorCode      ErrorCode        `json:"error_code,omitempty"`
	Participant    *ParticipantView `json:"participant,omitempty"`
	Bid            *BidView         `json:"bid,omitempty"`
	ItemState      *ItemView        `json:"item_state,omitempty"`
	Reveal         *RevealView      `json:"reveal,omitempty"`
	Winner         *common.Address  `json:"winner,omitempty"`
	ProcessingTime int64            `json:"processing_time_ms"`
}

// NewParticipantView converts a core participant.
func NewParticipantView(p core.Participant) *ParticipantView {
	return &ParticipantView{Index: p.Index, Receipt: p.Receipt, Address: p.Address}
}

// NewItemView converts a core item.
func NewItemView(item core.Item) *ItemView {
	return &ItemView{
		Index:      item.Index,
		Name:       item.Name,
		Supply:     item.Supply,
		Remaining:  item.Remaining,
		TokenPrice: item.TokenPrice,
	}
}

// NewBidView converts a core bid.
func NewBidView(bid core.Bid) *BidView {
	return &BidView{
		Seq:         bid.Seq,
		Participant: bid.Participant,
		Address:     bid.Address,
		Item:        bid.Item,
		Quantity:    bid.Quantity,
	}
}

// NewRevealView converts a core reveal result and attaches its compact receipt.
// The view is always returned; on a receipt encoding error it has no receipt.
func NewRevealView(result *core.RevealResult) (*RevealView, error) {
	view := &RevealView{
		Round:      result.Round,
		BidCount:   result.BidCount,
		BidsDigest: result.BidsDigest,
		Outcomes: lo.Map(result.Outcomes, func(o core.ItemOutcome, _ int) OutcomeView {
			return OutcomeView(o)
		}),
	}

	receipt, err := EncodeRevealReceipt(result)
	if err != nil {
		return view, err
	}
	view.Receipt = receipt
	return view, nil
}

// ToResult converts the view back into a core reveal result.
func (v *RevealView) ToResult() *core.RevealResult {
	return &core.RevealResult{
		Round:      v.Round,
		BidCount:   v.BidCount,
		BidsDigest: v.BidsDigest,
		Outcomes: lo.Map(v.Outcomes, func(o OutcomeView, _ int) core.ItemOutcome {
			return core.ItemOutcome(o)
		}),
	}
}

// ToParticipant converts the view back into a core participant.
func (v *ParticipantView) ToParticipant() core.Participant {
	return core.Participant{Index: v.Index, Receipt: v.Receipt, Address: v.Address}
}

// ToItem converts the view back into a core item.
func (v *ItemView) ToItem() core.Item {
	return core.Item{
		Index:      v.Index,
		Name:       v.Name,
		Supply:     v.Supply,
		Remaining:  v.Remaining,
		TokenPrice: v.TokenPrice,
	}
}

// ToBid converts the view back into a core bid.
func (v *BidView) ToBid() core.Bid {
	return core.Bid{
		Seq:         v.Seq,
		Participant: v.Participant,
		Address:     v.Address,
		Item:        v.Item,
		Quantity:    v.Quantity,
	}
}
