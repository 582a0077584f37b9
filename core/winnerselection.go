package core

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 4 // outcome values are reported to 0.0001

// ItemRanking contains the ranked participants for one item and their aggregated quantities.
type ItemRanking struct {
	Item int

	// Ranks maps participant index to 1-based rank
	Ranks map[int]int

	// Totals maps participant index to the sum of its accepted quantities
	Totals map[int]uint64

	// FirstBids maps participant index to its earliest bid on the item
	FirstBids map[int]Bid

	// SortedParticipants lists participant indices, best first
	SortedParticipants []int
}

// RankItemBids ranks the participants that bid on one item.
// Quantities are summed per participant. Larger totals rank higher; equal totals
// keep the order in which the participants first bid on the item.
func RankItemBids(item int, bids []Bid) *ItemRanking {
	result := &ItemRanking{
		Item:               item,
		Ranks:              make(map[int]int),
		Totals:             make(map[int]uint64),
		FirstBids:          make(map[int]Bid),
		SortedParticipants: make([]int, 0),
	}

	// Sum quantities per participant while preserving order of first occurrence
	order := make([]int, 0, len(bids))
	for _, bid := range bids {
		if bid.Item != item {
			continue
		}
		if _, seen := result.Totals[bid.Participant]; !seen {
			order = append(order, bid.Participant)
			result.FirstBids[bid.Participant] = bid
		}
		result.Totals[bid.Participant] += bid.Quantity
	}

	// Stable sort keeps first-bid order among equal totals
	sort.SliceStable(order, func(i, j int) bool {
		return result.Totals[order[i]] > result.Totals[order[j]]
	})

	for rank, participant := range order {
		result.Ranks[participant] = rank + 1
	}
	result.SortedParticipants = order

	return result
}

// SelectWinners resolves every item of the catalog against the accepted bids.
// Items without bids are returned with HasWinner unset and a null winner.
func SelectWinners(items []Item, bids []Bid) []ItemOutcome {
	outcomes := make([]ItemOutcome, len(items))

	for i, item := range items {
		outcomes[i] = ItemOutcome{
			Item:        item.Index,
			Winner:      NullAddress,
			WinnerIndex: -1,
			Value:       decimal.Zero,
		}

		ranking := RankItemBids(item.Index, bids)
		if len(ranking.SortedParticipants) == 0 {
			continue
		}

		winner := ranking.SortedParticipants[0]
		quantity := ranking.Totals[winner]

		outcomes[i].HasWinner = true
		outcomes[i].Winner = ranking.FirstBids[winner].Address
		outcomes[i].WinnerIndex = winner
		outcomes[i].Quantity = quantity
		outcomes[i].Value = OutcomeValue(quantity, item.TokenPrice)
	}

	return outcomes
}

// OutcomeValue returns quantity x price using decimal arithmetic, rounded to monetaryPrecision.
func OutcomeValue(quantity uint64, tokenPrice decimal.Decimal) decimal.Decimal {
	quantityDecimal := decimal.NewFromBigInt(new(big.Int).SetUint64(quantity), 0)
	return quantityDecimal.Mul(tokenPrice).Round(monetaryPrecision)
}
