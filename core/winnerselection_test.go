package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestRankItemBids_Integration(t *testing.T) {
	bids := []Bid{
		{Seq: 0, Participant: 0, Address: addrA, Item: 0, Quantity: 2},
		{Seq: 1, Participant: 1, Address: addrB, Item: 0, Quantity: 1},
		{Seq: 2, Participant: 2, Address: addrC, Item: 0, Quantity: 3},
		{Seq: 3, Participant: 1, Address: addrB, Item: 1, Quantity: 5}, // other item
	}

	ranking := RankItemBids(0, bids)

	check.Equal(t, 3, len(ranking.SortedParticipants))
	check.Equal(t, 2, ranking.SortedParticipants[0]) // Highest (3)
	check.Equal(t, 0, ranking.SortedParticipants[1]) // Middle (2)
	check.Equal(t, 1, ranking.SortedParticipants[2]) // Lowest (1)

	check.Equal(t, 1, ranking.Ranks[2])
	check.Equal(t, 3, ranking.Ranks[1])
	check.Equal(t, uint64(1), ranking.Totals[1])
}

func TestRankItemBids_SumsPerParticipant(t *testing.T) {
	bids := []Bid{
		{Seq: 0, Participant: 0, Address: addrA, Item: 0, Quantity: 3},
		{Seq: 1, Participant: 1, Address: addrB, Item: 0, Quantity: 2},
		{Seq: 2, Participant: 1, Address: addrB, Item: 0, Quantity: 2},
	}

	ranking := RankItemBids(0, bids)

	check.Equal(t, []int{1, 0}, ranking.SortedParticipants)
	check.Equal(t, uint64(4), ranking.Totals[1])
	check.Equal(t, 1, ranking.FirstBids[1].Seq)
}

func TestRankItemBids_TieGoesToEarliestBidder(t *testing.T) {
	bids := []Bid{
		{Seq: 0, Participant: 2, Address: addrC, Item: 0, Quantity: 2},
		{Seq: 1, Participant: 0, Address: addrA, Item: 0, Quantity: 2},
		{Seq: 2, Participant: 1, Address: addrB, Item: 0, Quantity: 2},
	}

	ranking := RankItemBids(0, bids)

	check.Equal(t, []int{2, 0, 1}, ranking.SortedParticipants)
}

func TestRankItemBids_EmptyBids(t *testing.T) {
	ranking := RankItemBids(0, []Bid{})

	check.NotNil(t, ranking)
	check.Equal(t, 0, len(ranking.SortedParticipants))
	check.Equal(t, 0, len(ranking.Ranks))
	check.Equal(t, 0, len(ranking.Totals))
}

func TestSelectWinners(t *testing.T) {
	items := []Item{
		{Index: 0, Name: "a", Supply: 5, Remaining: 0, TokenPrice: decimal.RequireFromString("0.3333")},
		{Index: 1, Name: "b", Supply: 5, Remaining: 5, TokenPrice: decimal.NewFromInt(1)},
	}
	bids := []Bid{
		{Seq: 0, Participant: 3, Address: addrD, Item: 0, Quantity: 5},
	}

	outcomes := SelectWinners(items, bids)

	check.Equal(t, 2, len(outcomes))
	check.True(t, outcomes[0].HasWinner)
	check.Equal(t, addrD, outcomes[0].Winner)
	check.Equal(t, 3, outcomes[0].WinnerIndex)
	check.Equal(t, uint64(5), outcomes[0].Quantity)
	check.True(t, decimal.RequireFromString("1.6665").Equal(outcomes[0].Value))

	check.False(t, outcomes[1].HasWinner)
	check.Equal(t, NullAddress, outcomes[1].Winner)
	check.Equal(t, -1, outcomes[1].WinnerIndex)
	check.True(t, outcomes[1].Value.IsZero())
}

func TestOutcomeValue(t *testing.T) {
	tests := []struct {
		name     string
		quantity uint64
		price    string
		expected string
	}{
		{"whole price", 5, "1", "5"},
		{"fractional price", 3, "0.25", "0.75"},
		{"rounds to four places", 1, "0.123456", "0.1235"},
		{"zero price", 4, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutcomeValue(tt.quantity, decimal.RequireFromString(tt.price))
			check.True(t, decimal.RequireFromString(tt.expected).Equal(got))
		})
	}
}
