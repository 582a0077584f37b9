package validation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/cloudx-io/tokenauction/core"
)

// journalReplay is the state rebuilt from a journal prefix without the
// engine's admission checks, so tampered journals are reported rather than
// rejected.
type journalReplay struct {
	bids         []core.Bid
	reveals      int
	revealCaller []string
	unknownBids  int
}

// ValidateReveal recomputes the claimed reveal from the journal and verifies:
// - The claimed round exists and was triggered by the owner
// - Bid count and bids digest match the bids accepted before that reveal
// - Each item's winner, quantity and value match the ranking rules
// - No item's accepted quantities exceed its supply
//
// Returns:
//   - RevealValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed receipt, empty catalog)
func ValidateReveal(input *RevealValidationInput) (*RevealValidationResult, error) {
	if input == nil {
		return nil, errors.New("validation input is required")
	}
	if len(input.Catalog) == 0 {
		return nil, errors.New("catalog is empty")
	}

	claimed := input.Claimed
	if claimed == nil {
		if input.Receipt == "" {
			return nil, errors.New("either a claimed result or a receipt is required")
		}
		decoded, err := input.Receipt.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
		claimed = decoded
	}

	result := &RevealValidationResult{}
	replay := replayUntilRound(input.Events, claimed.Round, result)

	result.RoundValid = validateRound(input, claimed, replay, result)
	result.DigestValid = validateDigest(claimed, replay, result)
	result.WinnersValid = validateWinners(input, claimed, replay, result)
	result.SupplyValid = validateSupply(input, replay, result)

	return result, nil
}

// replayUntilRound collects the bids accepted before the round-th reveal event.
func replayUntilRound(events []core.Event, round int, result *RevealValidationResult) *journalReplay {
	replay := &journalReplay{}
	firstIndex := make(map[string]int)
	participants := 0

	for _, event := range events {
		switch event.Kind {
		case core.EventRegister:
			key := event.Caller.Hex()
			if _, ok := firstIndex[key]; !ok {
				firstIndex[key] = participants
			}
			participants++
		case core.EventBid:
			participant, ok := firstIndex[event.Caller.Hex()]
			if !ok || event.Caller == core.NullAddress {
				replay.unknownBids++
				result.ValidationDetails = append(result.ValidationDetails,
					fmt.Sprintf("Journal event %d: bid by unregistered caller %s", event.Seq, event.Caller.Hex()))
				participant = -1
			}
			replay.bids = append(replay.bids, core.Bid{
				Seq:         len(replay.bids),
				Participant: participant,
				Address:     event.Caller,
				Item:        event.Item,
				Quantity:    event.Quantity,
			})
		case core.EventReveal:
			replay.reveals++
			replay.revealCaller = append(replay.revealCaller, event.Caller.Hex())
			if replay.reveals == round {
				return replay
			}
		default:
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("Journal event %d: unknown kind %q", event.Seq, event.Kind))
		}
	}

	return replay
}

func validateRound(input *RevealValidationInput, claimed *core.RevealResult, replay *journalReplay, result *RevealValidationResult) bool {
	if claimed.Round < 1 {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Round validation failed: invalid round %d", claimed.Round))
		return false
	}
	if replay.reveals < claimed.Round {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Round validation failed: journal holds %d reveals, claimed round %d", replay.reveals, claimed.Round))
		return false
	}

	owner := input.Owner.Hex()
	foreign := lo.Filter(replay.revealCaller, func(caller string, _ int) bool { return caller != owner })
	if len(foreign) > 0 {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Round validation failed: %d reveals not triggered by owner %s", len(foreign), owner))
		return false
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Round validation passed: round %d", claimed.Round))
	return true
}

func validateDigest(claimed *core.RevealResult, replay *journalReplay, result *RevealValidationResult) bool {
	valid := true

	if claimed.BidCount != len(replay.bids) {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Bid count mismatch: claimed %d, journal has %d", claimed.BidCount, len(replay.bids)))
		valid = false
	}

	computed := core.ComputeBidsDigest(replay.bids)
	if computed != claimed.BidsDigest {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Bids digest mismatch: computed %s, claimed %s", computed, claimed.BidsDigest))
		valid = false
	}

	if valid {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bids digest validation passed: %s", computed))
	}
	return valid
}

func validateWinners(input *RevealValidationInput, claimed *core.RevealResult, replay *journalReplay, result *RevealValidationResult) bool {
	items := lo.Map(input.Catalog, func(spec core.ItemSpec, i int) core.Item {
		return core.Item{Index: i, Name: spec.Name, Supply: spec.Supply, TokenPrice: spec.TokenPrice}
	})
	expected := core.SelectWinners(items, replay.bids)

	if len(claimed.Outcomes) != len(expected) {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Winner validation failed: claimed %d outcomes, catalog has %d items", len(claimed.Outcomes), len(expected)))
		return false
	}

	valid := true
	for i, want := range expected {
		got := claimed.Outcomes[i]
		if !outcomesEqual(want, got) {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("Winner mismatch on item %d: expected %s x%d (value %s), claimed %s x%d (value %s)",
					want.Item, want.Winner.Hex(), want.Quantity, want.Value, got.Winner.Hex(), got.Quantity, got.Value))
			valid = false
		}
	}

	if valid {
		winners := lo.CountBy(expected, func(o core.ItemOutcome) bool { return o.HasWinner })
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Winner validation passed: %d of %d items resolved", winners, len(expected)))
	}
	return valid
}

func outcomesEqual(a, b core.ItemOutcome) bool {
	return a.Item == b.Item &&
		a.HasWinner == b.HasWinner &&
		a.Winner == b.Winner &&
		a.WinnerIndex == b.WinnerIndex &&
		a.Quantity == b.Quantity &&
		a.Value.Equal(b.Value)
}

func validateSupply(input *RevealValidationInput, replay *journalReplay, result *RevealValidationResult) bool {
	valid := true

	byItem := lo.GroupBy(replay.bids, func(bid core.Bid) int { return bid.Item })
	items := lo.Keys(byItem)
	slices.Sort(items)
	for _, item := range items {
		bids := byItem[item]
		if item < 0 || item >= len(input.Catalog) {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("Supply validation failed: %d bids on unknown item %d", len(bids), item))
			valid = false
			continue
		}

		sold := lo.SumBy(bids, func(bid core.Bid) uint64 { return bid.Quantity })
		if supply := input.Catalog[item].Supply; sold > supply {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("Supply validation failed: item %d sold %d of %d tokens", item, sold, supply))
			valid = false
		}
	}

	if replay.unknownBids > 0 {
		valid = false
	}
	if valid {
		result.ValidationDetails = append(result.ValidationDetails, "Supply validation passed")
	}
	return valid
}
