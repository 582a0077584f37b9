package validation

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cloudx-io/tokenauction/auctionapi"
	"github.com/cloudx-io/tokenauction/core"
)

// RevealValidationInput contains everything needed to check a reveal against
// the journal that produced it.
type RevealValidationInput struct {
	Owner   common.Address
	Catalog []core.ItemSpec
	Events  []core.Event // journal in seq order

	// Claimed is the result under test. When nil, Receipt is decoded instead.
	Claimed *core.RevealResult
	Receipt auctionapi.RevealReceipt
}

// RevealValidationResult contains the outcome of every reveal check
type RevealValidationResult struct {
	RoundValid   bool // the journal holds an owner reveal for the claimed round
	DigestValid  bool // bid count and digest match the journaled bids
	WinnersValid bool // every item outcome matches a recomputation
	SupplyValid  bool // every journaled bid was admissible and no item oversold

	ValidationDetails []string
}

// IsValid returns true if all reveal checks passed
func (r *RevealValidationResult) IsValid() bool {
	return r.RoundValid && r.DigestValid && r.WinnersValid && r.SupplyValid
}
