package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudx-io/tokenauction/core"
	"github.com/cloudx-io/tokenauction/store"
)

// ErrNoReveal is returned when a journal holds no reveal to validate.
var ErrNoReveal = errors.New("journal contains no reveal")

// LoadInput reads the owner, catalog and journal of the latest auction in st.
// The caller sets Claimed or Receipt before validating.
func LoadInput(ctx context.Context, st *store.Store) (*RevealValidationInput, error) {
	auction, err := st.LatestAuction(ctx)
	if err != nil {
		return nil, fmt.Errorf("load auction: %w", err)
	}

	events, err := st.Events(ctx, auction.ID)
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}

	return &RevealValidationInput{
		Owner:   auction.Owner,
		Catalog: auction.Catalog,
		Events:  events,
	}, nil
}

// ReplayLatestReveal rebuilds an engine from the input's journal and returns
// the most recent reveal it produced. Replay applies the engine's own
// admission checks, so a journal the engine would reject fails here.
func ReplayLatestReveal(ctx context.Context, input *RevealValidationInput) (*core.RevealResult, error) {
	engine, err := core.NewEngine(input.Owner, input.Catalog)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	if err := engine.Restore(ctx, input.Events); err != nil {
		return nil, fmt.Errorf("replay journal: %w", err)
	}

	result, ok := engine.LastReveal()
	if !ok {
		return nil, ErrNoReveal
	}
	return result, nil
}
