package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/cloudx-io/tokenauction/core"
)

// LoadEngine opens the latest auction in the store, or creates one for owner
// and catalog when the store is empty, then replays its journal into a fresh
// engine. The returned engine journals to the store.
//
// An existing auction keeps its recorded owner and catalog. A mismatched owner
// is an error since the journal's reveal events were authorized by the
// recorded one.
func (s *Store) LoadEngine(ctx context.Context, owner common.Address, catalog []core.ItemSpec, opts ...core.Option) (*core.Engine, error) {
	auction, err := s.LatestAuction(ctx)
	switch {
	case errors.Is(err, ErrNoAuction):
		auction = Auction{ID: uuid.New(), Owner: owner, Catalog: catalog}
		if err := s.CreateAuction(ctx, auction); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case auction.Owner != owner:
		return nil, fmt.Errorf("auction %s is owned by %s, not %s", auction.ID, auction.Owner.Hex(), owner.Hex())
	}

	events, err := s.Events(ctx, auction.ID)
	if err != nil {
		return nil, err
	}

	opts = append(opts, core.WithAuctionID(auction.ID), core.WithJournal(s.Journal(auction.ID)))
	engine, err := core.NewEngine(auction.Owner, auction.Catalog, opts...)
	if err != nil {
		return nil, err
	}
	if err := engine.Restore(ctx, events); err != nil {
		return nil, err
	}

	return engine, nil
}
