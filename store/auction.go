package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/cloudx-io/tokenauction/core"
)

// Auction is the immutable setup of one engine: who owns it and what it sells.
type Auction struct {
	ID        uuid.UUID
	Owner     common.Address
	Catalog   []core.ItemSpec
	CreatedAt time.Time
}

// CreateAuction records a new auction. Creating the same ID twice is an error.
func (s *Store) CreateAuction(ctx context.Context, auction Auction) error {
	catalog, err := marshalCatalog(auction.Catalog)
	if err != nil {
		return err
	}

	createdAt := auction.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO auctions (id, owner, catalog, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		auction.ID.String(),
		auction.Owner.Hex(),
		catalog,
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert auction %s: %w", auction.ID, err)
	}

	return nil
}

// LatestAuction returns the most recently created auction.
// Returns ErrNoAuction when none exists.
func (s *Store) LatestAuction(ctx context.Context) (Auction, error) {
	query := `
		SELECT id, owner, catalog, created_at
		FROM auctions
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`
	return s.scanAuction(s.db.QueryRowContext(ctx, query))
}

// GetAuction returns the auction with the given ID.
// Returns ErrNoAuction when it does not exist.
func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (Auction, error) {
	query := `
		SELECT id, owner, catalog, created_at
		FROM auctions
		WHERE id = ?
	`
	return s.scanAuction(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *Store) scanAuction(row *sql.Row) (Auction, error) {
	var (
		id        string
		owner     string
		catalog   []byte
		createdAt int64
	)
	if err := row.Scan(&id, &owner, &catalog, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Auction{}, ErrNoAuction
		}
		return Auction{}, fmt.Errorf("scan auction: %w", err)
	}

	auctionID, err := uuid.Parse(id)
	if err != nil {
		return Auction{}, fmt.Errorf("parse auction id %q: %w", id, err)
	}
	if !common.IsHexAddress(owner) {
		return Auction{}, fmt.Errorf("auction %s: invalid owner %q", id, owner)
	}
	items, err := unmarshalCatalog(catalog)
	if err != nil {
		return Auction{}, fmt.Errorf("auction %s: %w", id, err)
	}

	return Auction{
		ID:        auctionID,
		Owner:     common.HexToAddress(owner),
		Catalog:   items,
		CreatedAt: time.Unix(createdAt, 0),
	}, nil
}
