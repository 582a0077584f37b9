package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cloudx-io/tokenauction/core"
)

// Journal appends engine events for a single auction.
type Journal struct {
	store     *Store
	auctionID uuid.UUID
}

var _ core.Journal = (*Journal)(nil)

// Journal returns the event journal for auctionID.
func (s *Store) Journal(auctionID uuid.UUID) *Journal {
	return &Journal{store: s, auctionID: auctionID}
}

// Append writes one event. A sequence number already present is rejected, so
// a journal can never hold two different histories.
func (j *Journal) Append(ctx context.Context, event core.Event) error {
	payload, err := marshalEvent(event)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO events (auction_id, seq, kind, payload)
		VALUES (?, ?, ?, ?)
	`
	_, err = j.store.db.ExecContext(ctx, query,
		j.auctionID.String(),
		int64(event.Seq),
		string(event.Kind),
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", event.Seq, err)
	}

	return nil
}

// Events returns every event of the auction in seq order.
// Returns an empty slice (not nil) when the journal is empty.
func (s *Store) Events(ctx context.Context, auctionID uuid.UUID) ([]core.Event, error) {
	query := `
		SELECT seq, payload
		FROM events
		WHERE auction_id = ?
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, auctionID.String())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]core.Event, 0)
	for rows.Next() {
		var (
			seq     int64
			payload []byte
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event, err := unmarshalEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", seq, err)
		}
		if event.Seq != uint64(seq) {
			return nil, fmt.Errorf("event %d: payload carries seq %d", seq, event.Seq)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// EventCount returns the number of journaled events for the auction.
func (s *Store) EventCount(ctx context.Context, auctionID uuid.UUID) (uint64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE auction_id = ?`, auctionID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return uint64(count), nil
}
