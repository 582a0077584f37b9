package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine owns registration, bidding and winner-resolution state for a fixed
// catalog of items. All mutations are serialized behind a single write lock.
type Engine struct {
	mu sync.RWMutex

	auctionID uuid.UUID
	owner     common.Address

	items        []Item
	participants []Participant
	firstIndex   map[common.Address]int // earliest participant per address
	bids         []Bid
	winners      []common.Address
	lastReveal   *RevealResult
	nextSeq      uint64

	journal    Journal
	newReceipt func() uuid.UUID
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records every accepted event before it is committed.
func WithJournal(journal Journal) Option {
	return func(e *Engine) { e.journal = journal }
}

// WithLogger sets the engine logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithReceiptSource overrides how participant receipts are generated.
func WithReceiptSource(source func() uuid.UUID) Option {
	return func(e *Engine) {
		if source != nil {
			e.newReceipt = source
		}
	}
}

// WithAuctionID fixes the auction identifier instead of drawing a random one.
func WithAuctionID(id uuid.UUID) Option {
	return func(e *Engine) { e.auctionID = id }
}

// NewEngine creates an engine owned by owner with the given item catalog.
func NewEngine(owner common.Address, catalog []ItemSpec, opts ...Option) (*Engine, error) {
	if owner == NullAddress {
		return nil, errors.New("owner must not be the null address")
	}
	if len(catalog) == 0 {
		return nil, errors.New("catalog must contain at least one item")
	}

	items := make([]Item, len(catalog))
	for i, spec := range catalog {
		if spec.Supply == 0 {
			return nil, fmt.Errorf("item %d (%s): supply must be positive", i, spec.Name)
		}
		if spec.TokenPrice.IsNegative() {
			return nil, fmt.Errorf("item %d (%s): invalid negative token price %s", i, spec.Name, spec.TokenPrice)
		}
		items[i] = Item{
			Index:      i,
			Name:       spec.Name,
			Supply:     spec.Supply,
			Remaining:  spec.Supply,
			TokenPrice: spec.TokenPrice,
		}
	}

	e := &Engine{
		auctionID:  uuid.New(),
		owner:      owner,
		items:      items,
		firstIndex: make(map[common.Address]int),
		winners:    make([]common.Address, len(items)),
		newReceipt: uuid.New,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// AuctionID returns the auction identifier.
func (e *Engine) AuctionID() uuid.UUID {
	return e.auctionID
}

// Owner returns the identity allowed to reveal winners.
func (e *Engine) Owner() common.Address {
	return e.owner
}

// Register appends a new participant for caller. The same address may register
// more than once and receives a distinct index each time.
func (e *Engine) Register(ctx context.Context, caller common.Address) (Participant, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	event := Event{Kind: EventRegister, Caller: caller, Receipt: e.newReceipt()}
	if err := e.record(ctx, &event); err != nil {
		return Participant{}, fmt.Errorf("register: %w", err)
	}

	participant := e.commitRegister(event)
	e.logger.Info("participant registered",
		zap.Int("index", participant.Index),
		zap.Stringer("address", participant.Address))

	return participant, nil
}

// PersonDetails returns the participant registered under index.
func (e *Engine) PersonDetails(index int) (Participant, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if index < 0 || index >= len(e.participants) {
		return Participant{}, fmt.Errorf("participant %d: %w", index, ErrNotFound)
	}
	return e.participants[index], nil
}

// ParticipantCount returns the number of registrations so far.
func (e *Engine) ParticipantCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.participants)
}

// Bid requests quantity tokens of item on behalf of caller. A bid that cannot be
// accepted leaves all state untouched.
func (e *Engine) Bid(ctx context.Context, caller common.Address, item int, quantity uint64) (Bid, error) {
	bid, _, err := e.PlaceBid(ctx, caller, item, quantity)
	return bid, err
}

// PlaceBid is Bid that also returns the item state produced by the accepted
// bid, read under the same write lock.
func (e *Engine) PlaceBid(ctx context.Context, caller common.Address, item int, quantity uint64) (Bid, Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	participant, err := e.checkBid(caller, item, quantity)
	if err != nil {
		e.logger.Debug("bid rejected",
			zap.Stringer("caller", caller),
			zap.Int("item", item),
			zap.Uint64("quantity", quantity),
			zap.Error(err))
		return Bid{}, Item{}, fmt.Errorf("bid on item %d: %w", item, err)
	}

	event := Event{Kind: EventBid, Caller: caller, Item: item, Quantity: quantity}
	if err := e.record(ctx, &event); err != nil {
		return Bid{}, Item{}, fmt.Errorf("bid on item %d: %w", item, err)
	}

	bid := e.commitBid(participant, event)
	e.logger.Info("bid accepted",
		zap.Int("seq", bid.Seq),
		zap.Int("participant", bid.Participant),
		zap.Int("item", bid.Item),
		zap.Uint64("quantity", bid.Quantity),
		zap.Uint64("remaining", e.items[item].Remaining))

	return bid, e.items[item], nil
}

// RevealWinners resolves every item that received bids and publishes its winner.
// Only the owner may call it. Each call recomputes from all accepted bids, so
// bids placed after a reveal take effect on the next one.
func (e *Engine) RevealWinners(ctx context.Context, caller common.Address) (*RevealResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkOwner(caller); err != nil {
		e.logger.Warn("reveal rejected", zap.Stringer("caller", caller))
		return nil, fmt.Errorf("reveal winners: %w", err)
	}

	event := Event{Kind: EventReveal, Caller: caller}
	if err := e.record(ctx, &event); err != nil {
		return nil, fmt.Errorf("reveal winners: %w", err)
	}

	result := e.commitReveal()
	e.logger.Info("winners revealed",
		zap.Int("round", result.Round),
		zap.Int("bids", result.BidCount),
		zap.String("digest", result.BidsDigest))

	return cloneReveal(result), nil
}

// Winner returns the published winner for item, or NullAddress when none has been revealed.
func (e *Engine) Winner(item int) (common.Address, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if item < 0 || item >= len(e.winners) {
		return NullAddress, fmt.Errorf("item %d: %w", item, ErrNotFound)
	}
	return e.winners[item], nil
}

// Item returns the current state of one catalog entry.
func (e *Engine) Item(index int) (Item, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if index < 0 || index >= len(e.items) {
		return Item{}, fmt.Errorf("item %d: %w", index, ErrNotFound)
	}
	return e.items[index], nil
}

// Items returns a snapshot of the catalog.
func (e *Engine) Items() []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Item(nil), e.items...)
}

// Bids returns the accepted bids in acceptance order.
func (e *Engine) Bids() []Bid {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Bid(nil), e.bids...)
}

// LastReveal returns the most recent reveal, if any.
func (e *Engine) LastReveal() (*RevealResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.lastReveal == nil {
		return nil, false
	}
	return cloneReveal(e.lastReveal), true
}

// EventCount returns the number of events committed so far.
func (e *Engine) EventCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nextSeq
}

// Restore replays journaled events into an engine. Events must continue the
// engine's sequence. The journal is not written during restore. Restore stops at
// the first event the engine would reject.
func (e *Engine) Restore(ctx context.Context, events []Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if event.Seq != e.nextSeq {
			return fmt.Errorf("restore: event out of sequence: got %d, want %d", event.Seq, e.nextSeq)
		}

		switch event.Kind {
		case EventRegister:
			e.commitRegister(event)
		case EventBid:
			participant, err := e.checkBid(event.Caller, event.Item, event.Quantity)
			if err != nil {
				return fmt.Errorf("restore event %d (%s): %w", event.Seq, event.Kind, err)
			}
			e.commitBid(participant, event)
		case EventReveal:
			if err := e.checkOwner(event.Caller); err != nil {
				return fmt.Errorf("restore event %d (%s): %w", event.Seq, event.Kind, err)
			}
			e.commitReveal()
		default:
			return fmt.Errorf("restore event %d: unknown kind %q", event.Seq, event.Kind)
		}
		e.nextSeq++
	}

	e.logger.Info("engine restored",
		zap.Int("events", len(events)),
		zap.Int("participants", len(e.participants)),
		zap.Int("bids", len(e.bids)))

	return nil
}

// record assigns the next sequence number and hands the event to the journal.
// On success the sequence advances; the caller must then commit the event.
func (e *Engine) record(ctx context.Context, event *Event) error {
	event.Seq = e.nextSeq
	if e.journal != nil {
		if err := e.journal.Append(ctx, *event); err != nil {
			e.logger.Error("journal append failed", zap.Uint64("seq", event.Seq), zap.Error(err))
			return fmt.Errorf("journal append: %w", err)
		}
	}
	e.nextSeq++
	return nil
}

func (e *Engine) checkOwner(caller common.Address) error {
	if caller != e.owner {
		return fmt.Errorf("%w: caller %s is not the owner", ErrUnauthorized, caller.Hex())
	}
	return nil
}

func (e *Engine) checkBid(caller common.Address, item int, quantity uint64) (int, error) {
	if item < 0 || item >= len(e.items) {
		return 0, fmt.Errorf("item %d: %w", item, ErrNotFound)
	}
	if quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	// The null address may register but never bids, so no winner is ever null.
	if caller == NullAddress {
		return 0, fmt.Errorf("null address: %w", ErrNotRegistered)
	}
	participant, ok := e.firstIndex[caller]
	if !ok {
		return 0, fmt.Errorf("%s: %w", caller.Hex(), ErrNotRegistered)
	}
	if remaining := e.items[item].Remaining; quantity > remaining {
		return 0, fmt.Errorf("%w: requested %d, remaining %d", ErrInsufficientSupply, quantity, remaining)
	}
	return participant, nil
}

func (e *Engine) commitRegister(event Event) Participant {
	participant := Participant{
		Index:   len(e.participants),
		Receipt: event.Receipt,
		Address: event.Caller,
	}
	e.participants = append(e.participants, participant)
	if _, ok := e.firstIndex[event.Caller]; !ok {
		e.firstIndex[event.Caller] = participant.Index
	}
	return participant
}

func (e *Engine) commitBid(participant int, event Event) Bid {
	bid := Bid{
		Seq:         len(e.bids),
		Participant: participant,
		Address:     event.Caller,
		Item:        event.Item,
		Quantity:    event.Quantity,
	}
	e.items[event.Item].Remaining -= event.Quantity
	e.bids = append(e.bids, bid)
	return bid
}

func (e *Engine) commitReveal() *RevealResult {
	outcomes := SelectWinners(e.items, e.bids)
	for _, outcome := range outcomes {
		if outcome.HasWinner {
			e.winners[outcome.Item] = outcome.Winner
		}
	}

	round := 1
	if e.lastReveal != nil {
		round = e.lastReveal.Round + 1
	}

	e.lastReveal = &RevealResult{
		Round:      round,
		BidCount:   len(e.bids),
		BidsDigest: ComputeBidsDigest(e.bids),
		Outcomes:   outcomes,
	}
	return e.lastReveal
}

func cloneReveal(result *RevealResult) *RevealResult {
	clone := *result
	clone.Outcomes = append([]ItemOutcome(nil), result.Outcomes...)
	return &clone
}
