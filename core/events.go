package core

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// EventKind identifies the engine operation an event records.
type EventKind string

const (
	EventRegister EventKind = "register"
	EventBid      EventKind = "bid"
	EventReveal   EventKind = "reveal"
)

// Event is one accepted state transition. Rejected operations never produce events.
type Event struct {
	Seq      uint64         `json:"seq" cbor:"1,keyasint"`
	Kind     EventKind      `json:"kind" cbor:"2,keyasint"`
	Caller   common.Address `json:"caller" cbor:"3,keyasint"`
	Receipt  uuid.UUID      `json:"receipt,omitempty" cbor:"4,keyasint,omitempty"`
	Item     int            `json:"item,omitempty" cbor:"5,keyasint,omitempty"`
	Quantity uint64         `json:"quantity,omitempty" cbor:"6,keyasint,omitempty"`
}

// Journal durably records events. Append is called while the engine holds its
// write lock and before the event's effect is committed, so a failed append
// leaves the engine unchanged.
type Journal interface {
	Append(ctx context.Context, event Event) error
}
