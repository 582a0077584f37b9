package auctionapi

import (
	"errors"
	"fmt"

	"github.com/cloudx-io/tokenauction/core"
)

// ErrorCode classifies a failed response so clients can tell rejections apart.
type ErrorCode string

const (
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeInsufficientSupply ErrorCode = "insufficient_supply"
	CodeNotFound           ErrorCode = "not_found"
	CodeNotRegistered      ErrorCode = "not_registered"
	CodeInvalidQuantity    ErrorCode = "invalid_quantity"
	CodeInvalidRequest     ErrorCode = "invalid_request"
	CodeInternal           ErrorCode = "internal"
)

// ErrInvalidRequest is returned for malformed or unknown requests.
var ErrInvalidRequest = errors.New("invalid request")

// ErrInternal is returned when the server failed for reasons unrelated to the request.
var ErrInternal = errors.New("internal error")

// CodeForError maps an engine error to its wire code. ErrNotRegistered is
// checked before ErrNotFound because it wraps it.
func CodeForError(err error) ErrorCode {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, core.ErrInsufficientSupply):
		return CodeInsufficientSupply
	case errors.Is(err, core.ErrNotRegistered):
		return CodeNotRegistered
	case errors.Is(err, core.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, core.ErrInvalidQuantity):
		return CodeInvalidQuantity
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// Err converts a failed response back into an error that matches the engine's
// sentinel errors with errors.Is. It returns nil for successful responses.
func (r *Response) Err() error {
	if r.Success {
		return nil
	}

	var sentinel error
	switch r.ErrorCode {
	case CodeUnauthorized:
		sentinel = core.ErrUnauthorized
	case CodeInsufficientSupply:
		sentinel = core.ErrInsufficientSupply
	case CodeNotRegistered:
		sentinel = core.ErrNotRegistered
	case CodeNotFound:
		sentinel = core.ErrNotFound
	case CodeInvalidQuantity:
		sentinel = core.ErrInvalidQuantity
	case CodeInvalidRequest:
		sentinel = ErrInvalidRequest
	default:
		sentinel = ErrInternal
	}

	return &RemoteError{Code: r.ErrorCode, Message: r.Message, sentinel: sentinel}
}

// RemoteError is a rejection reported by the server.
type RemoteError struct {
	Code     ErrorCode
	Message  string
	sentinel error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.sentinel
}
