package server

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/cloudx-io/tokenauction/auctionapi"
	"github.com/cloudx-io/tokenauction/core"
)

func (s *Server) dispatch(ctx context.Context, req auctionapi.Request) *auctionapi.Response {
	switch req.Type {
	case auctionapi.TypePing:
		return &auctionapi.Response{
			Type:    auctionapi.ResponseType(req.Type),
			Success: true,
			Message: "auction server is healthy",
		}
	case auctionapi.TypeRegister:
		return s.handleRegister(ctx, req)
	case auctionapi.TypePersonDetails:
		return s.handlePersonDetails(req)
	case auctionapi.TypeBid:
		return s.handleBid(ctx, req)
	case auctionapi.TypeRevealWinners:
		return s.handleRevealWinners(ctx, req)
	case auctionapi.TypeWinner:
		return s.handleWinner(req)
	case auctionapi.TypeItem:
		return s.handleItem(req)
	default:
		return errorResponse(auctionapi.TypeError,
			fmt.Errorf("%w: unknown request type %q", auctionapi.ErrInvalidRequest, req.Type))
	}
}

// requireCaller rejects requests whose caller field is missing; on the wire a
// missing address decodes to the null address.
func requireCaller(req auctionapi.Request) error {
	if req.Caller == core.NullAddress {
		return fmt.Errorf("%w: caller is required", auctionapi.ErrInvalidRequest)
	}
	return nil
}

func (s *Server) handleRegister(ctx context.Context, req auctionapi.Request) *auctionapi.Response {
	respType := auctionapi.ResponseType(req.Type)
	if err := requireCaller(req); err != nil {
		return errorResponse(respType, err)
	}

	participant, err := s.engine.Register(ctx, req.Caller)
	if err != nil {
		s.logger.Error("register failed", zap.Stringer("caller", req.Caller), zap.Error(err))
		return errorResponse(respType, err)
	}

	return &auctionapi.Response{
		Type:        respType,
		Success:     true,
		Message:     fmt.Sprintf("registered as participant %d", participant.Index),
		Participant: auctionapi.NewParticipantView(participant),
	}
}

func (s *Server) handlePersonDetails(req auctionapi.Request) *auctionapi.Response {
	respType := auctionapi.ResponseType(req.Type)

	participant, err := s.engine.PersonDetails(req.Index)
	if err != nil {
		return errorResponse(respType, err)
	}

	return &auctionapi.Response{
		Type:        respType,
		Success:     true,
		Participant: auctionapi.NewParticipantView(participant),
	}
}

func (s *Server) handleBid(ctx context.Context, req auctionapi.Request) *auctionapi.Response {
	respType := auctionapi.ResponseType(req.Type)
	if err := requireCaller(req); err != nil {
		return errorResponse(respType, err)
	}

	bid, item, err := s.engine.PlaceBid(ctx, req.Caller, req.Item, req.Quantity)
	if err != nil {
		return errorResponse(respType, err)
	}

	return &auctionapi.Response{
		Type:      respType,
		Success:   true,
		Message:   fmt.Sprintf("bid %d accepted", bid.Seq),
		Bid:       auctionapi.NewBidView(bid),
		ItemState: auctionapi.NewItemView(item),
	}
}

func (s *Server) handleRevealWinners(ctx context.Context, req auctionapi.Request) *auctionapi.Response {
	respType := auctionapi.ResponseType(req.Type)

	result, err := s.engine.RevealWinners(ctx, req.Caller)
	if err != nil {
		return errorResponse(respType, err)
	}

	view, err := auctionapi.NewRevealView(result)
	if err != nil {
		// The reveal is committed; report it without the compact receipt
		s.logger.Error("failed to encode reveal receipt", zap.Int("round", result.Round), zap.Error(err))
	}

	return &auctionapi.Response{
		Type:    respType,
		Success: true,
		Message: fmt.Sprintf("reveal round %d covered %d bids", result.Round, result.BidCount),
		Reveal:  view,
	}
}

func (s *Server) handleWinner(req auctionapi.Request) *auctionapi.Response {
	respType := auctionapi.ResponseType(req.Type)

	winner, err := s.engine.Winner(req.Item)
	if err != nil {
		return errorResponse(respType, err)
	}

	return &auctionapi.Response{
		Type:    respType,
		Success: true,
		Winner:  addressPtr(winner),
	}
}

func (s *Server) handleItem(req auctionapi.Request) *auctionapi.Response {
	respType := auctionapi.ResponseType(req.Type)

	item, err := s.engine.Item(req.Item)
	if err != nil {
		return errorResponse(respType, err)
	}

	return &auctionapi.Response{
		Type:      respType,
		Success:   true,
		ItemState: auctionapi.NewItemView(item),
	}
}

func addressPtr(addr common.Address) *common.Address {
	return &addr
}
