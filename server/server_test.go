package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/tokenauction/auctionapi"
	"github.com/cloudx-io/tokenauction/core"
)

var (
	ownerAddr = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	bidderA   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bidderB   = common.HexToAddress("0x00000000000000000000000000000000000000a2")
)

// startServer serves engine on a loopback listener until the test ends.
func startServer(t *testing.T, engine *core.Engine, maxWorkers int, opts ...Option) string {
	t.Helper()

	srv, err := New(engine, maxWorkers, opts...)
	assert.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			check.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return listener.Addr().String()
}

func newEngine(t *testing.T) *core.Engine {
	t.Helper()
	engine, err := core.NewEngine(ownerAddr, core.DefaultCatalog())
	assert.NoError(t, err)
	return engine
}

func roundTrip(t *testing.T, addr string, req any) auctionapi.Response {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	assert.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	assert.NoError(t, json.NewEncoder(conn).Encode(req))

	var resp auctionapi.Response
	assert.NoError(t, json.NewDecoder(conn).Decode(&resp))
	return resp
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, 1)
	check.Error(t, err)

	_, err = New(newEngine(t), 0)
	check.Error(t, err)
}

func TestServer_Ping(t *testing.T) {
	addr := startServer(t, newEngine(t), 2)

	resp := roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypePing})
	check.True(t, resp.Success)
	check.Equal(t, "ping_response", resp.Type)
	check.NotEqual(t, "", resp.Message)
}

func TestServer_FullAuction(t *testing.T) {
	engine := newEngine(t)
	addr := startServer(t, engine, 4)

	resp := roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeRegister, Caller: bidderA})
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Participant)
	check.Equal(t, 0, resp.Participant.Index)
	check.Equal(t, bidderA, resp.Participant.Address)

	resp = roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeRegister, Caller: bidderB})
	assert.True(t, resp.Success)
	check.Equal(t, 1, resp.Participant.Index)

	resp = roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypePersonDetails, Index: 1})
	assert.True(t, resp.Success)
	check.Equal(t, bidderB, resp.Participant.Address)

	resp = roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeBid, Caller: bidderA, Item: 1, Quantity: 2})
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Bid)
	check.Equal(t, 0, resp.Bid.Participant)
	assert.NotNil(t, resp.ItemState)
	check.Equal(t, uint64(3), resp.ItemState.Remaining)

	resp = roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeBid, Caller: bidderB, Item: 1, Quantity: 3})
	assert.True(t, resp.Success)

	resp = roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeWinner, Item: 1})
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Winner)
	check.Equal(t, core.NullAddress, *resp.Winner)

	resp = roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeRevealWinners, Caller: ownerAddr})
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Reveal)
	check.Equal(t, 1, resp.Reveal.Round)
	check.Equal(t, 2, resp.Reveal.BidCount)
	check.NotEqual(t, auctionapi.RevealReceipt(""), resp.Reveal.Receipt)

	decoded, err := resp.Reveal.Receipt.Decode()
	assert.NoError(t, err)
	check.Equal(t, resp.Reveal.BidsDigest, decoded.BidsDigest)

	resp = roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeWinner, Item: 1})
	assert.True(t, resp.Success)
	check.Equal(t, bidderB, *resp.Winner)

	resp = roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeItem, Item: 1})
	assert.True(t, resp.Success)
	check.Equal(t, uint64(0), resp.ItemState.Remaining)

	winner, err := engine.Winner(1)
	assert.NoError(t, err)
	check.Equal(t, bidderB, winner)
}

func TestServer_Rejections(t *testing.T) {
	engine := newEngine(t)
	addr := startServer(t, engine, 2)

	resp := roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeRegister, Caller: bidderA})
	assert.True(t, resp.Success)

	tests := []struct {
		name     string
		req      auctionapi.Request
		wantCode auctionapi.ErrorCode
		wantErr  error
	}{
		{
			name:     "reveal by non-owner",
			req:      auctionapi.Request{Type: auctionapi.TypeRevealWinners, Caller: bidderA},
			wantCode: auctionapi.CodeUnauthorized,
			wantErr:  core.ErrUnauthorized,
		},
		{
			name:     "bid beyond supply",
			req:      auctionapi.Request{Type: auctionapi.TypeBid, Caller: bidderA, Item: 0, Quantity: 6},
			wantCode: auctionapi.CodeInsufficientSupply,
			wantErr:  core.ErrInsufficientSupply,
		},
		{
			name:     "bid on unknown item",
			req:      auctionapi.Request{Type: auctionapi.TypeBid, Caller: bidderA, Item: 9, Quantity: 1},
			wantCode: auctionapi.CodeNotFound,
			wantErr:  core.ErrNotFound,
		},
		{
			name:     "bid by unregistered caller",
			req:      auctionapi.Request{Type: auctionapi.TypeBid, Caller: bidderB, Item: 0, Quantity: 1},
			wantCode: auctionapi.CodeNotRegistered,
			wantErr:  core.ErrNotFound,
		},
		{
			name:     "zero quantity",
			req:      auctionapi.Request{Type: auctionapi.TypeBid, Caller: bidderA, Item: 0, Quantity: 0},
			wantCode: auctionapi.CodeInvalidQuantity,
			wantErr:  core.ErrInvalidQuantity,
		},
		{
			name:     "unknown participant",
			req:      auctionapi.Request{Type: auctionapi.TypePersonDetails, Index: 5},
			wantCode: auctionapi.CodeNotFound,
			wantErr:  core.ErrNotFound,
		},
		{
			name:     "register without caller",
			req:      auctionapi.Request{Type: auctionapi.TypeRegister},
			wantCode: auctionapi.CodeInvalidRequest,
			wantErr:  auctionapi.ErrInvalidRequest,
		},
		{
			name:     "unknown type",
			req:      auctionapi.Request{Type: "auction_request"},
			wantCode: auctionapi.CodeInvalidRequest,
			wantErr:  auctionapi.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := roundTrip(t, addr, tt.req)
			check.False(t, resp.Success)
			check.Equal(t, tt.wantCode, resp.ErrorCode)
			check.True(t, errors.Is(resp.Err(), tt.wantErr))
		})
	}

	// None of the rejections changed state
	item, err := engine.Item(0)
	assert.NoError(t, err)
	check.Equal(t, uint64(5), item.Remaining)
	check.Equal(t, 1, engine.ParticipantCount())
	check.Equal(t, 0, len(engine.Bids()))
}

func TestServer_MalformedRequest(t *testing.T) {
	addr := startServer(t, newEngine(t), 2)

	conn, err := net.Dial("tcp", addr)
	assert.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = conn.Write([]byte("{not json}\n"))
	assert.NoError(t, err)

	var resp auctionapi.Response
	assert.NoError(t, json.NewDecoder(conn).Decode(&resp))
	check.False(t, resp.Success)
	check.Equal(t, auctionapi.TypeError, resp.Type)
	check.Equal(t, auctionapi.CodeInvalidRequest, resp.ErrorCode)
}

func TestServer_RejectsWhenPoolFull(t *testing.T) {
	addr := startServer(t, newEngine(t), 1, WithReadTimeout(time.Second))

	// Hold the only worker with a connection that never sends a request
	idle, err := net.Dial("tcp", addr)
	assert.NoError(t, err)
	defer idle.Close()
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	assert.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	_ = json.NewEncoder(conn).Encode(auctionapi.Request{Type: auctionapi.TypePing})

	var resp auctionapi.Response
	check.Error(t, json.NewDecoder(conn).Decode(&resp))

	// Once the idle connection is gone the worker becomes available again
	idle.Close()
	assert.True(t, eventually(2*time.Second, func() bool {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		defer c.Close()
		_ = c.SetDeadline(time.Now().Add(time.Second))
		if err := json.NewEncoder(c).Encode(auctionapi.Request{Type: auctionapi.TypePing}); err != nil {
			return false
		}
		var r auctionapi.Response
		return json.NewDecoder(c).Decode(&r) == nil && r.Success
	}))
}

func TestServer_ConcurrentBidsRespectSupply(t *testing.T) {
	engine := newEngine(t)
	addr := startServer(t, engine, 8)

	bidders := make([]common.Address, 10)
	for i := range bidders {
		bidders[i][19] = byte(0x10 + i)
		resp := roundTrip(t, addr, auctionapi.Request{Type: auctionapi.TypeRegister, Caller: bidders[i]})
		assert.True(t, resp.Success)
	}

	results := make(chan auctionapi.Response, len(bidders))
	for _, bidder := range bidders {
		go func(caller common.Address) {
			results <- roundTripNoFail(addr, auctionapi.Request{Type: auctionapi.TypeBid, Caller: caller, Item: 2, Quantity: 1})
		}(bidder)
	}

	accepted := 0
	remaining := make(map[uint64]bool)
	for range bidders {
		resp := <-results
		if resp.Success {
			accepted++
			assert.NotNil(t, resp.ItemState)
			remaining[resp.ItemState.Remaining] = true
		}
	}
	check.Equal(t, 5, accepted)
	// Each accepted bid reports the supply it left behind
	check.Equal(t, map[uint64]bool{0: true, 1: true, 2: true, 3: true, 4: true}, remaining)

	item, err := engine.Item(2)
	assert.NoError(t, err)
	check.Equal(t, uint64(0), item.Remaining)
}

// roundTripNoFail retries a request until it is answered; used from goroutines
// where the worker pool may briefly reject connections.
func roundTripNoFail(addr string, req auctionapi.Request) auctionapi.Response {
	var resp auctionapi.Response
	eventually(5*time.Second, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(time.Second))
		if err := json.NewEncoder(conn).Encode(req); err != nil {
			return false
		}
		return json.NewDecoder(conn).Decode(&resp) == nil
	})
	return resp
}

func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}
