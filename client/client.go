// Package client calls an auction server. Every call opens one connection,
// sends one request and reads one response. Rejections come back as errors
// that match the core sentinel errors with errors.Is.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mdlayher/vsock"
	"go.uber.org/zap"

	"github.com/cloudx-io/tokenauction/auctionapi"
	"github.com/cloudx-io/tokenauction/config"
	"github.com/cloudx-io/tokenauction/core"
)

// Config selects the server endpoint and retry policy.
type Config struct {
	Transport string // config.TransportTCP or config.TransportVsock
	Addr      string // host:port for tcp
	VsockCID  uint32
	VsockPort uint32

	// Retries is the number of additional dial attempts after the first
	Retries uint64

	// Timeout bounds a single request round trip
	Timeout time.Duration
}

// Client issues auction requests.
type Client struct {
	cfg    Config
	logger *zap.Logger
	dial   func(ctx context.Context) (net.Conn, error)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{cfg: cfg, logger: zap.NewNop()}
	switch cfg.Transport {
	case config.TransportTCP, "":
		if cfg.Addr == "" {
			return nil, errors.New("tcp address is required")
		}
		c.cfg.Transport = config.TransportTCP
		c.dial = c.dialTCP
	case config.TransportVsock:
		if cfg.VsockPort == 0 {
			return nil, errors.New("vsock port is required")
		}
		c.dial = c.dialVsock
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) dialTCP(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", c.cfg.Addr)
}

func (c *Client) dialVsock(_ context.Context) (net.Conn, error) {
	return vsock.Dial(c.cfg.VsockCID, c.cfg.VsockPort, nil)
}

// connect dials with exponential backoff. Only dialing is retried; a request
// that reached the server is never resent.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.Retries),
		ctx,
	)

	var conn net.Conn
	operation := func() error {
		var err error
		conn, err = c.dial(ctx)
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("dial failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.Transport, err)
	}
	return conn, nil
}

// Do sends req and returns the decoded response. Transport failures are
// returned as errors; rejected operations are returned as a response with
// Success unset.
func (c *Client) Do(ctx context.Context, req auctionapi.Request) (*auctionapi.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send %s request: %w", req.Type, err)
	}

	var resp auctionapi.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.Type, err)
	}

	c.logger.Debug("request completed",
		zap.String("type", req.Type),
		zap.Bool("success", resp.Success),
		zap.Int64("processing_time_ms", resp.ProcessingTime))

	return &resp, nil
}

// call runs Do and folds a rejection into the returned error.
func (c *Client) call(ctx context.Context, req auctionapi.Request) (*auctionapi.Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", req.Type, err)
	}
	return resp, nil
}

// Ping checks that the server is answering.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, auctionapi.Request{Type: auctionapi.TypePing})
	return err
}

// Register registers caller as a new participant.
func (c *Client) Register(ctx context.Context, caller common.Address) (core.Participant, error) {
	resp, err := c.call(ctx, auctionapi.Request{Type: auctionapi.TypeRegister, Caller: caller})
	if err != nil {
		return core.Participant{}, err
	}
	if resp.Participant == nil {
		return core.Participant{}, missingField(auctionapi.TypeRegister, "participant")
	}
	return resp.Participant.ToParticipant(), nil
}

// PersonDetails returns the participant registered under index.
func (c *Client) PersonDetails(ctx context.Context, index int) (core.Participant, error) {
	resp, err := c.call(ctx, auctionapi.Request{Type: auctionapi.TypePersonDetails, Index: index})
	if err != nil {
		return core.Participant{}, err
	}
	if resp.Participant == nil {
		return core.Participant{}, missingField(auctionapi.TypePersonDetails, "participant")
	}
	return resp.Participant.ToParticipant(), nil
}

// Bid places a bid for caller and returns the accepted bid with the item's new state.
func (c *Client) Bid(ctx context.Context, caller common.Address, item int, quantity uint64) (core.Bid, core.Item, error) {
	resp, err := c.call(ctx, auctionapi.Request{
		Type:     auctionapi.TypeBid,
		Caller:   caller,
		Item:     item,
		Quantity: quantity,
	})
	if err != nil {
		return core.Bid{}, core.Item{}, err
	}
	if resp.Bid == nil {
		return core.Bid{}, core.Item{}, missingField(auctionapi.TypeBid, "bid")
	}

	var state core.Item
	if resp.ItemState != nil {
		state = resp.ItemState.ToItem()
	}
	return resp.Bid.ToBid(), state, nil
}

// RevealWinners asks the server to resolve winners on behalf of caller.
func (c *Client) RevealWinners(ctx context.Context, caller common.Address) (*auctionapi.RevealView, error) {
	resp, err := c.call(ctx, auctionapi.Request{Type: auctionapi.TypeRevealWinners, Caller: caller})
	if err != nil {
		return nil, err
	}
	if resp.Reveal == nil {
		return nil, missingField(auctionapi.TypeRevealWinners, "reveal")
	}
	return resp.Reveal, nil
}

// Winner returns the published winner of item.
func (c *Client) Winner(ctx context.Context, item int) (common.Address, error) {
	resp, err := c.call(ctx, auctionapi.Request{Type: auctionapi.TypeWinner, Item: item})
	if err != nil {
		return core.NullAddress, err
	}
	if resp.Winner == nil {
		return core.NullAddress, missingField(auctionapi.TypeWinner, "winner")
	}
	return *resp.Winner, nil
}

// Item returns the live state of item.
func (c *Client) Item(ctx context.Context, item int) (core.Item, error) {
	resp, err := c.call(ctx, auctionapi.Request{Type: auctionapi.TypeItem, Item: item})
	if err != nil {
		return core.Item{}, err
	}
	if resp.ItemState == nil {
		return core.Item{}, missingField(auctionapi.TypeItem, "item_state")
	}
	return resp.ItemState.ToItem(), nil
}

func missingField(requestType, field string) error {
	return fmt.Errorf("%s response missing %s: %w", requestType, field, auctionapi.ErrInternal)
}
