// Package server exposes an auction engine over TCP or vsock. Each connection
// carries one JSON request and receives one JSON response.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mdlayher/vsock"
	"go.uber.org/zap"

	"github.com/cloudx-io/tokenauction/auctionapi"
	"github.com/cloudx-io/tokenauction/config"
	"github.com/cloudx-io/tokenauction/core"
)

// maxRequestBytes caps a single request body.
const maxRequestBytes = 64 << 10

// Server dispatches wire requests to an engine through a bounded worker pool.
type Server struct {
	engine      *core.Engine
	logger      *zap.Logger
	maxWorkers  int
	readTimeout time.Duration

	workers sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReadTimeout bounds how long a connection may take to send its request.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.readTimeout = timeout
		}
	}
}

// New creates a server for engine handling at most maxWorkers connections at once.
func New(engine *core.Engine, maxWorkers int, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if maxWorkers <= 0 {
		return nil, fmt.Errorf("max workers must be positive, got %d", maxWorkers)
	}

	s := &Server{
		engine:      engine,
		logger:      zap.NewNop(),
		maxWorkers:  maxWorkers,
		readTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Listen opens the listener selected by cfg.Transport.
func Listen(cfg *config.Config) (net.Listener, error) {
	switch cfg.Transport {
	case config.TransportTCP:
		listener, err := net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		return listener, nil
	case config.TransportVsock:
		listener, err := vsock.Listen(cfg.VsockPort, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		return listener, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// Serve accepts connections until ctx is cancelled, then closes the listener
// and waits for in-flight connections to finish. Requests already accepted run
// to completion even after cancellation.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("failed to close listener", zap.Error(err))
		}
	}()
	defer s.workers.Wait()

	s.logger.Info("server listening",
		zap.Stringer("addr", listener.Addr()),
		zap.Int("max_workers", s.maxWorkers))

	semaphore := make(chan struct{}, s.maxWorkers)
	requestCtx := context.WithoutCancel(ctx)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("server stopping")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("listener closed: %w", err)
			}
			s.logger.Error("failed to accept connection", zap.Error(err))
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			s.workers.Add(1)
			go func(c net.Conn) {
				defer s.workers.Done()
				defer func() { <-semaphore }()
				s.handleConnection(requestCtx, c)
			}(conn)
		default:
			s.logger.Warn("no workers available, rejecting connection")
			if err := conn.Close(); err != nil {
				s.logger.Error("failed to close rejected connection", zap.Error(err))
			}
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in connection handler", zap.Any("panic", r))
		}
		if err := conn.Close(); err != nil {
			s.logger.Debug("failed to close connection", zap.Error(err))
		}
	}()

	start := time.Now()
	_ = conn.SetReadDeadline(start.Add(s.readTimeout))

	var req auctionapi.Request
	decoder := json.NewDecoder(io.LimitReader(conn, maxRequestBytes))
	var response *auctionapi.Response
	if err := decoder.Decode(&req); err != nil {
		s.logger.Warn("failed to decode request", zap.Error(err))
		response = errorResponse(auctionapi.TypeError, fmt.Errorf("%w: %v", auctionapi.ErrInvalidRequest, err))
	} else {
		s.logger.Debug("received request", zap.String("type", req.Type))
		response = s.dispatch(ctx, req)
	}
	response.ProcessingTime = time.Since(start).Milliseconds()

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("failed to encode response", zap.String("type", req.Type), zap.Error(err))
		return
	}
	s.logger.Debug("sent response",
		zap.String("type", response.Type),
		zap.Bool("success", response.Success),
		zap.Int64("processing_time_ms", response.ProcessingTime))
}

func errorResponse(responseType string, err error) *auctionapi.Response {
	return &auctionapi.Response{
		Type:      responseType,
		Success:   false,
		Message:   err.Error(),
		ErrorCode: auctionapi.CodeForError(err),
	}
}
