package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudx-io/tokenauction/config"
	"github.com/cloudx-io/tokenauction/core"
	"github.com/cloudx-io/tokenauction/server"
	"github.com/cloudx-io/tokenauction/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Restore the engine from its journal and serve requests",
	Long: `Loads AUCTION_* configuration, restores the engine from the journal at
AUCTION_DB_PATH (default auction.db), and serves until SIGINT or SIGTERM.
Set AUCTION_IN_MEMORY=true to run without a journal.

Required environment:
  AUCTION_OWNER          owner address, the only caller allowed to reveal
  AUCTION_MAX_WORKERS    maximum concurrently handled connections`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, closeStore, err := openEngine(ctx, cfg, catalog)
	if err != nil {
		return err
	}
	defer closeStore()

	srv, err := server.New(engine, cfg.MaxWorkers,
		server.WithLogger(logger.Named("server")),
		server.WithReadTimeout(cfg.ReadTimeout))
	if err != nil {
		return err
	}

	listener, err := server.Listen(cfg)
	if err != nil {
		return err
	}

	logger.Info("auction ready",
		zap.Stringer("auction_id", engine.AuctionID()),
		zap.Stringer("owner", engine.Owner()),
		zap.Int("items", len(engine.Items())),
		zap.Uint64("events", engine.EventCount()),
		zap.String("transport", cfg.Transport))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, listener)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("auction stopped")
	return nil
}

// openEngine restores the engine from the configured journal, or creates an
// in-memory engine when AUCTION_IN_MEMORY is set.
func openEngine(ctx context.Context, cfg *config.Config, catalog []core.ItemSpec) (*core.Engine, func(), error) {
	engineLogger := core.WithLogger(logger.Named("engine"))

	if cfg.InMemory {
		logger.Warn("running in memory, state will not survive restart")
		engine, err := core.NewEngine(cfg.OwnerAddress(), catalog, engineLogger)
		return engine, func() {}, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close journal", zap.Error(err))
		}
	}

	engine, err := st.LoadEngine(ctx, cfg.OwnerAddress(), catalog, engineLogger)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("restore engine from %s: %w", cfg.DBPath, err)
	}
	return engine, closeStore, nil
}
