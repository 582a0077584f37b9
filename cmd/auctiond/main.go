// Command auctiond serves a token auction engine over TCP or vsock.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "auctiond",
	Short: "Sealed-bid token auction daemon",
	Long: `auctiond hosts a single auction engine. Participants register, bid on
catalog items with finite token supply, and the owner reveals one winner per item.

Every accepted operation is journaled to SQLite before it takes effect, and the
engine is rebuilt from the journal on start.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	journalCmd.Flags().StringVar(&journalDB, "db", "", "path to SQLite journal (default: AUCTION_DB_PATH)")
	journalCmd.Flags().StringVar(&journalFormat, "format", "text", "output format (text|json)")

	rootCmd.AddCommand(serveCmd, journalCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
