package main

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cloudx-io/tokenauction/auctionapi"
	"github.com/cloudx-io/tokenauction/client"
	"github.com/cloudx-io/tokenauction/config"
)

// Exit codes
const (
	ExitSuccess      = 0 // operation accepted or verification passed
	ExitFailure      = 1 // operation rejected or verification failed
	ExitCommandError = 2 // usage, transport or input error
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitCode maps an error to an exit code. Rejections reported by the server
// exit with ExitFailure, everything else with ExitCommandError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var remote *auctionapi.RemoteError
	if errors.As(err, &remote) {
		return ExitFailure
	}
	return ExitCommandError
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "text" | "json"
	Transport string
	Addr      string
	VsockCID  uint32
	VsockPort uint32
	Retries   uint64
	Timeout   time.Duration

	logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the auctionctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "auctionctl",
		Short: "Operate a token auction server",
		Long: `auctionctl sends one request to an auction server and prints the result.

Exit codes:
  0 - Operation accepted (or verification passed)
  1 - Operation rejected by the auction (or verification failed)
  2 - Usage, transport or input error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			zapConfig := zap.NewProductionConfig()
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if opts.Verbose {
				zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zapConfig.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json)")
	flags.StringVar(&opts.Transport, "transport", config.TransportTCP, "transport (tcp|vsock)")
	flags.StringVar(&opts.Addr, "addr", "127.0.0.1:7400", "server address for tcp")
	flags.Uint32Var(&opts.VsockCID, "vsock-cid", 16, "server context ID for vsock")
	flags.Uint32Var(&opts.VsockPort, "vsock-port", 5000, "server port for vsock")
	flags.Uint64Var(&opts.Retries, "retries", 3, "dial retries")
	flags.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(
		newPingCommand(opts),
		newRegisterCommand(opts),
		newPersonCommand(opts),
		newBidCommand(opts),
		newRevealCommand(opts),
		newWinnerCommand(opts),
		newItemCommand(opts),
		newVerifyCommand(opts),
	)

	return cmd
}

func (o *RootOptions) client() (*client.Client, error) {
	c, err := client.New(client.Config{
		Transport: o.Transport,
		Addr:      o.Addr,
		VsockCID:  o.VsockCID,
		VsockPort: o.VsockPort,
		Retries:   o.Retries,
		Timeout:   o.Timeout,
	}, client.WithLogger(o.logger))
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Err: err}
	}
	return c, nil
}
