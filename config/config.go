// Package config loads daemon settings from AUCTION_* environment variables and
// the item catalog from a YAML file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// Transport names accepted by the server and client.
const (
	TransportTCP   = "tcp"
	TransportVsock = "vsock"
)

// Config holds the daemon settings.
type Config struct {
	// Owner is the only identity allowed to reveal winners
	Owner string `env:"OWNER,required"`

	// MaxWorkers bounds concurrently handled connections
	MaxWorkers int `env:"MAX_WORKERS,required"`

	Transport   string        `env:"TRANSPORT" envDefault:"tcp"`
	ListenAddr  string        `env:"LISTEN_ADDR" envDefault:"127.0.0.1:7400"`
	VsockPort   uint32        `env:"VSOCK_PORT" envDefault:"5000"`
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`

	// CatalogPath points at a YAML catalog. Empty selects the default catalog.
	CatalogPath string `env:"CATALOG"`

	// DBPath is the SQLite journal. Ignored when InMemory is set.
	DBPath string `env:"DB_PATH" envDefault:"auction.db"`

	// InMemory runs without a journal; state does not survive a restart
	InMemory bool `env:"IN_MEMORY"`
}

// Load parses the AUCTION_* environment and validates the result.
func Load() (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "AUCTION_"})
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values that the environment parser cannot.
func (c *Config) Validate() error {
	var errs []error

	if !common.IsHexAddress(c.Owner) {
		errs = append(errs, fmt.Errorf("AUCTION_OWNER %q is not a hex address", c.Owner))
	} else if common.HexToAddress(c.Owner) == (common.Address{}) {
		errs = append(errs, errors.New("AUCTION_OWNER must not be the null address"))
	}
	if c.MaxWorkers <= 0 {
		errs = append(errs, fmt.Errorf("AUCTION_MAX_WORKERS must be positive, got %d", c.MaxWorkers))
	}
	switch c.Transport {
	case TransportTCP:
		if c.ListenAddr == "" {
			errs = append(errs, errors.New("AUCTION_LISTEN_ADDR is required for tcp transport"))
		}
	case TransportVsock:
		if c.VsockPort == 0 {
			errs = append(errs, errors.New("AUCTION_VSOCK_PORT is required for vsock transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUCTION_TRANSPORT must be %q or %q, got %q", TransportTCP, TransportVsock, c.Transport))
	}
	if !c.InMemory && c.DBPath == "" {
		errs = append(errs, errors.New("AUCTION_DB_PATH is required unless AUCTION_IN_MEMORY is set"))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("AUCTION_READ_TIMEOUT must be positive, got %s", c.ReadTimeout))
	}

	return errors.Join(errs...)
}

// OwnerAddress returns the configured owner as an address.
func (c *Config) OwnerAddress() common.Address {
	return common.HexToAddress(c.Owner)
}
