package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/tokenauction/core"
	"github.com/cloudx-io/tokenauction/server"
	"github.com/cloudx-io/tokenauction/store"
)

const (
	ownerHex   = "0x00000000000000000000000000000000000000A0"
	bidderAHex = "0x00000000000000000000000000000000000000A1"
	bidderBHex = "0x00000000000000000000000000000000000000A2"
)

// startAuction serves a journaled engine and returns its address and journal path.
func startAuction(t *testing.T) (string, string) {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "auction.db")
	st, err := store.Open(dbPath)
	assert.NoError(t, err)

	engine, err := st.LoadEngine(ctx, common.HexToAddress(ownerHex), core.DefaultCatalog())
	assert.NoError(t, err)

	srv, err := server.New(engine, 4)
	assert.NoError(t, err)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)

	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(serveCtx, listener)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		st.Close()
	})

	return listener.Addr().String(), dbPath
}

func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), GetExitCode(err)
}

func TestCLI_AuctionFlowAndVerify(t *testing.T) {
	addr, dbPath := startAuction(t)

	out, code := run(t, "--addr", addr, "register", "--caller", bidderAHex)
	assert.Equal(t, ExitSuccess, code)
	check.True(t, bytes.Contains([]byte(out), []byte("Participant 0")))

	_, code = run(t, "--addr", addr, "register", "--caller", bidderBHex)
	assert.Equal(t, ExitSuccess, code)

	_, code = run(t, "--addr", addr, "bid", "--caller", bidderAHex, "--item", "0", "--quantity", "2")
	assert.Equal(t, ExitSuccess, code)

	_, code = run(t, "--addr", addr, "bid", "--caller", bidderBHex, "--item", "0", "--quantity", "4")
	check.Equal(t, ExitFailure, code)

	out, code = run(t, "--addr", addr, "--format", "json", "person", "1")
	assert.Equal(t, ExitSuccess, code)
	var participant struct {
		Index   int            `json:"index"`
		Address common.Address `json:"address"`
	}
	assert.NoError(t, json.Unmarshal([]byte(out), &participant))
	check.Equal(t, 1, participant.Index)
	check.Equal(t, common.HexToAddress(bidderBHex), participant.Address)

	_, code = run(t, "--addr", addr, "reveal", "--caller", bidderAHex)
	check.Equal(t, ExitFailure, code)

	out, code = run(t, "--addr", addr, "reveal", "--caller", ownerHex)
	assert.Equal(t, ExitSuccess, code)
	check.True(t, bytes.Contains([]byte(out), []byte("Reveal round 1")))

	out, code = run(t, "--addr", addr, "winner", "0")
	assert.Equal(t, ExitSuccess, code)
	check.True(t, bytes.Contains([]byte(out), []byte(common.HexToAddress(bidderAHex).Hex())))

	out, code = run(t, "--format", "json", "verify", "--db", dbPath)
	assert.Equal(t, ExitSuccess, code)
	var verdict struct {
		Valid bool `json:"valid"`
	}
	assert.NoError(t, json.Unmarshal([]byte(out), &verdict))
	check.True(t, verdict.Valid)
}

func TestCLI_UsageErrors(t *testing.T) {
	_, code := run(t, "--format", "yaml", "ping")
	check.Equal(t, ExitCommandError, code)

	_, code = run(t, "register", "--caller", "not-an-address")
	check.Equal(t, ExitCommandError, code)

	_, code = run(t, "bid", "--caller", bidderAHex)
	check.Equal(t, ExitCommandError, code)

	_, code = run(t, "winner", "abc")
	check.Equal(t, ExitCommandError, code)

	_, code = run(t, "verify", "--db", filepath.Join(t.TempDir(), "missing.db"))
	check.Equal(t, ExitCommandError, code)
}

func TestCLI_TransportError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	addr := listener.Addr().String()
	assert.NoError(t, listener.Close())

	_, code := run(t, "--addr", addr, "--retries", "0", "ping")
	check.Equal(t, ExitCommandError, code)
}

func TestCLI_VerifyWithoutReveal(t *testing.T) {
	_, dbPath := startAuction(t)

	_, code := run(t, "verify", "--db", dbPath)
	check.Equal(t, ExitCommandError, code)
}
