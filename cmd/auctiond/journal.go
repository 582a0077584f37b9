package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudx-io/tokenauction/core"
	"github.com/cloudx-io/tokenauction/store"
)

var (
	journalDB     string
	journalFormat string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Print the journaled events of the latest auction",
	Args:  cobra.NoArgs,
	RunE:  runJournal,
}

func runJournal(cmd *cobra.Command, args []string) error {
	path := journalDB
	if path == "" {
		path = os.Getenv("AUCTION_DB_PATH")
	}
	if path == "" {
		return errors.New("journal path is required (--db or AUCTION_DB_PATH)")
	}
	if journalFormat != "text" && journalFormat != "json" {
		return fmt.Errorf("invalid format %q: must be text or json", journalFormat)
	}

	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	auction, err := st.LatestAuction(ctx)
	if err != nil {
		return err
	}
	events, err := st.Events(ctx, auction.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if journalFormat == "json" {
		data, err := json.MarshalIndent(map[string]any{
			"auction_id": auction.ID,
			"owner":      auction.Owner,
			"catalog":    auction.Catalog,
			"created_at": auction.CreatedAt,
			"events":     events,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal journal: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Auction %s (owner %s, %d items, %d events)\n",
		auction.ID, auction.Owner.Hex(), len(auction.Catalog), len(events))
	for _, event := range events {
		switch event.Kind {
		case core.EventRegister:
			fmt.Fprintf(out, "%6d  register  %s  receipt=%s\n", event.Seq, event.Caller.Hex(), event.Receipt)
		case core.EventBid:
			fmt.Fprintf(out, "%6d  bid       %s  item=%d quantity=%d\n", event.Seq, event.Caller.Hex(), event.Item, event.Quantity)
		default:
			fmt.Fprintf(out, "%6d  %-8s  %s\n", event.Seq, event.Kind, event.Caller.Hex())
		}
	}
	return nil
}
