package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/cloudx-io/tokenauction/auctionapi"
	"github.com/cloudx-io/tokenauction/core"
)

func parseAddress(flag, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return core.NullAddress, &ExitError{Code: ExitCommandError, Err: fmt.Errorf("--%s %q is not a hex address", flag, value)}
	}
	return common.HexToAddress(value), nil
}

func parseIndex(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ExitError{Code: ExitCommandError, Err: fmt.Errorf("invalid %s %q: %w", name, value, err)}
	}
	return n, nil
}

func newPingCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is answering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.Ping(cmd.Context()); err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).print(map[string]any{"healthy": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Server is healthy")
			})
		},
	}
}

func newRegisterCommand(opts *RootOptions) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register the caller as a new participant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("caller", caller)
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			participant, err := c.Register(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).print(auctionapi.NewParticipantView(participant), func(w io.Writer) {
				printParticipant(w, participant)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "caller address (required)")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}

func newPersonCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "person <index>",
		Short: "Show a registered participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex("participant index", args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			participant, err := c.PersonDetails(cmd.Context(), index)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).print(auctionapi.NewParticipantView(participant), func(w io.Writer) {
				printParticipant(w, participant)
			})
		},
	}
}

func newBidCommand(opts *RootOptions) *cobra.Command {
	var (
		caller   string
		item     int
		quantity uint64
	)

	cmd := &cobra.Command{
		Use:   "bid",
		Short: "Bid for a quantity of an item's tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("caller", caller)
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			bid, state, err := c.Bid(cmd.Context(), addr, item, quantity)
			if err != nil {
				return err
			}
			data := map[string]any{
				"bid":        auctionapi.NewBidView(bid),
				"item_state": auctionapi.NewItemView(state),
			}
			return opts.printer(cmd.OutOrStdout()).print(data, func(w io.Writer) {
				fmt.Fprintf(w, "Bid %d accepted\n", bid.Seq)
				fmt.Fprintf(w, "  Participant: %d (%s)\n", bid.Participant, bid.Address.Hex())
				fmt.Fprintf(w, "  Item:        %d\n", bid.Item)
				fmt.Fprintf(w, "  Quantity:    %d\n", bid.Quantity)
				fmt.Fprintf(w, "  Remaining:   %d of %d\n", state.Remaining, state.Supply)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "caller address (required)")
	cmd.Flags().IntVar(&item, "item", 0, "item index")
	cmd.Flags().Uint64Var(&quantity, "quantity", 0, "number of tokens (required)")
	_ = cmd.MarkFlagRequired("caller")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func newRevealCommand(opts *RootOptions) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "reveal",
		Short: "Resolve and publish the winner of every item (owner only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("caller", caller)
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			reveal, err := c.RevealWinners(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).print(reveal, func(w io.Writer) {
				printReveal(w, reveal)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "caller address (required)")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}

func newWinnerCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "winner <item>",
		Short: "Show the published winner of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := parseIndex("item", args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			winner, err := c.Winner(cmd.Context(), item)
			if err != nil {
				return err
			}
			data := map[string]any{"item": item, "winner": winner}
			return opts.printer(cmd.OutOrStdout()).print(data, func(w io.Writer) {
				if winner == core.NullAddress {
					fmt.Fprintf(w, "Item %d: no winner\n", item)
					return
				}
				fmt.Fprintf(w, "Item %d: %s\n", item, winner.Hex())
			})
		},
	}
}

func newItemCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "item <item>",
		Short: "Show an item's supply and price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex("item", args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			item, err := c.Item(cmd.Context(), index)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).print(auctionapi.NewItemView(item), func(w io.Writer) {
				fmt.Fprintf(w, "Item %d (%s)\n", item.Index, item.Name)
				fmt.Fprintf(w, "  Supply:      %d\n", item.Supply)
				fmt.Fprintf(w, "  Remaining:   %d\n", item.Remaining)
				fmt.Fprintf(w, "  Token price: %s\n", item.TokenPrice)
			})
		},
	}
}

func printParticipant(w io.Writer, p core.Participant) {
	fmt.Fprintf(w, "Participant %d\n", p.Index)
	fmt.Fprintf(w, "  Receipt: %s\n", p.Receipt)
	fmt.Fprintf(w, "  Address: %s\n", p.Address.Hex())
}

func printReveal(w io.Writer, reveal *auctionapi.RevealView) {
	fmt.Fprintf(w, "Reveal round %d (%d bids)\n", reveal.Round, reveal.BidCount)
	fmt.Fprintf(w, "  Bids digest: %s\n", reveal.BidsDigest)
	for _, o := range reveal.Outcomes {
		if !o.HasWinner {
			fmt.Fprintf(w, "  Item %d: no bids\n", o.Item)
			continue
		}
		fmt.Fprintf(w, "  Item %d: %s (participant %d, %d tokens, value %s)\n",
			o.Item, o.Winner.Hex(), o.WinnerIndex, o.Quantity, o.Value)
	}
	if reveal.Receipt != "" {
		fmt.Fprintf(w, "  Receipt: %s\n", reveal.Receipt)
	}
}
