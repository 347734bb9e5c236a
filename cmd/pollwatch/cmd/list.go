package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	cmdcommon "boscoin.io/pollwatch/cmd/pollwatch/common"
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/refresh"
)

var flagAt string

var (
	listCmd *cobra.Command
	showCmd *cobra.Command
)

func init() {
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Read all polls once and print them",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, args []string) {
			if flagName, err := parseFlags(); err != nil {
				cmdcommon.PrintFlagsError(c, flagName, err)
			}

			clock, err := clockAt(flagAt)
			if err != nil {
				cmdcommon.PrintFlagsError(c, "--at", err)
			}

			cl, err := newClient(context.Background(), clock, false)
			if err != nil {
				cmdcommon.PrintError(c, err)
			}
			defer cl.Close()

			if err := runList(context.Background(), os.Stdout, cl.refresher, flagFormat); err != nil {
				cmdcommon.Exit(cmdcommon.ErrorString(err))
			}
		},
	}

	showCmd = &cobra.Command{
		Use:   "show <poll id>",
		Short: "Print one poll",
		Args:  cobra.ExactArgs(1),
		Run: func(c *cobra.Command, args []string) {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				cmdcommon.PrintFlagsError(c, "<poll id>", err)
			}

			if flagName, err := parseFlags(); err != nil {
				cmdcommon.PrintFlagsError(c, flagName, err)
			}

			clock, err := clockAt(flagAt)
			if err != nil {
				cmdcommon.PrintFlagsError(c, "--at", err)
			}

			cl, err := newClient(context.Background(), clock, false)
			if err != nil {
				cmdcommon.PrintError(c, err)
			}
			defer cl.Close()

			if err := runShow(context.Background(), os.Stdout, cl.refresher, id, flagFormat); err != nil {
				cmdcommon.Exit(cmdcommon.ErrorString(err))
			}
		},
	}

	for _, c := range []*cobra.Command{listCmd, showCmd} {
		c.Flags().StringVar(&flagAt, "at", flagAt, "reconcile at this time instead of now, unix seconds or RFC3339")
		rootCmd.AddCommand(c)
	}
}

// clockAt is a clock fixed at s, or the regular clock when s is empty.
func clockAt(s string) (common.Clock, error) {
	at, err := cmdcommon.ParseTime(s)
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		return newClock(), nil
	}

	return common.FixedClock{T: at}, nil
}

func runList(ctx context.Context, w io.Writer, r *refresh.Refresher, format string) error {
	view, err := r.Refresh(ctx)
	if err != nil {
		return err
	}

	return renderView(w, view, format)
}

func runShow(ctx context.Context, w io.Writer, r *refresh.Refresher, id uint64, format string) error {
	view, err := r.Refresh(ctx)
	if err != nil {
		return err
	}

	entry, found := view.Find(id)
	if !found {
		for _, skipped := range view.Skipped {
			if skipped == id {
				return errors.PollPlaceholder.Clone().SetData("poll", id)
			}
		}
		return errors.PollNotFound.Clone().SetData("poll", id).SetData("count", view.Count)
	}

	if err := renderEntry(w, entry, format); err != nil {
		return fmt.Errorf("failed to render poll: %v", err)
	}

	return nil
}
