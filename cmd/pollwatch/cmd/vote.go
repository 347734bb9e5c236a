package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "boscoin.io/pollwatch/cmd/pollwatch/common"
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/ledger"
	"boscoin.io/pollwatch/lib/poll"
	"boscoin.io/pollwatch/lib/refresh"
)

var (
	flagStart    string
	flagDuration string = common.GetENVValue("POLLWATCH_POLL_DURATION", common.DefaultPollDuration.String())
)

var (
	voteCmd   *cobra.Command
	createCmd *cobra.Command
)

func init() {
	voteCmd = &cobra.Command{
		Use:   "vote <poll id> <a|b>",
		Short: "Vote in an ongoing poll and wait until the vote is mined",
		Args:  cobra.ExactArgs(2),
		Run: func(c *cobra.Command, args []string) {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				cmdcommon.PrintFlagsError(c, "<poll id>", err)
			}
			choice, ok := poll.ParseChoice(args[1])
			if !ok {
				cmdcommon.PrintFlagsError(c, "<a|b>", fmt.Errorf("'%s' is neither a nor b", args[1]))
			}

			if flagName, err := parseFlags(); err != nil {
				cmdcommon.PrintFlagsError(c, flagName, err)
			}

			cl, err := newClient(context.Background(), newClock(), true)
			if err != nil {
				cmdcommon.PrintError(c, err)
			}
			defer cl.Close()

			ctx, cancel := cl.writeContext(context.Background())
			defer cancel()

			if result := runVote(ctx, os.Stdout, cl.actions, id, choice, flagFormat); !result.OK() {
				cmdcommon.Exit(result.Status())
			}
		},
	}

	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a new poll; only the contract admin can",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, args []string) {
			if flagName, err := parseFlags(); err != nil {
				cmdcommon.PrintFlagsError(c, flagName, err)
			}

			start, err := cmdcommon.ParseTime(flagStart)
			if err != nil {
				cmdcommon.PrintFlagsError(c, "--start", err)
			}
			duration, err := time.ParseDuration(flagDuration)
			if err != nil {
				cmdcommon.PrintFlagsError(c, "--duration", err)
			}

			cl, err := newClient(context.Background(), newClock(), true)
			if err != nil {
				cmdcommon.PrintError(c, err)
			}
			defer cl.Close()

			ctx, cancel := cl.writeContext(context.Background())
			defer cancel()

			if result := runCreate(ctx, os.Stdout, cl.actions, start, duration, flagFormat); !result.OK() {
				cmdcommon.Exit(result.Status())
			}
		},
	}
	createCmd.Flags().StringVar(&flagStart, "start", flagStart, "start of the poll, unix seconds or RFC3339; empty means now")
	createCmd.Flags().StringVar(&flagDuration, "duration", flagDuration, "duration of the poll")

	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(createCmd)
}

func runVote(ctx context.Context, w io.Writer, actions *refresh.Actions, id uint64, choice poll.Choice, format string) ledger.Result {
	var mined *refresh.Mined
	result := ledger.Do(func() (err error) {
		mined, err = actions.Vote(ctx, id, choice)
		return
	})
	if !result.OK() {
		log.Debug("vote failed", "poll", id, "choice", choice, "kind", result.Kind, "error", result.Err)
		return result
	}

	renderMined(w, mined, format)
	return result
}

func runCreate(ctx context.Context, w io.Writer, actions *refresh.Actions, start time.Time, duration time.Duration, format string) ledger.Result {
	var startUnix int64
	if !start.IsZero() {
		startUnix = start.Unix()
	}

	var mined *refresh.Mined
	result := ledger.Do(func() (err error) {
		mined, err = actions.CreatePoll(ctx, startUnix, duration)
		return
	})
	if !result.OK() {
		log.Debug("create failed", "start", startUnix, "duration", duration, "kind", result.Kind, "error", result.Err)
		return result
	}

	renderMined(w, mined, format)
	return result
}
