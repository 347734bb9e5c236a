package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	cmdcommon "boscoin.io/pollwatch/cmd/pollwatch/common"
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/ledger"
	"boscoin.io/pollwatch/lib/poll"
	"boscoin.io/pollwatch/lib/refresh"
)

func encode(w io.Writer, v interface{}, format string) error {
	encoder, found := cmdcommon.DefaultEncodes[format]
	if !found {
		return fmt.Errorf("unknown format '%s'", format)
	}

	return encoder(v, w)
}

func renderView(w io.Writer, view *refresh.View, format string) error {
	if format != cmdcommon.FormatText {
		return encode(w, view, format)
	}

	fmt.Fprintf(
		w,
		"refresh #%d at %s, %d polls",
		view.Sequence,
		common.FormatISO8601(view.FetchedAt),
		view.Count,
	)
	if len(view.Voter) > 0 {
		fmt.Fprintf(w, ", voter %s", poll.TruncateAddress(view.Voter))
	}
	if view.Offline {
		fmt.Fprint(w, ", OFFLINE")
	}
	if n := view.StaleCount(); n > 0 {
		fmt.Fprintf(w, ", %d stale", n)
	}
	if len(view.Failed) > 0 {
		fmt.Fprintf(w, ", failed to read %v", view.Failed)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "\nOngoing polls (%d)\n", len(view.Ongoing))
	if len(view.Ongoing) > 0 {
		fmt.Fprintln(tw, "  ID\tA\tB\tTIME LEFT\tSTATUS")
		for _, e := range view.Ongoing {
			fmt.Fprintf(tw, "  %d\t%d\t%d\t%s\t%s\n", e.ID, e.VotesForA, e.VotesForB, e.Timer, ongoingStatus(e, view.Voter))
		}
	}

	fmt.Fprintf(tw, "\nArchived polls (%d)\n", len(view.Archived))
	if len(view.Archived) > 0 {
		fmt.Fprintln(tw, "  ID\tA\tB\tENDED AGO\tRESULT")
		for _, e := range view.Archived {
			fmt.Fprintf(tw, "  %d\t%d\t%d\t%s\t%s\n", e.ID, e.VotesForA, e.VotesForB, e.Timer, withStale(result(e.Record), e))
		}
	}

	if len(view.Pending) > 0 {
		fmt.Fprintf(tw, "\nNot started yet (%d)\n", len(view.Pending))
		fmt.Fprintln(tw, "  ID\tOPENS IN\tSTART")
		for _, e := range view.Pending {
			fmt.Fprintf(tw, "  %d\t%s\t%s\n", e.ID, e.Timer, withStale(common.FormatISO8601(e.Start()), e))
		}
	}

	return tw.Flush()
}

func ongoingStatus(e poll.Entry, voter string) string {
	var status string
	switch {
	case e.Overdue:
		status = "closing"
	case len(voter) < 1:
		status = "-"
	case e.Voted:
		status = "voted"
	case e.CanVote:
		status = "can vote"
	default:
		status = "unknown"
	}

	return withStale(status, e)
}

func result(r poll.Record) string {
	if r.TotalVotes() < 1 {
		return "no votes"
	}

	leader, ok := r.Leader()
	if !ok {
		return "tie"
	}

	return fmt.Sprintf("%s won", leader)
}

func withStale(s string, e poll.Entry) string {
	if e.Stale {
		return s + " (stale)"
	}
	return s
}

func renderEntry(w io.Writer, e poll.Entry, format string) error {
	if format != cmdcommon.FormatText {
		return encode(w, e, format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "poll\t#%d\n", e.ID)
	fmt.Fprintf(tw, "class\t%s\n", e.Class)
	fmt.Fprintf(tw, "start\t%s\n", common.FormatISO8601(e.Start()))
	fmt.Fprintf(tw, "end\t%s\n", common.FormatISO8601(e.End()))
	fmt.Fprintf(tw, "votes\tA=%d B=%d\n", e.VotesForA, e.VotesForB)

	switch e.Class {
	case poll.ACTIVE:
		fmt.Fprintf(tw, "time left\t%s\n", e.Timer)
	case poll.ARCHIVED:
		fmt.Fprintf(tw, "ended ago\t%s\n", e.Timer)
		fmt.Fprintf(tw, "result\t%s\n", result(e.Record))
	case poll.PENDING:
		fmt.Fprintf(tw, "opens in\t%s\n", e.Timer)
	}
	if e.Overdue {
		fmt.Fprintln(tw, "overdue\tyes")
	}
	if e.Stale {
		fmt.Fprintln(tw, "stale\tyes")
	}
	if e.Class == poll.ACTIVE {
		fmt.Fprintf(tw, "voted\t%t\n", e.Voted)
		fmt.Fprintf(tw, "can vote\t%t\n", e.CanVote)
	}

	return tw.Flush()
}

func renderMined(w io.Writer, mined *refresh.Mined, format string) error {
	if format != cmdcommon.FormatText {
		return encode(w, mined, format)
	}

	switch mined.Method {
	case ledger.MethodCastVote:
		fmt.Fprintf(w, "Vote cast successfully in poll #%d.\n", mined.PollID)
	case ledger.MethodCreateSession:
		fmt.Fprintln(w, "Poll created successfully.")
	default:
		fmt.Fprintf(w, "%s mined.\n", mined.Method)
	}
	fmt.Fprintf(w, "tx: %s\nblock: %d\n", config.TxURL(mined.Tx), mined.Block)

	return nil
}
