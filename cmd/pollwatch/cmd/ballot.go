package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"

	cmdcommon "boscoin.io/pollwatch/cmd/pollwatch/common"
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/ledger"
)

// ballotBox is the single-slot contract; `*ledger.SingleSlot` implements it.
type ballotBox interface {
	IsVotingActive(ctx context.Context) (bool, error)
	HasVoted(ctx context.Context, voter string) (bool, error)
	GetVote(ctx context.Context, voter string) ([]byte, error)
	CastVote(ctx context.Context, encryptedChoice []byte) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// BallotStatus is what `ballot status` prints.
type BallotStatus struct {
	Contract string `json:"contract" yaml:"contract"`
	Active   bool   `json:"active" yaml:"active"`
	Voter    string `json:"voter,omitempty" yaml:"voter,omitempty"`
	Voted    bool   `json:"voted" yaml:"voted"`
	Vote     string `json:"vote,omitempty" yaml:"vote,omitempty"`
}

var (
	ballotCmd       *cobra.Command
	ballotStatusCmd *cobra.Command
	ballotVoteCmd   *cobra.Command
)

func init() {
	ballotCmd = &cobra.Command{
		Use:   "ballot",
		Short: "Use a single ballot contract, which holds one encrypted vote per address",
		Run: func(c *cobra.Command, args []string) {
			if len(args) < 1 {
				c.Usage()
			}
		},
	}

	ballotStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print whether voting is open and whether the voter already voted",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, args []string) {
			session, box := dialBallot(c, false)
			defer session.Close()

			ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
			defer cancel()

			status, err := ballotStatus(ctx, box, session.ContractAddress(), voter)
			if err != nil {
				cmdcommon.Exit(cmdcommon.ErrorString(err))
			}
			if err := renderBallotStatus(os.Stdout, status, flagFormat); err != nil {
				cmdcommon.Exit(cmdcommon.ErrorString(err))
			}
		},
	}

	ballotVoteCmd = &cobra.Command{
		Use:   "vote <0x encrypted choice>",
		Short: "Cast the encrypted vote and wait until it is mined",
		Args:  cobra.ExactArgs(1),
		Run: func(c *cobra.Command, args []string) {
			ciphertext, err := hexutil.Decode(args[0])
			if err != nil {
				cmdcommon.PrintFlagsError(c, "<0x encrypted choice>", err)
			} else if len(ciphertext) < 1 {
				cmdcommon.PrintFlagsError(c, "<0x encrypted choice>", fmt.Errorf("empty vote"))
			}

			session, box := dialBallot(c, true)
			defer session.Close()

			ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout+writeTimeout)
			defer cancel()

			if result := runBallotVote(ctx, os.Stdout, box, ciphertext); !result.OK() {
				cmdcommon.Exit(result.Status())
			}
		},
	}

	ballotCmd.AddCommand(ballotStatusCmd)
	ballotCmd.AddCommand(ballotVoteCmd)
	rootCmd.AddCommand(ballotCmd)
}

func dialBallot(c *cobra.Command, needSigner bool) (*ledger.Session, *ledger.SingleSlot) {
	flagVariant = common.ContractVariantSingleSlot
	if flagName, err := parseFlags(); err != nil {
		cmdcommon.PrintFlagsError(c, flagName, err)
	}
	if needSigner && key == nil {
		cmdcommon.PrintFlagsError(c, "--key", errors.SignerMissing)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
	defer cancel()

	session, err := ledger.Dial(ctx, config, key)
	if err != nil {
		cmdcommon.PrintError(c, err)
	}

	return session, ledger.NewSingleSlot(session)
}

func ballotStatus(ctx context.Context, box ballotBox, contract, voter string) (BallotStatus, error) {
	status := BallotStatus{Contract: contract, Voter: voter}

	var err error
	if status.Active, err = box.IsVotingActive(ctx); err != nil {
		return status, err
	}
	if len(voter) < 1 {
		return status, nil
	}

	if status.Voted, err = box.HasVoted(ctx, voter); err != nil {
		return status, err
	}
	if status.Voted {
		vote, err := box.GetVote(ctx, voter)
		if err != nil {
			return status, err
		}
		status.Vote = hexutil.Encode(vote)
	}

	return status, nil
}

func renderBallotStatus(w io.Writer, s BallotStatus, format string) error {
	if format != cmdcommon.FormatText {
		return encode(w, s, format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "contract\t%s\n", s.Contract)
	fmt.Fprintf(tw, "voting active\t%t\n", s.Active)
	if len(s.Voter) > 0 {
		fmt.Fprintf(tw, "voter\t%s\n", s.Voter)
		fmt.Fprintf(tw, "voted\t%t\n", s.Voted)
	}
	if len(s.Vote) > 0 {
		fmt.Fprintf(tw, "encrypted vote\t%s\n", s.Vote)
	}

	return tw.Flush()
}

func runBallotVote(ctx context.Context, w io.Writer, box ballotBox, ciphertext []byte) ledger.Result {
	var receipt *types.Receipt
	var tx *types.Transaction
	result := ledger.Do(func() (err error) {
		if tx, err = box.CastVote(ctx, ciphertext); err != nil {
			return
		}
		receipt, err = box.WaitMined(ctx, tx)
		return
	})
	if !result.OK() {
		return result
	}

	fmt.Fprintf(w, "Vote cast successfully.\ntx: %s\nblock: %d\n", config.TxURL(tx.Hash().Hex()), receipt.BlockNumber.Uint64())
	return result
}
