package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cmdcommon "boscoin.io/pollwatch/cmd/pollwatch/common"
	"boscoin.io/pollwatch/lib/poll"
	"boscoin.io/pollwatch/lib/refresh"
)

var whoamiCmd *cobra.Command

// Identity is what `whoami` prints.
type Identity struct {
	Network   string `json:"network" yaml:"network"`
	ChainID   string `json:"chain_id" yaml:"chain_id"`
	RPC       string `json:"rpc" yaml:"rpc"`
	Contract  string `json:"contract" yaml:"contract"`
	Signer    string `json:"signer,omitempty" yaml:"signer,omitempty"`
	Voter     string `json:"voter,omitempty" yaml:"voter,omitempty"`
	Admin     string `json:"admin" yaml:"admin"`
	IsAdmin   bool   `json:"is_admin" yaml:"is_admin"`
	Watcher   string `json:"watcher" yaml:"watcher"`
}

func init() {
	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Print the network, the signer and whether it is the contract admin",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, args []string) {
			if flagName, err := parseFlags(); err != nil {
				cmdcommon.PrintFlagsError(c, flagName, err)
			}

			cl, err := newClient(context.Background(), newClock(), false)
			if err != nil {
				cmdcommon.PrintError(c, err)
			}
			defer cl.Close()

			identity, err := whoami(context.Background(), cl.refresher, cl.session.From())
			if err != nil {
				cmdcommon.Exit(cmdcommon.ErrorString(err))
			}
			if err := renderIdentity(os.Stdout, identity, flagFormat); err != nil {
				cmdcommon.Exit(cmdcommon.ErrorString(err))
			}
		},
	}

	rootCmd.AddCommand(whoamiCmd)
}

func whoami(ctx context.Context, r *refresh.Refresher, signer string) (Identity, error) {
	admin, err := r.Admin(ctx)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		Network:   config.ChainName,
		ChainID:   config.ChainIDHex(),
		RPC:       config.RPCURL,
		Contract:  config.ContractAddress,
		Signer:    signer,
		Voter:     r.Voter(),
		Admin:     admin,
		IsAdmin:   len(signer) > 0 && poll.SameAddress(admin, signer),
		Watcher:   r.ID(),
	}, nil
}

func renderIdentity(w io.Writer, i Identity, format string) error {
	if format != cmdcommon.FormatText {
		return encode(w, i, format)
	}

	signer := "(none, read-only)"
	if len(i.Signer) > 0 {
		signer = i.Signer
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "network\t%s (%s)\n", i.Network, i.ChainID)
	fmt.Fprintf(tw, "rpc\t%s\n", i.RPC)
	fmt.Fprintf(tw, "contract\t%s\n", i.Contract)
	fmt.Fprintf(tw, "signer\t%s\n", signer)
	if len(i.Voter) > 0 {
		fmt.Fprintf(tw, "voter\t%s\n", i.Voter)
	}
	fmt.Fprintf(tw, "admin\t%s\n", i.Admin)
	fmt.Fprintf(tw, "is admin\t%t\n", i.IsAdmin)

	return tw.Flush()
}
