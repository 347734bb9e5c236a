package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"boscoin.io/pollwatch/lib/errors"
)

func ErrorString(err error) string {
	if e, ok := errors.As(err); ok {
		if len(e.Data) < 1 {
			return e.Message
		}
		var data []string
		for k, v := range e.Data {
			data = append(data, fmt.Sprintf("%s=%v", k, v))
		}
		return fmt.Sprintf("%s (%s)", e.Message, strings.Join(data, ", "))
	}

	return err.Error()
}

/**
 * Issue a message on Stderr then exit with an error code
 */
func PrintFlagsError(cmd *cobra.Command, flagName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid '%s'; %s\n\n", flagName, ErrorString(err))
	}

	cmd.Help()

	os.Exit(1)
}

func PrintError(cmd *cobra.Command, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n\n", ErrorString(err))
	}

	cmd.Help()

	os.Exit(1)
}

// Exit prints a status line without the usage and exits.
func Exit(status string) {
	fmt.Fprintln(os.Stderr, status)
	os.Exit(1)
}

// ParseTime reads unix seconds or an RFC3339 time. An empty string is the
// zero time.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 1 {
		return time.Time{}, nil
	}

	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0), nil
	}

	return time.Parse(time.RFC3339, s)
}

type ListFlags []string

func (i *ListFlags) Type() string {
	return "list"
}

func (i *ListFlags) String() string {
	return strings.Join([]string(*i), " ")
}

func (i *ListFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}
