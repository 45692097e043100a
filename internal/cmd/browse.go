package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/gesturecast/internal/discovery"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Find gesture streams on the local network",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

var browseTimeout time.Duration

func init() {
	browseCmd.Flags().DurationVar(&browseTimeout, "timeout", 3*time.Second, "How long to wait for answers")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), browseTimeout+time.Second)
	defer cancel()

	found, err := discovery.Browse(ctx, browseTimeout)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintln(out, "No gesture streams found")
		return nil
	}
	for _, inst := range found {
		fmt.Fprintf(out, "%-24s %s", inst.Name, inst.URL())
		if inst.Version != "" {
			fmt.Fprintf(out, "  (%s)", inst.Version)
		}
		fmt.Fprintln(out)
	}
	return nil
}
