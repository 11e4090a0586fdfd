// Command owdump is a debugging and demo surface for the objectwire codec,
// grounded on hailam-genfile's use of github.com/spf13/cobra for its file
// generators. It is not part of the core codec: it exists to exercise the
// library end to end and inspect wire streams by hand.
package main

import (
	"fmt"
	"os"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"

	internallog "github.com/arloliu/objectwire/internal/log"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "owdump",
		Short: "Inspect and exercise the objectwire object-graph codec",
		Long: `owdump round-trips synthetic object graphs through the objectwire
codec and can print the tag sequence of an encoded stream, for debugging
and for demonstrating the wire format.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				internallog.SetLevel(logging.DEBUG)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRoundtripCmd())
	rootCmd.AddCommand(newInspectCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
