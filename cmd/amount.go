package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"skontokit/internal/amountinput"
	"skontokit/internal/logger"
)

var amountCmd = &cobra.Command{
	Use:   "amount [keystrokes...]",
	Short: "Format currency keystrokes into a canonical amount",
	Long: `Replay a sequence of keystrokes through the currency input formatter and
print the resulting amount.

The formatter treats the amount as a digit register: every typed digit
shifts the value left ("1", "2", "3" becomes 0.01, 0.12, 1.23), non-digit
characters are ignored, and digits beyond the 99999.99 capacity are
dropped. Each positional argument is fed in order, so separate arguments
can model separate keystrokes or whole pasted strings.`,
	Example: `  # Single keystrokes
  skonto amount 1 2 3 4 5
  123.45

  # Pasted input with junk characters
  skonto amount "1asd234fdsf5gfd6"
  1234.56`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAmount,
}

func init() {
	rootCmd.AddCommand(amountCmd)

	amountCmd.Flags().Int64("from", 0, "Start from an existing amount in cents instead of 0.00")
	amountCmd.Flags().Bool("trace", false, "Print the display value after every argument")
}

func runAmount(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("amount")

	fromCents, _ := cmd.Flags().GetInt64("from")
	trace, _ := cmd.Flags().GetBool("trace")

	formatter := amountinput.NewFormatterFromCents(fromCents)

	for _, arg := range args {
		value := formatter.InsertString(arg)
		if trace {
			fmt.Printf("%-20q %s\n", arg, value)
		}
	}

	log.Debug().
		Int64("cents", formatter.Cents()).
		Str("value", formatter.Value()).
		Msg("Keystroke replay completed")

	if !trace {
		fmt.Println(formatter.Value())
	}
	return nil
}
