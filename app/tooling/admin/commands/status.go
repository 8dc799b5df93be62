package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command.
var statusCmd = &cobra.Command{
	Use:   "status [account]",
	Short: "Returns the confirmed balance and pair counts for an account",
	Long:  `Returns the confirmed balance and pair counts for an account.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return get(fmt.Sprintf("%s/v1/accounts/%s/status", url, args[0]))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
