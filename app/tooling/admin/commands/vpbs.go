package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// vpbsCmd represents the vpbs command.
var vpbsCmd = &cobra.Command{
	Use:   "vpbs [account]",
	Short: "Returns the VPB pairs owned by an account",
	Long:  `Returns the VPB pairs owned by an account, spent tombstones included.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return get(fmt.Sprintf("%s/v1/accounts/%s/vpbs", url, args[0]))
	},
}

func init() {
	rootCmd.AddCommand(vpbsCmd)
}
