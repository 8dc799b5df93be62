package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// genesisCmd represents the genesis command.
var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Returns the genesis information of the node",
	Long:  `Returns the genesis information of the node.`,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return get(fmt.Sprintf("%s/v1/genesis", url))
	},
}

func init() {
	rootCmd.AddCommand(genesisCmd)
}
