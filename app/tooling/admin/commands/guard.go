package commands

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// guardCmd represents the guard command.
var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Returns the double-spend guard statistics",
	Long:  `Returns the double-spend guard statistics of the current epoch window.`,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return get(fmt.Sprintf("%s/v1/guard/stats", privateURL))
	},
}

// rolloverCmd represents the rollover command.
var rolloverCmd = &cobra.Command{
	Use:   "rollover [epoch]",
	Short: "Rolls the double-spend guard over to a new epoch window",
	Long:  `Rolls the double-spend guard over to a new epoch window.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		epoch, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parsing epoch number: %w", err)
		}

		body := fmt.Sprintf(`{"epoch": %d}`, epoch)
		resp, err := http.Post(fmt.Sprintf("%s/v1/epoch/rollover", privateURL), "application/json", strings.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("node returned %s", resp.Status)
		}
		fmt.Printf("guard rolled over to epoch %d\n", epoch)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(guardCmd)
	rootCmd.AddCommand(rolloverCmd)
}
