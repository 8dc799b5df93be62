// Package commands implements the set of admin subcommands. All commands
// talk to a running node over its HTTP API.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	url        string
	privateURL string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "admin [command] [flags]",
	Short: "Command-line interface for a ledger node",
	Long: `admin queries a running ledger node and can return account status,
the owned VPB pairs, the genesis allocations and the double-spend guard
statistics, as well as trigger an epoch rollover.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://0.0.0.0:8080", "public API of the node")
	rootCmd.PersistentFlags().StringVar(&privateURL, "private-url", "http://0.0.0.0:9080", "private API of the node")
}

// get performs a GET against the node and prints the indented JSON response.
func get(endpoint string) error {
	resp, err := http.Get(endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node returned %s: %s", resp.Status, body)
	}

	pretty, err := json.MarshalIndent(json.RawMessage(body), "", "  ")
	if err != nil {
		fmt.Println(string(body))
		return nil
	}

	fmt.Println(string(pretty))
	return nil
}
