// This program performs administrative tasks against a running ledger node.
package main

import (
	"github.com/ezchain/ezchain/app/tooling/admin/commands"
)

func main() {
	commands.Execute()
}
