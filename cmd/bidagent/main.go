// Command bidagent is the task bidding marketplace client and autonomous
// bidding agent.
package main

import (
	"os"

	"github.com/a2a-aptos/bidagent/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
