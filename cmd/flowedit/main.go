// Command flowedit edits stored agent flows from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/flowedit/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
