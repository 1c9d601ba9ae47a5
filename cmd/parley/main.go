// Command parley runs the conversational context engine and its
// operator tooling.
package main

import (
	"fmt"
	"os"

	"github.com/parleybot/parley/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
