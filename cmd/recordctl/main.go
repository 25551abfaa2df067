// Command recordctl is the command-line client for recordd.
package main

import (
	"os"

	"github.com/dreamware/tuplestore/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		format, _ := root.PersistentFlags().GetString("format")
		f := &cli.OutputFormatter{Format: format, Writer: os.Stderr}
		f.Error(err)
		os.Exit(cli.GetExitCode(err))
	}
}
