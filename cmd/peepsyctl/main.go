// Command peepsyctl is a small operable entrypoint around core/master
// and core/worker: a "demo" subcommand that spawns a master and a pool
// of stdio-channel workers from a config file, and a "worker"
// subcommand that runs inside each spawned child process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peepsyctl",
		Short: "Spawn and drive a peepsy master/worker pool",
	}
	cmd.AddCommand(newDemoCommand())
	cmd.AddCommand(newWorkerCommand())
	return cmd
}
