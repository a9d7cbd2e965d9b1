package cmd

import (
	"os"

	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cmdLogger is the logger used by the cmd package. It always writes to stdout.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel)

var rootCmd = &cobra.Command{
	Use:     "solbuild",
	Short:   "Builds Solidity contracts into deployable artifacts",
	Long:    "solbuild compiles Solidity sources with solc and normalizes the output into per-contract artifacts",
	Version: version.GetInfo().Short(),
}

func init() {
	cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)
}

// Execute runs the root command, which dispatches to every sub-command.
func Execute() error {
	return rootCmd.Execute()
}
