package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/crytic/solbuild/cmd/exitcodes"
	"github.com/crytic/solbuild/compilation/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// artifactsCmd represents the command provider for reading the artifact database
var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Reads artifacts from the artifact database",
	Long:  `Reads artifacts stored in the artifact database of the build directory by a previous compilation`,
}

var artifactsListCmd = &cobra.Command{
	Use:           "list",
	Short:         "Lists the names of stored artifacts",
	Args:          cobra.NoArgs,
	RunE:          cmdRunArtifactsList,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var artifactsShowCmd = &cobra.Command{
	Use:           "show <name>",
	Short:         "Prints a stored artifact as JSON",
	Args:          cobra.ExactArgs(1),
	RunE:          cmdRunArtifactsShow,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	for _, c := range []*cobra.Command{artifactsListCmd, artifactsShowCmd} {
		c.Flags().String("config", "", "path to config file")
		c.Flags().String("build-dir", "", "directory containing the artifact database")
		artifactsCmd.AddCommand(c)
	}
	rootCmd.AddCommand(artifactsCmd)
}

// openArtifactStore opens the artifact database of the build directory given by --build-dir or the project config.
func openArtifactStore(cmd *cobra.Command) (*store.ArtifactStore, error) {
	buildDirectory, err := cmd.Flags().GetString("build-dir")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !cmd.Flags().Changed("build-dir") {
		projectConfig, configDirectory, err := loadProjectConfig(cmd)
		if err != nil {
			return nil, err
		}
		buildDirectory = projectConfig.Compilation.BuildDirectory
		if !filepath.IsAbs(buildDirectory) {
			buildDirectory = filepath.Join(configDirectory, buildDirectory)
		}
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return store.Open(ctx, buildDirectory)
}

// cmdRunArtifactsList prints the name of every stored artifact, one per line.
func cmdRunArtifactsList(cmd *cobra.Command, args []string) error {
	artifactStore, err := openArtifactStore(cmd)
	if err != nil {
		cmdLogger.Error("Failed to open the artifact database", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer artifactStore.Close()

	names, err := artifactStore.Names()
	if err != nil {
		cmdLogger.Error("Failed to list artifacts", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

// cmdRunArtifactsShow prints the stored artifact with the given name.
func cmdRunArtifactsShow(cmd *cobra.Command, args []string) error {
	artifactStore, err := openArtifactStore(cmd)
	if err != nil {
		cmdLogger.Error("Failed to open the artifact database", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer artifactStore.Close()

	artifact, err := artifactStore.Get(args[0])
	if err != nil {
		cmdLogger.Error("Failed to read artifact ", args[0], err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	b, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
