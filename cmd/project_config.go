package cmd

import (
	"os"
	"path/filepath"

	"github.com/crytic/solbuild/configs"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// loadProjectConfig resolves the project configuration for a command:
// #1: We will search for either a custom config file (via --config) or the default (solbuild.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If solbuild.json can't be found, use the default project configuration.
// Returns the config and the directory relative paths within it are resolved against.
func loadProjectConfig(cmd *cobra.Command) (*configs.ProjectConfig, string, error) {
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	workingDirectory, err := os.Getwd()
	if err != nil {
		return nil, "", errors.WithStack(err)
	}
	if !configFlagUsed {
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err := configs.ReadProjectConfigFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		configDirectory, err := filepath.Abs(filepath.Dir(configPath))
		if err != nil {
			return nil, "", errors.WithStack(err)
		}
		return projectConfig, configDirectory, nil
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed {
		return nil, "", errors.Wrapf(existenceError, "could not find the config file at %s", configPath)
	}

	// Possibility #3: --config flag was not used and solbuild.json was not found, so use the default project config
	cmdLogger.Warn("Unable to find the config file at ", configPath, ", will use the default project configuration instead")
	return configs.GetDefaultProjectConfig(), workingDirectory, nil
}
