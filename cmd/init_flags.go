package cmd

import (
	"github.com/crytic/solbuild/compilation"
	"github.com/crytic/solbuild/configs"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() error {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Overwrite without prompting
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file without prompting")

	// Sources to compile
	initCmd.Flags().StringSlice("sources", []string{},
		"source files, directories or glob patterns to compile (default is \"contracts\")")

	// Invocation mode
	initCmd.Flags().String("mode", "", "compiler invocation mode (default is \""+string(compilation.StandardJSONMode)+"\")")

	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *configs.ProjectConfig) error {
	var err error
	if cmd.Flags().Changed("sources") {
		if projectConfig.Compilation.Sources, err = cmd.Flags().GetStringSlice("sources"); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("mode") {
		mode, err := cmd.Flags().GetString("mode")
		if err != nil {
			return err
		}
		projectConfig.Compilation.InvocationMode = compilation.InvocationMode(mode)
	}

	return nil
}
