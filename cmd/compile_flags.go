package cmd

import (
	"fmt"

	"github.com/crytic/solbuild/compilation"
	"github.com/crytic/solbuild/configs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addCompileFlags adds the various flags for the compile command to the provided flag set
func addCompileFlags(flags *pflag.FlagSet) error {
	defaultConfig := configs.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	flags.SortFlags = false

	flags.String("config", "", "path to config file")

	flags.String("compiler", "",
		fmt.Sprintf("compiler executable (unless a config file is provided, default is %q)", defaultConfig.Compilation.Compiler))

	flags.String("fallback-compiler", "",
		"compiler executable to use if the compiler is older than the minimum version")

	flags.String("min-version", "",
		fmt.Sprintf("minimum compiler version (unless a config file is provided, default is %q)", defaultConfig.Compilation.MinimumVersion))

	flags.String("mode", "",
		fmt.Sprintf("compiler invocation mode, %q or %q (unless a config file is provided, default is %q)",
			compilation.StandardJSONMode, compilation.CombinedJSONMode, defaultConfig.Compilation.InvocationMode))

	flags.StringSlice("remappings", []string{},
		"import remappings in prefix=target notation, added to those of the config file")

	flags.StringSlice("source-dirs", []string{},
		fmt.Sprintf("directory prefixes removed from artifact filenames (unless a config file is provided, default is %v)", defaultConfig.Compilation.SourceDirectories))

	flags.Int("optimizer-runs", 0,
		fmt.Sprintf("number of runs the optimizer tunes for (unless a config file is provided, default is %d)", defaultConfig.Compilation.OptimizerRuns))

	flags.Bool("no-optimizer", false, "disables the optimizer")

	flags.Int("timeout", 0,
		fmt.Sprintf("number of seconds a compiler invocation may run for (unless a config file is provided, default is %d)", defaultConfig.Compilation.Timeout))

	flags.String("build-dir", "",
		fmt.Sprintf("directory build outputs are written to (unless a config file is provided, default is %q)", defaultConfig.Compilation.BuildDirectory))

	flags.Bool("no-binaries", false, "disables writing .bin files")

	flags.Bool("no-database", false, "disables storing artifacts in the artifact database")

	flags.String("log-level", "",
		fmt.Sprintf("log level (unless a config file is provided, default is %q)", defaultConfig.Logging.Level))

	flags.Bool("no-color", false, "disables colored output")

	return nil
}

// updateProjectConfigWithCompileFlags will update the given projectConfig with any CLI arguments that were provided to
// the compile command
func updateProjectConfigWithCompileFlags(cmd *cobra.Command, projectConfig *configs.ProjectConfig) error {
	var err error
	compilationConfig := projectConfig.Compilation

	stringFlags := map[string]*string{
		"compiler":          &compilationConfig.Compiler,
		"fallback-compiler": &compilationConfig.FallbackCompiler,
		"min-version":       &compilationConfig.MinimumVersion,
		"build-dir":         &compilationConfig.BuildDirectory,
	}
	for name, target := range stringFlags {
		if cmd.Flags().Changed(name) {
			if *target, err = cmd.Flags().GetString(name); err != nil {
				return err
			}
		}
	}

	if cmd.Flags().Changed("mode") {
		mode, err := cmd.Flags().GetString("mode")
		if err != nil {
			return err
		}
		compilationConfig.InvocationMode = compilation.InvocationMode(mode)
	}

	if cmd.Flags().Changed("remappings") {
		remappings, err := cmd.Flags().GetStringSlice("remappings")
		if err != nil {
			return err
		}
		compilationConfig.Remappings = append(compilationConfig.Remappings, remappings...)
	}

	if cmd.Flags().Changed("source-dirs") {
		if compilationConfig.SourceDirectories, err = cmd.Flags().GetStringSlice("source-dirs"); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("optimizer-runs") {
		if compilationConfig.OptimizerRuns, err = cmd.Flags().GetInt("optimizer-runs"); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("timeout") {
		if compilationConfig.Timeout, err = cmd.Flags().GetInt("timeout"); err != nil {
			return err
		}
	}

	boolFlags := map[string]func(bool){
		"no-optimizer": func(v bool) { compilationConfig.Optimizer = !v },
		"no-binaries":  func(v bool) { compilationConfig.EmitBinaries = !v },
		"no-database":  func(v bool) { compilationConfig.ArtifactDatabase = !v },
		"no-color":     func(v bool) { projectConfig.Logging.NoColor = v },
	}
	for name, apply := range boolFlags {
		if cmd.Flags().Changed(name) {
			value, err := cmd.Flags().GetBool(name)
			if err != nil {
				return err
			}
			apply(value)
		}
	}

	if cmd.Flags().Changed("log-level") {
		levelStr, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		if projectConfig.Logging.Level, err = zerolog.ParseLevel(levelStr); err != nil {
			return err
		}
	}

	return nil
}
