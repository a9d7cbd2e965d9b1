package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "solbuild.json"

// LogFileNamePrefix describes the prefix of structured log files written to the configured log directory.
const LogFileNamePrefix = "solbuild"
