package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hutomosaktikartiko/patchly/cmd"
	"github.com/hutomosaktikartiko/patchly/pkg/logging"
	"github.com/hutomosaktikartiko/patchly/pkg/patchly"
)

func main() {
	// Load a .env file from the working directory, if present. A missing
	// file is not an error - most invocations won't have one.
	_ = godotenv.Load()

	// PATCHLY_DEBUG and the --log-level default were first read during
	// package initialization, before the .env file was loaded; read them
	// again so that values from .env take effect.
	patchly.DebugEnabled = os.Getenv("PATCHLY_DEBUG") == "1"
	flagLogLevel = defaultLogLevelName()

	rootCommand.AddCommand(
		generateCommand,
		applyCommand,
		inspectCommand,
		versionCommand,
	)

	if err := rootCommand.Execute(); err != nil {
		cmd.Fatal(err)
	}
}

var rootCommand = &cobra.Command{
	Use:           "patchly",
	Short:         "Generate and apply binary diff patches",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       patchly.Version,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		level, ok := logging.NameToLevel(flagLogLevel)
		if !ok {
			return fmt.Errorf("invalid log level: %s", flagLogLevel)
		}
		appLogger = logging.NewRootLogger(level)
		return nil
	},
}

func init() {
	rootCommand.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "suppress progress output")
	rootCommand.PersistentFlags().StringVar(&flagLogLevel, "log-level", defaultLogLevelName(),
		"set the logging level (disabled, error, warn, info, debug, trace)")
}

var flagQuiet bool
var flagLogLevel string

// appLogger is the root logger for the running command, built from
// flagLogLevel once cobra has parsed flags. nil until then, which is safe
// since *logging.Logger tolerates a nil receiver.
var appLogger *logging.Logger

// defaultLogLevelName resolves the --log-level default: PATCHLY_LOG_LEVEL if
// set and valid, else "debug" when PATCHLY_DEBUG enabled debug logging, else
// "info".
func defaultLogLevelName() string {
	if name := os.Getenv("PATCHLY_LOG_LEVEL"); name != "" {
		if _, ok := logging.NameToLevel(name); ok {
			return name
		}
	}
	if patchly.DebugEnabled {
		return "debug"
	}
	return "info"
}
