package main

import (
	"fmt"
	"os"

	"github.com/LdDl/algo-plugin-go/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const envLogLevel = "ALGOPLUGIN_LOG_LEVEL"

type globalOptions struct {
	logLevel string
	logFile  string
	logger   *logrus.Logger
}

func newRootCommand(version, commit, date string) *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "algoplugin",
		Short: "Post-processing plugins for video analytics results",
		Long: `algoplugin runs chains of post-processing plugins over per-frame detection results.

Frames are read as JSON lines, one array of objects per frame, and written back in
the same form after every plugin of the chain handled them.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := opts.logLevel
			if !cmd.Flags().Changed("log-level") {
				if env := os.Getenv(envLogLevel); env != "" {
					level = env
				}
			}
			logger, err := logging.New(logging.Options{
				Level:  level,
				File:   opts.logFile,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error), env "+envLogLevel)
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this rotated file")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newDefinitionCommand())
	rootCmd.AddCommand(newRunCommand(opts))
	return rootCmd
}
