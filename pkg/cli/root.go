// Package cli assembles the notifier's cobra command tree.
package cli

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	Debug      bool
	ConfigPath string
}

// NewRootCommand builds the notifier command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "notifier",
		Short:        "UserHub notification service",
		Long:         "Publishes user lifecycle events to Kafka and runs the email worker that consumes them.",
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug level logging")
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to a YAML config file (default: NOTIFIER_CONFIG_PATH or ./config.yaml)")

	root.AddCommand(
		newWorkerCommand(opts),
		newSendCommand(opts),
		newVersionCommand(),
	)

	return root
}
