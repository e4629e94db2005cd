package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/semanadefe/semanadefe/internal/config"
	"github.com/semanadefe/semanadefe/internal/logging"
)

// rootOptions is shared by every subcommand.
type rootOptions struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{cleanup: func() {}}

	cmd := &cobra.Command{
		Use:           "semanadefe",
		Short:         "Semana de Fé initiative board",
		Long:          "Collects evangelism initiatives and testimonies from university students and tracks weekly challenges.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.Load()
			logger, cleanup, err := logging.New(opts.cfg.LogLevel, opts.cfg.LogFile)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger
			opts.cleanup = cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			opts.cleanup()
		},
	}

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newTasksCommand(opts))
	cmd.AddCommand(newInitiativesCommand(opts))
	cmd.AddCommand(newLocateCommand(opts))
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.SetFlags(0)
		log.Print(err)
		os.Exit(1)
	}
}
