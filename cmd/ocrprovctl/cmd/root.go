// Package cmd provides the ocrprovctl CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ocrprov/engine/internal/obslog"
	"github.com/ocrprov/engine/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
	noColor        bool
)

// NewRootCmd creates the root command for the ocrprovctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocrprovctl",
		Short: "Operate an OCR provenance engine database",
		Long: `ocrprovctl migrates, inspects, and queries a provenance engine
SQLite database from the command line.

It never starts the engine's own request-handling process; each subcommand
opens the database file directly for the duration of the call.`,
		Version:            version.Short(),
		PersistentPreRunE:  startLogging,
		PersistentPostRunE: stopLogging,
	}

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.ocrprov/logs/")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", !isatty.IsTerminal(os.Stdout.Fd()), "disable colored output")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newVerifySchemaCmd())
	cmd.AddCommand(newBackupsCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIngestDocCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := obslog.Setup(obslog.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", obslog.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
