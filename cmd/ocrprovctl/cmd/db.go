package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrprov/engine/internal/engine"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Exercise the process-wide current-database selection lifecycle",
	}
	cmd.AddCommand(newDBSelectCmd())
	return cmd
}

func newDBSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <name> <db-path>",
		Short: "Select a database as current, running migrations, then report success",
		Long: `select opens db-path as the named current database using the same
generation-guarded selection path the engine's request handlers use, then
immediately clears it. It exists to exercise and debug the selection
lifecycle (migration + generation bump) from the command line; it does not
leave a long-lived process running.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			state := engine.New()
			if err := state.Select(name, path); err != nil {
				return fmt.Errorf("db select: %w", err)
			}
			s, err := state.Current()
			if err != nil {
				return fmt.Errorf("db select: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "selected %q at %s\n", state.Name(), s.Path())
			return state.Clear()
		},
	}
}
