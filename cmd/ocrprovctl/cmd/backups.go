package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrprov/engine/internal/schema"
)

func newBackupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Inspect pre-migration database backups",
	}
	cmd.AddCommand(newBackupsListCmd())
	return cmd
}

func newBackupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <db-path>",
		Short: "List the pre-migration backups retained alongside a database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := schema.ListBackups(args[0])
			if err != nil {
				return fmt.Errorf("backups list: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "no backups found")
				return nil
			}
			for _, b := range backups {
				fmt.Fprintf(out, "%s\tschema v%d\n", b.Path, b.Version)
			}
			return nil
		},
	}
}
