package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artificer-ai/artificer/internal/store"
)

func buildMigrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the sqlite schema without starting the server",
		Long: `Open (creating if necessary) the engine's sqlite database and apply its
schema. Every statement is CREATE ... IF NOT EXISTS, so this is safe to run
against an already-migrated database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = "artificer.db"
			}
			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer st.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", dbPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dbPath, "database", "d", "artificer.db", "Path to the sqlite database file")
	return cmd
}
