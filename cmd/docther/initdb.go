package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docther/docther/pkg/store"
)

func newInitDBCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.cfg.DatabaseURL == "" {
				return fmt.Errorf("no database configured: set database_url or DATABASE_URL")
			}
			st, err := store.NewPostgresStore(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.CreateSchema(ctx); err != nil {
				return err
			}
			fmt.Println("Schema created.")
			return nil
		},
	}
}
