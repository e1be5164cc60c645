package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sqlFile string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations, then an optional SQL file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// bootstrap applies embedded migrations while opening the database
		deps, err := bootstrap(true)
		if err != nil {
			return err
		}
		defer deps.close()

		if sqlFile != "" {
			if err := deps.db.ExecuteSQLFile(sqlFile); err != nil {
				return fmt.Errorf("failed to execute %s: %w", sqlFile, err)
			}
			deps.logger.Info("executed SQL file %s", sqlFile)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database is up to date (driver=%s)\n", deps.db.Dialect())
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&sqlFile, "sql", "", "Extra SQL file to execute after migrating")
}
