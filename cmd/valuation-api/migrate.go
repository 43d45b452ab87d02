package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/vehicle-valuation/repositories/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the valuation tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.NewDB(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.InitSchema(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.Database.LogString())
			return nil
		},
	}
}
