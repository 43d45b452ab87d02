package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/vehicle-valuation/app"
)

func newValuateCmd(opts *rootOptions) *cobra.Command {
	var mileage int

	cmd := &cobra.Command{
		Use:   "valuate <vrm>",
		Short: "Resolve a valuation once and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			deps, err := app.NewDependencies(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close(cmd.Context())

			valuation, err := deps.ValuationService.ResolveValuation(cmd.Context(), args[0], mileage)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(valuation.ToResponse())
		},
	}

	cmd.Flags().IntVar(&mileage, "mileage", 0, "Vehicle mileage")
	_ = cmd.MarkFlagRequired("mileage")

	return cmd
}
