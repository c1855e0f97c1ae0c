package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newPageCmd(a *app) *cobra.Command {
	var (
		loc  string
		view bool
	)

	cmd := &cobra.Command{
		Use:   "page <id>",
		Short: "Load one page and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pd, err := a.agg.LoadPage(cmd.Context(), args[0], loc)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if !view {
				return enc.Encode(pd)
			}

			cfg := a.agg.Registry().PageOrDefault(args[0])
			pv, err := a.normalizer.Page(pd.Resource(cfg.Resources[0]))
			if err != nil {
				return err
			}
			return enc.Encode(pv)
		},
	}
	cmd.Flags().StringVarP(&loc, "locale", "l", "", "locale tag (default locale when empty)")
	cmd.Flags().BoolVar(&view, "view", false, "print the normalized page view instead of raw resources")
	return cmd
}
