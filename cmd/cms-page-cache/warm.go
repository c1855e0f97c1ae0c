package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newWarmCmd(a *app) *cobra.Command {
	var locales []string

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Load every page once and report the outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()
			results := a.agg.Warm(cmd.Context(), locales)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PAGE\tLOCALE\tSTATUS\tDURATION")
			failed := 0
			for _, r := range results {
				status := "ok"
				switch {
				case r.Error != "":
					status = "failed: " + r.Error
					failed++
				case r.HasErrors:
					status = "degraded"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.PageID, r.Locale, status, r.Duration.Round(time.Millisecond))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s loads, %s failed, started %s\n",
				humanize.Comma(int64(len(results))), humanize.Comma(int64(failed)), humanize.Time(start))
			if failed > 0 {
				return fmt.Errorf("%d page loads failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&locales, "locales", nil, "locales to warm (all supported when empty)")
	return cmd
}
