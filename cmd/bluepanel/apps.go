package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chess10kp/bluepanel/internal/apps"
	"github.com/chess10kp/bluepanel/internal/history"
)

func newAppsCmd(root *rootOptions) *cobra.Command {
	var (
		query     string
		asJSON    bool
		favorites bool
	)

	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Print installed applications with their usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			loader, err := apps.NewLoader(cfg, apps.NewIconResolver(cfg))
			if err != nil {
				return err
			}

			tracker := history.NewTracker(history.NewStore(cfg.History.Path), loader, cfg.History.QueueSize)
			var entries []apps.Entry
			if favorites {
				entries = tracker.Favorites()
			} else {
				entries = tracker.List()
			}
			entries = apps.Search(entries, query)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "    ")
				return enc.Encode(entries)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLAUNCHES\tFAVORITE\tEXEC")
			for _, e := range entries {
				fav := ""
				if e.IsFavorite {
					fav = "*"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.Name, e.LaunchCount, fav, e.Exec)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "fuzzy filter on application names")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the same JSON GET /apps returns")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favorites")
	return cmd
}
