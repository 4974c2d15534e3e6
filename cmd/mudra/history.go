package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		limit int
		stats bool
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently announced gestures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if prune > 0 {
				n, err := st.Events().DeleteBefore(time.Now().Add(-prune))
				if err != nil {
					return fmt.Errorf("prune history: %w", err)
				}
				fmt.Fprintf(w, "Removed %d events older than %s\n", n, prune)
				return nil
			}

			if stats {
				counts, err := st.Events().CountByLabel()
				if err != nil {
					return fmt.Errorf("count events: %w", err)
				}
				fmt.Fprintln(w, "GESTURE\tCOUNT")
				for _, count := range counts {
					fmt.Fprintf(w, "%s\t%d\n", count.Display, count.Count)
				}
				return nil
			}

			events, err := st.Events().List(limit)
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			if len(events) == 0 {
				fmt.Fprintln(w, "No gestures recorded yet.")
				return nil
			}

			fmt.Fprintln(w, "TIME\tGESTURE\tSTREAM\tREPEAT")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Display, e.StreamID, e.Repeat)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	cmd.Flags().BoolVar(&stats, "stats", false, "show counts per gesture instead")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete events older than this instead of listing")

	return cmd
}
