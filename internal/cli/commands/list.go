package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/milgrim/internal/config"
	"github.com/mistakeknot/milgrim/internal/view"
)

func ListCmd() *cobra.Command {
	var status, category, sortMode string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			st, closeStore, err := OpenStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			snap, err := firstSnapshot(cmd.Context(), st, cfg.Store.Owner)
			if err != nil {
				return err
			}

			filter := view.Filter{Status: view.Status(status), Category: category}
			if !filter.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			mode := view.SortMode(sortMode)
			if !mode.Valid() {
				return fmt.Errorf("unknown sort mode %q", sortMode)
			}

			v := view.Derive(snap, filter, mode, time.Now())
			for _, t := range v.Ordered {
				check := " "
				if t.Completed {
					check = "x"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s  %-8s %s  %s\n",
					check, t.Deadline.Format("2006-01-02 15:04"), t.Priority, t.ID, t.Title)
			}
			s := v.Stats
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d done (%d%%), %d overdue\n",
				s.Completed, s.Total, s.CompletionRatePercent, s.OverdueCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "Filter by status (all|completed|incomplete)")
	cmd.Flags().StringVar(&category, "category", "all", "Filter by category")
	cmd.Flags().StringVar(&sortMode, "sort", "deadline", "Sort mode (deadline|priority|title|category)")
	return cmd
}
