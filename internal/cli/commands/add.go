package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/milgrim/internal/config"
	"github.com/mistakeknot/milgrim/internal/store"
	"github.com/mistakeknot/milgrim/internal/task"
)

var dueFormats = []string{
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
}

func parseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range dueFormats {
		if t, err := time.ParseInLocation(format, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline %q", s)
}

func AddCmd() *cobra.Command {
	var due, priority, category, description string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			deadline, err := parseDue(due)
			if err != nil {
				return err
			}
			prio, err := task.ParsePriority(priority)
			if err != nil {
				return err
			}
			p := task.Payload{
				Title:       args[0],
				Description: description,
				Deadline:    deadline,
				Priority:    prio,
				Category:    category,
			}
			if err := p.Validate(); err != nil {
				return err
			}
			st, closeStore, err := OpenStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			id, err := st.Create(cmd.Context(), store.Query{Owner: cfg.Store.Owner}, p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "Deadline (2006-01-02 or 2006-01-02 15:04)")
	cmd.Flags().StringVar(&priority, "priority", "medium", "Priority (low|medium|high)")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&description, "desc", "", "Description")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}
