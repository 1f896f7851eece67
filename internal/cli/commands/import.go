package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mistakeknot/milgrim/internal/config"
	"github.com/mistakeknot/milgrim/internal/store"
	"github.com/mistakeknot/milgrim/internal/task"
)

func ImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Load tasks from a YAML dump",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var doc exportDoc
			if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
				return fmt.Errorf("parse dump: %w", err)
			}

			st, closeStore, err := OpenStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			q := store.Query{Owner: cfg.Store.Owner}

			imported := 0
			for _, et := range doc.Tasks {
				prio, err := task.ParsePriority(et.Priority)
				if err != nil {
					return fmt.Errorf("task %q: %w", et.Title, err)
				}
				p := task.Payload{
					Title:       et.Title,
					Description: et.Description,
					Deadline:    et.Deadline,
					Priority:    prio,
					Category:    et.Category,
				}
				if err := p.Validate(); err != nil {
					return fmt.Errorf("task %q: %w", et.Title, err)
				}
				id, err := st.Create(cmd.Context(), q, p)
				if err != nil {
					return fmt.Errorf("task %q: %w", et.Title, err)
				}
				if et.Completed {
					if err := st.ToggleComplete(cmd.Context(), q, id, true); err != nil {
						return fmt.Errorf("task %q: %w", et.Title, err)
					}
				}
				imported++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tasks\n", imported)
			return nil
		},
	}
	return cmd
}
