package commands

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mistakeknot/milgrim/internal/config"
	"github.com/mistakeknot/milgrim/internal/task"
)

// exportDoc is the YAML dump format shared by export and import.
type exportDoc struct {
	Tasks []exportTask `yaml:"tasks"`
}

type exportTask struct {
	ID          string    `yaml:"id,omitempty"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Deadline    time.Time `yaml:"deadline"`
	Priority    string    `yaml:"priority"`
	Completed   bool      `yaml:"completed,omitempty"`
	Category    string    `yaml:"category,omitempty"`
	CreatedAt   time.Time `yaml:"created_at,omitempty"`
}

func toExportTask(t task.Task) exportTask {
	return exportTask{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Deadline:    t.Deadline,
		Priority:    string(t.Priority),
		Completed:   t.Completed,
		Category:    t.Category,
		CreatedAt:   t.CreatedAt,
	}
}

func ExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the task collection as YAML",
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
			doc := exportDoc{Tasks: make([]exportTask, 0, len(snap))}
			for _, t := range snap {
				doc.Tasks = append(doc.Tasks, toExportTask(t))
			}
			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := yaml.NewEncoder(w)
			defer enc.Close()
			return enc.Encode(doc)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to file instead of stdout")
	return cmd
}
