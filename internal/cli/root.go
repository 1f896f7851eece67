package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mistakeknot/milgrim/internal/cli/commands"
	"github.com/mistakeknot/milgrim/internal/config"
	"github.com/mistakeknot/milgrim/internal/reconcile"
	"github.com/mistakeknot/milgrim/internal/store"
	"github.com/mistakeknot/milgrim/internal/suggest"
	"github.com/mistakeknot/milgrim/internal/tui"
	"github.com/mistakeknot/milgrim/internal/view"
)

func Execute() error {
	return NewRoot().Execute()
}

var runTUI = func(session *reconcile.Session, suggester suggest.Suggester) error {
	m := tui.NewModel(session, suggester)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "milgrim",
		Short: "Synced task manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			st, closeStore, err := commands.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			session := reconcile.NewSession(st, nil)
			applyViewConfig(session, cfg.View)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := session.Start(ctx, store.Query{Owner: cfg.Store.Owner}); err != nil {
				return err
			}

			var suggester suggest.Suggester
			if cfg.Suggest.Command != "" {
				cs := suggest.NewCommandSuggester(cfg.Suggest.Command)
				if cfg.Suggest.TimeoutSeconds > 0 {
					cs.Timeout = time.Duration(cfg.Suggest.TimeoutSeconds) * time.Second
				}
				suggester = cs
			}
			return runTUI(session, suggester)
		},
	}
	root.AddCommand(
		commands.ServeCmd(),
		commands.ListCmd(),
		commands.AddCmd(),
		commands.DoneCmd(),
		commands.RmCmd(),
		commands.ExportCmd(),
		commands.ImportCmd(),
		commands.ConfigCmd(),
	)
	return root
}

// applyViewConfig seeds the session with the configured filter and sort,
// ignoring values a newer or older build does not know.
func applyViewConfig(session *reconcile.Session, vc config.ViewConfig) {
	f := view.DefaultFilter()
	if s := view.Status(vc.Status); s.Valid() {
		f.Status = s
	}
	if vc.Category != "" {
		f.Category = vc.Category
	}
	session.SetFilter(f)
	if m := view.SortMode(vc.Sort); m.Valid() {
		session.SetSort(m)
	}
}
