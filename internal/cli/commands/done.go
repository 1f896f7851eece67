package commands

import (
	"github.com/spf13/cobra"

	"github.com/mistakeknot/milgrim/internal/config"
	"github.com/mistakeknot/milgrim/internal/store"
)

func DoneCmd() *cobra.Command {
	var undone bool
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task complete",
		Args:  cobra.ExactArgs(1),
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
			return st.ToggleComplete(cmd.Context(), store.Query{Owner: cfg.Store.Owner}, args[0], !undone)
		},
	}
	cmd.Flags().BoolVar(&undone, "undone", false, "Mark incomplete instead")
	return cmd
}
