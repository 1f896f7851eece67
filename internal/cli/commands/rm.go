package commands

import (
	"github.com/spf13/cobra"

	"github.com/mistakeknot/milgrim/internal/config"
	"github.com/mistakeknot/milgrim/internal/store"
)

func RmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
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
			return st.Delete(cmd.Context(), store.Query{Owner: cfg.Store.Owner}, args[0])
		},
	}
}
