package cli

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle over all enabled collaborations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, st, err := buildManager()
		if err != nil {
			return err
		}
		defer st.Close()

		return manager.SyncOnce(cmd.Context())
	},
}
