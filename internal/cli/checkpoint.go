package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"threatsync-daemon/internal/syncer"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or reset per-collaboration sync progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		state := syncer.NewState(cfg.State.Path)
		if err := state.Load(); err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}

		checkpoints := state.Checkpoints()
		if len(checkpoints) == 0 {
			fmt.Println("No checkpoints recorded")
			return nil
		}

		names := make([]string, 0, len(checkpoints))
		for name := range checkpoints {
			names = append(names, name)
		}
		sort.Strings(names)

		stale := color.New(color.FgRed, color.Bold)
		for _, name := range names {
			cp := checkpoints[name]
			fetched := time.Unix(cp.LastFetchTime, 0).Format(time.RFC3339)
			fmt.Printf("%-30s watermark=%d last_fetch=%s", name, cp.ProgressTimestamp(), fetched)
			if cp.IsStale() {
				fmt.Printf(" %s", stale.Sprint("STALE"))
			}
			fmt.Println()
		}
		return nil
	},
}

var checkpointResetCmd = &cobra.Command{
	Use:   "reset [collab]",
	Short: "Forget a collaboration's progress, forcing a full refetch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state := syncer.NewState(cfg.State.Path)
		if err := state.Load(); err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}

		name := args[0]
		if state.Checkpoint(name) == nil {
			return fmt.Errorf("no checkpoint recorded for %q", name)
		}
		state.ClearCheckpoint(name)
		if err := state.Save(); err != nil {
			return fmt.Errorf("failed to save state: %w", err)
		}

		fmt.Printf("Checkpoint for %s cleared; next sync will refetch from scratch\n", name)
		return nil
	},
}

func init() {
	checkpointCmd.AddCommand(checkpointResetCmd)
}
