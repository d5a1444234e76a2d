package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"threatsync-daemon/internal/store"
)

var (
	signalsCollab string
	signalsType   string
	signalsLimit  int
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Show projected signals from the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		signals, err := st.ListSignals(cmd.Context(), signalsCollab, signalsType, signalsLimit)
		if err != nil {
			return fmt.Errorf("failed to list signals: %w", err)
		}

		if len(signals) == 0 {
			fmt.Println("No signals found")
			return nil
		}

		header := color.New(color.FgCyan, color.Bold)
		positive := color.New(color.FgRed)
		negative := color.New(color.FgGreen)

		lastGroup := ""
		for _, sig := range signals {
			group := fmt.Sprintf("%s / %s", sig.Collab, sig.SignalType)
			if group != lastGroup {
				if lastGroup != "" {
					fmt.Println()
				}
				header.Println(group)
				lastGroup = group
			}

			var stances []string
			for _, op := range sig.Record.Opinions {
				stance := fmt.Sprintf("%d:%s", op.Owner, op.Category)
				switch op.Category.String() {
				case "positive":
					stance = positive.Sprint(stance)
				case "negative":
					stance = negative.Sprint(stance)
				}
				stances = append(stances, stance)
			}
			fmt.Printf("  %-50s %s\n", sig.Signal, strings.Join(stances, " "))
		}

		fmt.Println()
		printCounts(signals)
		return nil
	},
}

func printCounts(signals []store.Signal) {
	counts := make(map[string]int)
	for _, sig := range signals {
		counts[sig.SignalType]++
	}
	types := make([]string, 0, len(counts))
	for st := range counts {
		types = append(types, st)
	}
	sort.Strings(types)
	for _, st := range types {
		fmt.Printf("%s: %d signal(s)\n", st, counts[st])
	}
}

func init() {
	signalsCmd.Flags().StringVar(&signalsCollab, "collab", "", "Only show signals for this collaboration")
	signalsCmd.Flags().StringVar(&signalsType, "type", "", "Only show signals of this signal type")
	signalsCmd.Flags().IntVar(&signalsLimit, "limit", 0, "Maximum number of signals to show (0 = all)")
}
