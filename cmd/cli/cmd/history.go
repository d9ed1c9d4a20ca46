// Package cmd - history commands
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pipeline-cost/adapters/storage"
	"pipeline-cost/core/output"
	"pipeline-cost/core/types"
	"pipeline-cost/core/ui"
	"pipeline-cost/internal/config"
)

var (
	historyLimit  int
	historyFormat string
)

// historyCmd inspects saved reports
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved cost reports",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		reports, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		w := ui.ForWriter(cmd.OutOrStdout())
		if len(reports) == 0 {
			w.Println("No saved reports.")
			return nil
		}
		tbl := w.NewTable("ID", "GENERATED", "BACKEND", "RECORDS", "TOTAL").AlignRight(3, 4)
		partial := false
		for _, r := range reports {
			total := r.Total.StringFixed(4) + " " + string(r.Currency)
			if r.Partial {
				total += " *"
				partial = true
			}
			tbl.AddRow(r.ID, r.GeneratedAt.Format("2006-01-02 15:04:05"), truncate(r.Backend, 28),
				fmt.Sprint(r.RecordCount), total)
		}
		tbl.Render()
		if partial {
			w.Println("\n* partial report")
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(historyFormat)
		if err != nil {
			return err
		}
		formatter, err := output.For(format)
		if err != nil {
			return err
		}

		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := loadStoredReport(cmd, store, args[0])
		if err != nil {
			return err
		}
		return formatter.Render(cmd.OutOrStdout(), report)
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum reports to list (0 for all)")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "table", "output format (csv, json, table)")
}

func openHistory(cmd *cobra.Command) (storage.Store, error) {
	sc := config.Get().Storage
	return storage.Open(cmd.Context(), storage.Driver(sc.Driver), sc.DSN)
}

func loadStoredReport(cmd *cobra.Command, store storage.Store, id string) (*types.Report, error) {
	header, err := store.Get(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	records, err := store.Records(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	return &types.Report{
		ID:          header.ID,
		Backend:     header.Backend,
		Window:      header.Window,
		Currency:    header.Currency,
		GeneratedAt: header.GeneratedAt,
		Records:     records,
		Partial:     header.Partial,
		Stats:       header.Stats,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
