package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfvision/shelfscan/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var historyPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if historyPath == "" {
				historyPath = os.Getenv("SHELFSCAN_HISTORY_DB")
			}
			if historyPath == "" {
				return fmt.Errorf("no history database given (--history or SHELFSCAN_HISTORY_DB)")
			}

			store, err := history.Open(historyPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No archived runs.")
				return nil
			}

			for _, run := range runs {
				fmt.Printf("[%d] %s  image=%s target=%q records=%d pairs=%d matched=%d\n",
					run.ID, run.StartedAt.Format("2006-01-02 15:04:05"),
					run.ImagePath, run.TargetProduct,
					run.RecordCount, run.PairCount, run.MatchedCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&historyPath, "history", "", "SQLite run history database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	return cmd
}
