package cmd

import (
	"context"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"salaryestimator/db"
	"salaryestimator/ml"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the most recent estimates from the audit log",
	Run: func(cmd *cobra.Command, _ []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		history(cmd.Context(), limit)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "number of estimates to show")
}

func history(ctx context.Context, limit int) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger := setup(nil)
	defer logger.Sync()

	if cfg.Database.Path == "" {
		logger.Fatal("the audit log is disabled", zap.String("hint", "set database.path or SALARY_DATABASE_PATH"))
	}

	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("opening the audit log", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer store.Close()

	events, err := store.Recent(ctx, limit)
	if err != nil {
		logger.Fatal("reading the audit log", zap.Error(err))
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		logger.Fatal("counting the audit log", zap.Error(err))
	}

	data := pterm.TableData{{"When", "Source", "Model", "Status", "Amount", "Took"}}
	for _, e := range events {
		amount := e.ErrorKind
		if e.Status == db.StatusOK {
			amount = ml.FormatAmount(e.Amount)
		}
		data = append(data, []string{
			humanize.Time(e.CreatedAt),
			e.Source,
			e.ModelVersion,
			e.Status,
			amount,
			e.Duration.String(),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Info.Printfln("%s ok, %s failed",
		humanize.Comma(counts[db.StatusOK]), humanize.Comma(counts[db.StatusError]))

	if len(events) == limit {
		pterm.Info.Println("showing the newest " + strconv.Itoa(limit) + " estimates")
	}
}
