package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent generation runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to show")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := store.New(db).Runs.List(cmd.Context(), nil, runsLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	fmt.Printf("%-12s %-15s %-8s %-17s %s\n", "WEEK", "STATUS", "CREATED", "FINISHED", "RUN ID")
	for _, run := range runs {
		fmt.Printf("%-12s %-15s %-8d %-17s %s\n",
			pm.FormatDate(run.WeekStart),
			run.Status,
			run.CreatedCount,
			run.FinishedAt.Format("2006-01-02 15:04"),
			run.ID,
		)
	}
	return nil
}
