package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantops/pmsched/internal/completion"
	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

var (
	compEquipment  string
	compCategory   string
	compTechnician string
	compDate       string
	compMinutes    int
	compNotes      string
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Record performed maintenance",
	Long: `Record a completed PM task. The equipment's cycle dates advance to
the completion date plus the category interval, and the oldest matching
scheduled entry for that week is closed.

  pmsched complete --equipment BFM-0042 --category Monthly --technician "A. Mason"`,
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().StringVar(&compEquipment, "equipment", "", "Equipment number")
	completeCmd.Flags().StringVar(&compCategory, "category", "", "Maintenance category (Monthly, SixMonth, Annual)")
	completeCmd.Flags().StringVar(&compTechnician, "technician", "", "Technician who performed the work")
	completeCmd.Flags().StringVar(&compDate, "date", "", "Completion date (YYYY-MM-DD, default today)")
	completeCmd.Flags().IntVar(&compMinutes, "minutes", 0, "Labor minutes spent")
	completeCmd.Flags().StringVar(&compNotes, "notes", "", "Free-form notes")

	_ = completeCmd.MarkFlagRequired("equipment")
	_ = completeCmd.MarkFlagRequired("category")
	_ = completeCmd.MarkFlagRequired("technician")

	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in := completion.Input{
		Equipment:    compEquipment,
		Category:     compCategory,
		Technician:   compTechnician,
		LaborMinutes: compMinutes,
		Notes:        compNotes,
	}
	if compDate != "" {
		day, err := pm.ParseDate(compDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		in.CompletedOn = day
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := completion.NewService(db, store.New(db))

	rec, err := svc.Record(cmd.Context(), in)
	if err != nil {
		return err
	}

	c := rec.Completion
	fmt.Printf("✓ Recorded %s PM for %s by %s on %s\n",
		c.Category, c.Equipment, c.Technician, pm.FormatDate(c.CompletedOn))
	fmt.Printf("  Next due: %s\n", pm.FormatDate(rec.NextDue))
	if rec.EntryClosed {
		fmt.Printf("  Closed the matching scheduled entry\n")
	}
	return nil
}
