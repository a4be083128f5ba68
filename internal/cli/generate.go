package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantops/pmsched/internal/archive"
	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/engine"
	"github.com/plantops/pmsched/internal/plan"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/priority"
	"github.com/plantops/pmsched/internal/store"
)

var (
	genWeek        string
	genTarget      int
	genExclude     []string
	genPlanFile    string
	genDryRun      bool
	genPriorityDir string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one week's schedule",
	Long: `Evaluate every piece of equipment against its maintenance cycles,
rank the candidates, assign them across the active roster, and commit the
week in one transaction. Any supplied date is normalized back to its week's
Monday; without --week the run targets the coming week.

A plan file stages the same inputs as YAML; flags given on the command line
win over plan values:

  pmsched generate --plan week-36.yaml --dry-run`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genWeek, "week", "", "Target week (any date inside it, YYYY-MM-DD)")
	generateCmd.Flags().IntVar(&genTarget, "target", 0, "Weekly entry target (overrides config)")
	generateCmd.Flags().StringArrayVar(&genExclude, "exclude", nil, "Technician to exclude (repeatable)")
	generateCmd.Flags().StringVar(&genPlanFile, "plan", "", "Plan file with week, target, and exclusions")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "Evaluate and assign without committing")
	generateCmd.Flags().StringVar(&genPriorityDir, "priority-dir", "", "Priority list directory (overrides config)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var req engine.Request
	if genPlanFile != "" {
		p, err := plan.Read(genPlanFile)
		if err != nil {
			return err
		}
		week, err := p.WeekStart()
		if err != nil {
			return err
		}
		req.Week = week
		req.WeeklyTarget = p.WeeklyTarget
		req.Exclusions = p.Exclusions
		req.DryRun = p.DryRun
	}

	if cmd.Flags().Changed("week") {
		day, err := pm.ParseDate(genWeek)
		if err != nil {
			return fmt.Errorf("invalid --week: %w", err)
		}
		req.Week = pm.WeekStart(day)
	}
	if req.Week.IsZero() {
		req.Week = pm.WeekStart(time.Now().UTC()).AddDate(0, 0, 7)
		log.Info().Str("week", pm.FormatDate(req.Week)).Msg("No week given, targeting the coming week")
	}
	if cmd.Flags().Changed("target") {
		req.WeeklyTarget = genTarget
	}
	if cmd.Flags().Changed("exclude") {
		req.Exclusions = genExclude
	}
	if cmd.Flags().Changed("dry-run") {
		req.DryRun = genDryRun
	}

	if genPriorityDir != "" {
		cfg.Priority.Dir = genPriorityDir
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	stores := store.New(db)

	var opts []engine.Option
	if cfg.Priority.Dir != "" {
		lists, err := priority.Load(cfg.Priority.Dir, cfg.Priority.Pattern)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.Priority.Dir).Msg("Priority lists unavailable, using default tier")
		} else {
			opts = append(opts, engine.WithTierSource(engine.StaticTiers(lists.Tiers)))
		}
	}
	if len(cfg.Filters.Expressions) > 0 {
		filters, err := pm.CompileFilters(cfg.Filters.Expressions)
		if err != nil {
			return err
		}
		opts = append(opts, engine.WithFilters(filters))
	}
	if cfg.Archive.Enabled {
		archiver, err := archive.NewArchiver(context.Background(), &cfg.Archive)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create archiver, snapshots disabled")
		} else {
			opts = append(opts, engine.WithHooks(archiver))
		}
	}

	eng := engine.New(stores, cfg.Scheduling, opts...)

	result, err := eng.Generate(cmd.Context(), req)
	if err != nil {
		return err
	}

	printResult(result)

	if result.Status != store.RunCompleted {
		return fmt.Errorf("run finished with status %s", result.Status)
	}
	return nil
}

func printResult(result *engine.Result) {
	switch {
	case result.Status != store.RunCompleted:
		fmt.Printf("Run for week %s finished with status %s\n", pm.FormatDate(result.Week), result.Status)
	case result.DryRun:
		fmt.Printf("✓ Dry run for week %s\n", pm.FormatDate(result.Week))
	default:
		fmt.Printf("✓ Schedule generated for week %s\n", pm.FormatDate(result.Week))
	}

	fmt.Printf("\n  Candidates: %d\n", result.Summary.Candidates)
	fmt.Printf("  Created:    %d\n", result.Created)
	if len(result.Summary.Excluded) > 0 {
		fmt.Printf("  Excluded:   %s\n", strings.Join(result.Summary.Excluded, ", "))
	}
	if result.RunID != "" {
		fmt.Printf("  Run:        %s\n", result.RunID)
	}

	if len(result.Summary.PerTechnician) > 0 {
		fmt.Printf("\n  %-24s %s\n", "TECHNICIAN", "ENTRIES")
		names := make([]string, 0, len(result.Summary.PerTechnician))
		for name := range result.Summary.PerTechnician {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-24s %d\n", name, result.Summary.PerTechnician[name])
		}
	}

	if len(result.Summary.Skipped) > 0 {
		fmt.Printf("\n  %-24s %s\n", "SKIPPED", "COUNT")
		reasons := make([]string, 0, len(result.Summary.Skipped))
		for reason := range result.Summary.Skipped {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Printf("  %-24s %d\n", reason, result.Summary.Skipped[pm.ReasonCode(reason)])
		}
	}

	if n := len(result.Summary.Overflow); n > 0 {
		fmt.Printf("\n  %d eligible candidates did not fit under the weekly target\n", n)
	}
}
