package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/daviddao/sprout/pkg/model"
	"github.com/daviddao/sprout/pkg/schedule"
)

func (a *app) cmdPlan(args []string) int {
	flags := flag.NewFlagSet("plan", flag.ContinueOnError)
	preset := flags.String("preset", "", "preset name (default: timer.default_preset)")
	minutes := flags.Int("minutes", 0, "free-form focus block in minutes (no breaks)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	cfg, err := a.resolveConfiguration(*preset, visitedInt(flags, "minutes", minutes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: plan: %v\n", err)
		return exitError
	}
	plan := schedule.Plan(cfg)
	total := schedule.TotalSeconds(cfg)
	planned := schedule.PlannedSeconds(cfg)
	shorts, longs := schedule.Gaps(cfg)

	if *jsonOut {
		printJSON(map[string]interface{}{
			"config":          cfg.Normalized(),
			"blocks":          plan,
			"short_breaks":    shorts,
			"long_breaks":     longs,
			"total_seconds":   total,
			"planned_seconds": planned,
		})
		return exitOK
	}

	fmt.Printf("%s: %d focus block(s), %d short and %d long break(s)\n",
		configLabel(cfg), len(plan)-shorts-longs, shorts, longs)
	if err := renderPlanTable(os.Stdout, plan); err != nil {
		fmt.Fprintf(os.Stderr, "sp: plan: %v\n", err)
		return exitError
	}
	fmt.Printf("total: %s\n", humanDuration(planned))
	if planned != total {
		fmt.Printf("  (session progress counts %d blocks: %s)\n", cfg.Blocks(), humanDuration(total))
	}
	return exitOK
}

func renderPlanTable(w io.Writer, plan []schedule.Block) error {
	t := newTable(w, "#", "Block", "Starts", "Length")
	for i, b := range plan {
		label := fmt.Sprintf("focus %d", b.Focus)
		if b.Phase == model.PhaseBreak {
			label = string(b.Break) + " break"
		}
		if err := t.Append([]string{
			strconv.Itoa(i + 1),
			label,
			"+" + clockString(b.Offset),
			humanDuration(b.Seconds),
		}); err != nil {
			return err
		}
	}
	return t.Render()
}

// configLabel names a configuration for display.
func configLabel(cfg model.Configuration) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return fmt.Sprintf("%d-minute focus", cfg.Normalized().FocusMinutes)
}
