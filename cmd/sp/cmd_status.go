package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/daviddao/sprout/pkg/model"
	"github.com/daviddao/sprout/pkg/progress"
)

// plantStatus is a plant's record plus everything derived from it.
type plantStatus struct {
	model.Plant
	Stage        progress.Stage      `json:"stage"`
	NextStage    progress.Stage      `json:"next_stage,omitempty"`
	ToNextStage  int64               `json:"to_next_stage,omitempty"`
	Achievements []model.Achievement `json:"achievements"`
}

func (a *app) plantStatus(name string) (plantStatus, error) {
	p, err := a.store.GetPlant(name)
	if err != nil {
		return plantStatus{}, err
	}
	achievements, err := a.store.ListAchievements(name)
	if err != nil {
		return plantStatus{}, err
	}
	if achievements == nil {
		achievements = []model.Achievement{}
	}
	st := plantStatus{Plant: *p, Stage: progress.StageFor(p.Pomodoros), Achievements: achievements}
	if next, remaining, ok := progress.NextStage(p.Pomodoros); ok {
		st.NextStage, st.ToNextStage = next, remaining
	}
	return st, nil
}

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	plant := flags.String("plant", "", "plant name (default: SPROUT_PLANT or config)")
	all := flags.Bool("all", false, "show every plant")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	names := []string{a.resolvePlant(*plant)}
	if *all {
		plants, err := a.store.ListPlants()
		if err != nil {
			fmt.Fprintf(os.Stderr, "sp: status: %v\n", err)
			return exitError
		}
		names = names[:0]
		for _, p := range plants {
			names = append(names, p.Name)
		}
	}

	statuses := make([]plantStatus, 0, len(names))
	for _, name := range names {
		st, err := a.plantStatus(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sp: status: %v\n", err)
			return exitError
		}
		statuses = append(statuses, st)
	}

	if *jsonOut {
		if *all {
			printJSON(map[string]interface{}{"plants": statuses, "count": len(statuses)})
		} else {
			printJSON(statuses[0])
		}
		return exitOK
	}

	if len(statuses) == 0 {
		fmt.Println("no plants yet. run 'sp run' to plant one")
		return exitOK
	}
	for i, st := range statuses {
		if i > 0 {
			fmt.Println()
		}
		printPlantStatus(st)
	}
	return exitOK
}

func printPlantStatus(st plantStatus) {
	fmt.Printf("%s: %s\n", st.Name, st.Stage)
	fmt.Printf("  pomodoros: %s (aborted %s)\n", humanize.Comma(st.Pomodoros), humanize.Comma(st.Aborted))
	fmt.Printf("  streak:    %d (best %d)\n", st.Streak, st.BestStreak)
	fmt.Printf("  focused:   %s\n", humanDuration(int(st.FocusSeconds)))
	if st.NextStage != "" {
		fmt.Printf("  next:      %s in %d pomodoro(s)\n", st.NextStage, st.ToNextStage)
	}
	if len(st.Achievements) == 0 {
		fmt.Println("  achievements: none yet")
		return
	}
	titles := make([]string, 0, len(st.Achievements))
	for _, ach := range st.Achievements {
		title := ach.ID
		if known, ok := progress.Lookup(ach.ID); ok {
			title = known.Title
		}
		titles = append(titles, title)
	}
	fmt.Printf("  achievements (%d/%d): %s\n", len(titles), len(progress.Achievements()), strings.Join(titles, ", "))
}
