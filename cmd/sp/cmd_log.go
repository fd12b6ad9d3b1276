package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/daviddao/sprout/pkg/model"
)

func (a *app) cmdLog(args []string) int {
	flags := flag.NewFlagSet("log", flag.ContinueOnError)
	plant := flags.String("plant", "", "filter by plant (default: all plants)")
	kind := flags.String("kind", "", "filter by outcome: completed or aborted")
	limit := flags.Int("limit", 50, "max events to return")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	k := model.BlockEventKind(*kind)
	if k != "" && k != model.BlockCompleted && k != model.BlockAborted {
		fmt.Fprintf(os.Stderr, "sp: log: unknown kind %q (want completed or aborted)\n", *kind)
		return exitError
	}

	events, err := a.store.ListBlockEvents(*plant, k, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: log: %v\n", err)
		return exitError
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"events": events, "count": len(events)})
		return exitOK
	}
	if len(events) == 0 {
		fmt.Println("no focus blocks yet")
		return exitOK
	}
	now := time.Now()
	for _, e := range events {
		printBlockEvent(e, now)
	}
	return exitOK
}

// printBlockEvent prints one log line. now anchors the relative time.
func printBlockEvent(e model.BlockEvent, now time.Time) {
	label := e.Preset
	if label == "" {
		label = "free-form"
	}
	session := e.SessionID
	if len(session) > 8 {
		session = session[:8]
	}
	switch e.Kind {
	case model.BlockCompleted:
		fmt.Printf("[%s] %s completed block %d/%d (%s) %s session=%s\n",
			humanize.RelTime(e.CreatedAt, now, "ago", "from now"), e.Plant,
			e.BlockIndex, e.TotalBlocks, label, clockString(e.SpentSeconds), session)
	case model.BlockAborted:
		fmt.Printf("[%s] %s aborted block %d/%d (%s) after %s of %s session=%s\n",
			humanize.RelTime(e.CreatedAt, now, "ago", "from now"), e.Plant,
			e.BlockIndex, e.TotalBlocks, label, clockString(e.SpentSeconds),
			clockString(e.PlannedSeconds), session)
	default:
		fmt.Printf("[%s] %s %s block %d\n",
			humanize.RelTime(e.CreatedAt, now, "ago", "from now"), e.Plant, e.Kind, e.BlockIndex)
	}
}
