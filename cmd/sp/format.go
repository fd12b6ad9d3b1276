package main

import (
	"fmt"
	"io"
	"time"

	"github.com/hako/durafmt"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// durationDisplayUnits limits human durations to the two largest units.
const durationDisplayUnits = 2

// humanDuration renders seconds as "1 hour 55 minutes".
func humanDuration(seconds int) string {
	if seconds <= 0 {
		return "0 seconds"
	}
	return durafmt.Parse(time.Duration(seconds) * time.Second).LimitFirstN(durationDisplayUnits).String()
}

// clockString renders seconds as m:ss, or h:mm:ss from one hour up.
func clockString(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds/60)%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// newTable returns a light-bordered table writing to w.
func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	t := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleLight),
		})),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
	)
	t.Header(headers)
	return t
}
