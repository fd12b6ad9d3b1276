package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/daviddao/sprout/pkg/clock"
	"github.com/daviddao/sprout/pkg/model"
	"github.com/daviddao/sprout/pkg/progress"
	"github.com/daviddao/sprout/pkg/schedule"
	"github.com/daviddao/sprout/pkg/timer"
)

func (a *app) cmdRun(args []string) int {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	preset := flags.String("preset", "", "preset name (default: timer.default_preset)")
	minutes := flags.Int("minutes", 0, "free-form focus block in minutes (no breaks)")
	plant := flags.String("plant", "", "plant to grow (default: SPROUT_PLANT or config)")
	tick := flags.Duration("tick", 0, "clock period for one engine second (default: timer.tick_interval)")
	jsonOut := flags.Bool("json", false, "JSON output (one object per line)")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	cfg, err := a.resolveConfiguration(*preset, visitedInt(flags, "minutes", minutes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: run: %v\n", err)
		return exitError
	}
	interval := a.cfg.Timer.TickInterval
	if *tick > 0 {
		interval = *tick
	}

	tracker := progress.NewTracker(a.store, a.resolvePlant(*plant))
	rep := newRunReporter(os.Stdout, *jsonOut, !*jsonOut && term.IsTerminal(int(os.Stdout.Fd())))
	tracker.OnResult = rep.result

	queue := &timer.Queue{}
	eng := timer.New(cfg, queue, timer.Options{NotifyMinFocusMinutes: a.cfg.Timer.NotifyMinFocusMinutes})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	log.Debug().Str("plant", tracker.Plant()).Str("session", tracker.SessionID()).
		Dur("tick", interval).Msg("session starting")

	out := runSession(eng, queue, tracker, clock.NewTicker(interval), sig, rep)
	if out.Aborted {
		return exitAborted
	}
	return exitOK
}

// sessionOutcome summarizes a finished run.
type sessionOutcome struct {
	Plant          string `json:"plant"`
	SessionID      string `json:"session_id"`
	Completed      int    `json:"completed_blocks"`
	Aborted        bool   `json:"aborted"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	TotalSeconds   int    `json:"total_seconds"`
}

// runSession drives eng from src until the session ends or a stop signal
// arrives. Each tick is forwarded to the engine and queued notices are
// flushed into the tracker after the engine call returns. On a stop
// signal the engine is aborted and the clock stopped in the same step.
func runSession(eng *timer.Engine, queue *timer.Queue, tracker *progress.Tracker,
	src clock.Source, stop <-chan os.Signal, rep *runReporter) sessionOutcome {

	out := sessionOutcome{Plant: tracker.Plant(), SessionID: tracker.SessionID()}
	cfg := eng.Config()
	rep.begin(cfg, eng.State(), tracker.Plant())

	eng.Start()
	for {
		select {
		case s := <-stop:
			before := eng.State()
			eng.Abort()
			src.Stop()
			queue.Flush(tracker)
			log.Debug().Str("signal", s.String()).Msg("session aborted")
			out.Aborted = true
			out.ElapsedSeconds = before.SessionElapsedSeconds
			out.TotalSeconds = before.SessionTotalSeconds
			rep.end(out)
			return out

		case <-src.C():
			before := eng.State()
			eng.Tick()
			after := eng.State()
			queue.Flush(tracker)
			// A running focus block always has at least one second left,
			// so the last second is the one that completes it.
			if before.Phase == model.PhaseFocus && before.RemainingSeconds <= 1 {
				out.Completed++
			}
			if !eng.Running() {
				src.Stop()
				out.ElapsedSeconds = after.SessionElapsedSeconds
				out.TotalSeconds = after.SessionTotalSeconds
				rep.end(out)
				return out
			}
			if before.Phase != after.Phase || before.Break != after.Break {
				rep.phase(cfg, after)
			}
			rep.tick(after, eng.SessionProgress())
		}
	}
}

// runReporter prints session progress. In live mode a single status line
// is redrawn every tick; otherwise only transitions are printed. JSON mode
// writes one object per line.
type runReporter struct {
	w    io.Writer
	json bool
	live bool
}

func newRunReporter(w io.Writer, jsonOut, live bool) *runReporter {
	return &runReporter{w: w, json: jsonOut, live: live}
}

type runEvent struct {
	Event   string               `json:"event"`
	State   *timer.State         `json:"state,omitempty"`
	Config  *model.Configuration `json:"config,omitempty"`
	Result  *progress.Result     `json:"result,omitempty"`
	Outcome *sessionOutcome      `json:"outcome,omitempty"`
}

func (r *runReporter) emit(e runEvent) {
	b, _ := json.Marshal(e)
	fmt.Fprintln(r.w, string(b))
}

func (r *runReporter) clearLine() {
	if r.live {
		fmt.Fprint(r.w, "\r\033[K")
	}
}

func (r *runReporter) begin(cfg model.Configuration, st timer.State, plant string) {
	if r.json {
		c := cfg.Normalized()
		r.emit(runEvent{Event: "start", Config: &c, State: &st})
		return
	}
	blocks := cfg.Blocks()
	if !cfg.BreaksEnabled {
		blocks = 1
	}
	fmt.Fprintf(r.w, "growing %s: %s, %d focus block(s), %s total (ctrl-c to abort)\n",
		plant, configLabel(cfg), blocks, humanDuration(schedule.PlannedSeconds(cfg)))
	r.phase(cfg, st)
}

func (r *runReporter) phase(cfg model.Configuration, st timer.State) {
	if r.json {
		r.emit(runEvent{Event: "phase", State: &st})
		return
	}
	r.clearLine()
	switch st.Phase {
	case model.PhaseFocus:
		total := cfg.Blocks()
		if !cfg.BreaksEnabled {
			total = 1
		}
		fmt.Fprintf(r.w, "focus %d/%d: %s\n", st.CompletedFocusBlocks+1, total, humanDuration(st.BlockTotalSeconds))
	case model.PhaseBreak:
		fmt.Fprintf(r.w, "%s break: %s\n", st.Break, humanDuration(st.BlockTotalSeconds))
	}
}

// tick redraws the live line. session is the engine's session progress.
func (r *runReporter) tick(st timer.State, session float64) {
	if !r.live {
		return
	}
	fmt.Fprintf(r.w, "\r\033[K  %s %s left  session %3.0f%%",
		st.Phase, clockString(st.RemainingSeconds), 100*session)
}

func (r *runReporter) result(res progress.Result) {
	if r.json {
		r.emit(runEvent{Event: "block", Result: &res})
		return
	}
	r.clearLine()
	switch res.Event.Kind {
	case model.BlockCompleted:
		fmt.Fprintf(r.w, "  block %d done. %s is a %s (%d pomodoros, streak %d)\n",
			res.Event.BlockIndex, res.Plant.Name, progress.StageFor(res.Plant.Pomodoros),
			res.Plant.Pomodoros, res.Plant.Streak)
	case model.BlockAborted:
		fmt.Fprintf(r.w, "  block %d aborted after %s. streak reset\n",
			res.Event.BlockIndex, humanDuration(res.Event.SpentSeconds))
	}
	for _, ach := range res.Unlocked {
		fmt.Fprintf(r.w, "  achievement unlocked: %s\n", ach.Title)
	}
}

func (r *runReporter) end(out sessionOutcome) {
	if r.json {
		r.emit(runEvent{Event: "end", Outcome: &out})
		return
	}
	r.clearLine()
	if out.Aborted {
		fmt.Fprintf(r.w, "session aborted after %s\n", humanDuration(out.ElapsedSeconds))
		return
	}
	fmt.Fprintf(r.w, "session complete: %d focus block(s) in %s\n",
		out.Completed, humanDuration(out.ElapsedSeconds))
}
