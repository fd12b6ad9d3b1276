// Package timer implements the focus session engine: a state machine over
// {idle, running} × {focus, break} that alternates focus blocks and breaks,
// counts completed focus blocks, inserts long breaks on the configured
// interval, and tracks both the current block's countdown and the whole
// session's elapsed time.
//
// The engine keeps no wall clock. An external one-second clock calls Tick;
// the engine counts ticks, so it is immune to drift by construction and can
// be stepped by hand in tests.
//
// Every operation is total. Calls made in the wrong state are no-ops, and
// out-of-range configuration values are clamped when they are turned into
// seconds (see model.Configuration).
//
// Note: Engine is not goroutine-safe. Exactly one caller drives it with
// serialized calls; the caller also owns the clock and must stop it in the
// same step that calls Abort or Reset.
package timer

import (
	"github.com/daviddao/sprout/pkg/model"
	"github.com/daviddao/sprout/pkg/schedule"
)

// Options tune notification behavior.
type Options struct {
	// NotifyMinFocusMinutes suppresses completion notices for free-form
	// (breaks disabled) sessions whose focus length is below this many
	// minutes. Zero means always notify.
	NotifyMinFocusMinutes int
}

// State is a snapshot of the engine's runtime data.
type State struct {
	Phase  model.Phase  `json:"phase"`
	Status model.Status `json:"status"`
	// Break is the kind of the current break; empty during focus.
	Break                 model.BreakKind `json:"break,omitempty"`
	RemainingSeconds      int             `json:"remaining_seconds"`
	BlockTotalSeconds     int             `json:"block_total_seconds"`
	CompletedFocusBlocks  int             `json:"completed_focus_blocks"`
	SessionElapsedSeconds int             `json:"session_elapsed_seconds"`
	SessionTotalSeconds   int             `json:"session_total_seconds"`
}

// Engine is the focus session state machine. Not goroutine-safe; see
// package doc.
type Engine struct {
	cfg  model.Configuration
	sink Sink
	opts Options
	st   State
}

// New creates an engine configured with cfg. A nil sink discards notices.
func New(cfg model.Configuration, sink Sink, opts Options) *Engine {
	if sink == nil {
		sink = nopSink{}
	}
	e := &Engine{sink: sink, opts: opts}
	e.Configure(cfg)
	return e
}

// Configure stores cfg and initializes a fresh session at the first focus
// block. A running clock is stopped first.
func (e *Engine) Configure(cfg model.Configuration) {
	e.st.Status = model.StatusIdle
	e.cfg = cfg
	e.st.CompletedFocusBlocks = 0
	e.st.SessionElapsedSeconds = 0
	e.st.SessionTotalSeconds = schedule.TotalSeconds(cfg)
	e.beginFocus()
}

// Start sets the engine running. The current phase and remaining time are
// kept, so starting after Pause resumes the block where it left off.
func (e *Engine) Start() {
	e.st.Status = model.StatusRunning
}

// Pause stops counting without touching the current block.
func (e *Engine) Pause() {
	e.st.Status = model.StatusIdle
}

// Tick advances the engine by one second. It is a no-op unless running.
func (e *Engine) Tick() {
	if e.st.Status != model.StatusRunning {
		return
	}
	if e.st.RemainingSeconds > 0 {
		e.st.RemainingSeconds--
	}
	if e.st.SessionElapsedSeconds < e.st.SessionTotalSeconds {
		e.st.SessionElapsedSeconds++
	}
	if e.st.RemainingSeconds > 0 {
		return
	}
	e.crossBoundary()
}

// Abort interrupts the session. If a focus block was running with time
// left, an abort notice is emitted first. The engine always ends idle at a
// fresh first focus block.
func (e *Engine) Abort() {
	if e.st.Status == model.StatusRunning && e.st.Phase == model.PhaseFocus && e.st.RemainingSeconds > 0 {
		e.sink.FocusBlockAborted(e.notice(model.BlockAborted))
	}
	e.Reset()
}

// Reset stops the clock and reinitializes the session from the last
// configuration without emitting any notice.
func (e *Engine) Reset() {
	e.Configure(e.cfg)
}

// crossBoundary runs when the current block's countdown reaches zero.
func (e *Engine) crossBoundary() {
	switch e.st.Phase {
	case model.PhaseFocus:
		if e.shouldNotifyCompletion() {
			e.sink.FocusBlockCompleted(e.notice(model.BlockCompleted))
		}
		e.st.CompletedFocusBlocks++
		if !e.cfg.BreaksEnabled || e.st.CompletedFocusBlocks >= e.cfg.Blocks() {
			e.stop()
			return
		}
		e.beginBreak(schedule.BreakAfter(e.cfg, e.st.CompletedFocusBlocks))
	case model.PhaseBreak:
		if e.st.CompletedFocusBlocks >= e.cfg.Blocks() {
			e.stop()
			return
		}
		e.beginFocus()
	}
}

// stop ends the session and leaves the engine ready to start again with the
// same configuration. Session elapsed/total keep their final values.
func (e *Engine) stop() {
	e.st.Status = model.StatusIdle
	e.st.CompletedFocusBlocks = 0
	e.beginFocus()
}

func (e *Engine) beginFocus() {
	e.st.Phase = model.PhaseFocus
	e.st.Break = ""
	e.st.BlockTotalSeconds = e.cfg.FocusSeconds()
	e.st.RemainingSeconds = e.st.BlockTotalSeconds
}

func (e *Engine) beginBreak(kind model.BreakKind) {
	e.st.Phase = model.PhaseBreak
	e.st.Break = kind
	e.st.BlockTotalSeconds = e.cfg.BreakSeconds(kind)
	e.st.RemainingSeconds = e.st.BlockTotalSeconds
}

func (e *Engine) shouldNotifyCompletion() bool {
	if e.cfg.BreaksEnabled || e.opts.NotifyMinFocusMinutes <= 0 {
		return true
	}
	return e.cfg.FocusSeconds()/60 >= e.opts.NotifyMinFocusMinutes
}

func (e *Engine) notice(kind NoticeKind) Notice {
	return Notice{
		Kind:           kind,
		Config:         e.cfg,
		Block:          e.st.CompletedFocusBlocks + 1,
		PlannedSeconds: e.st.BlockTotalSeconds,
		SpentSeconds:   e.st.BlockTotalSeconds - e.st.RemainingSeconds,
	}
}

// State returns a snapshot of the runtime data.
func (e *Engine) State() State { return e.st }

// Config returns the configuration the engine was last configured with.
func (e *Engine) Config() model.Configuration { return e.cfg }

// Running reports whether the engine is counting ticks.
func (e *Engine) Running() bool { return e.st.Status == model.StatusRunning }

// BlockProgress returns how much of the current block has elapsed, in [0,1].
func (e *Engine) BlockProgress() float64 {
	if e.st.BlockTotalSeconds <= 0 {
		return 0
	}
	return clamp01(1 - float64(e.st.RemainingSeconds)/float64(e.st.BlockTotalSeconds))
}

// SessionProgress returns how much of the whole session has elapsed, in [0,1].
func (e *Engine) SessionProgress() float64 {
	if e.st.SessionTotalSeconds <= 0 {
		return 0
	}
	return clamp01(float64(e.st.SessionElapsedSeconds) / float64(e.st.SessionTotalSeconds))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
