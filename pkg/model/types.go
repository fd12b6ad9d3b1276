// Package model defines the core domain types for sprout.
//
// Sprout runs Pomodoro-style focus sessions for a habit tracker. A session
// is described by a Configuration:
//
//   - Focus blocks alternate with breaks. Every LongBreakInterval-th
//     completed focus block is followed by a long break instead of a short
//     one. The last focus block of a session is never followed by a break.
//
//   - A Configuration comes either from a named Preset (macro repeats of a
//     fixed number of focus blocks) or from a single free-form minute count,
//     which is one focus block with no breaks.
//
// Configuration values are never rejected. Durations are clamped to
// MinBlockMinutes and counts to 1 at the moment they are used.
package model

import "time"

// MinBlockMinutes is the shortest block the engine will ever schedule.
const MinBlockMinutes = 1

// Phase identifies the kind of block currently counting down.
type Phase string

const (
	PhaseFocus Phase = "focus"
	PhaseBreak Phase = "break"
)

// Status reports whether the external clock is driving the engine.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// BreakKind distinguishes short and long breaks.
type BreakKind string

const (
	BreakShort BreakKind = "short"
	BreakLong  BreakKind = "long"
)

// Configuration describes one configured session run. It is a value type;
// the engine keeps its own copy.
type Configuration struct {
	// Name is informational (the preset name, or empty for free-form).
	Name              string `json:"name,omitempty"`
	FocusMinutes      int    `json:"focus_minutes"`
	ShortBreakMinutes int    `json:"short_break_minutes"`
	LongBreakMinutes  int    `json:"long_break_minutes"`
	LongBreakInterval int    `json:"long_break_interval"`
	TotalFocusBlocks  int    `json:"total_focus_blocks"`
	BreaksEnabled     bool   `json:"breaks_enabled"`
}

// FreeForm maps a single minute count to a one-block session without breaks.
func FreeForm(minutes int) Configuration {
	return Configuration{
		FocusMinutes:      minutes,
		ShortBreakMinutes: 0,
		LongBreakMinutes:  0,
		LongBreakInterval: 1,
		TotalFocusBlocks:  1,
		BreaksEnabled:     false,
	}
}

// FocusSeconds returns the clamped focus block length in seconds.
func (c Configuration) FocusSeconds() int { return minutesToSeconds(c.FocusMinutes) }

// ShortBreakSeconds returns the clamped short break length in seconds.
func (c Configuration) ShortBreakSeconds() int { return minutesToSeconds(c.ShortBreakMinutes) }

// LongBreakSeconds returns the clamped long break length in seconds.
func (c Configuration) LongBreakSeconds() int { return minutesToSeconds(c.LongBreakMinutes) }

// BreakSeconds returns the clamped length of a break of the given kind.
func (c Configuration) BreakSeconds(kind BreakKind) int {
	if kind == BreakLong {
		return c.LongBreakSeconds()
	}
	return c.ShortBreakSeconds()
}

// Interval returns LongBreakInterval clamped to at least 1.
func (c Configuration) Interval() int { return atLeastOne(c.LongBreakInterval) }

// Blocks returns TotalFocusBlocks clamped to at least 1.
func (c Configuration) Blocks() int { return atLeastOne(c.TotalFocusBlocks) }

// Normalized returns a copy with every field in use clamped to its minimum.
// Break lengths are unused when breaks are disabled and come back as zero.
func (c Configuration) Normalized() Configuration {
	n := c
	n.FocusMinutes = atLeastOne(c.FocusMinutes)
	n.ShortBreakMinutes, n.LongBreakMinutes = 0, 0
	if c.BreaksEnabled {
		n.ShortBreakMinutes = atLeastOne(c.ShortBreakMinutes)
		n.LongBreakMinutes = atLeastOne(c.LongBreakMinutes)
	}
	n.LongBreakInterval = c.Interval()
	n.TotalFocusBlocks = c.Blocks()
	return n
}

func minutesToSeconds(minutes int) int {
	if minutes < MinBlockMinutes {
		minutes = MinBlockMinutes
	}
	return minutes * 60
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Preset is a named, persisted session template.
type Preset struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	FocusMinutes        int       `json:"focus_minutes"`
	ShortBreakMinutes   int       `json:"short_break_minutes"`
	LongBreakMinutes    int       `json:"long_break_minutes"`
	FocusBlocksPerMacro int       `json:"focus_blocks_per_macro"`
	MacroRepeats        int       `json:"macro_repeats"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DefaultPreset is seeded into an empty preset table.
func DefaultPreset() Preset {
	return Preset{
		Name:                "Classic",
		FocusMinutes:        25,
		ShortBreakMinutes:   5,
		LongBreakMinutes:    15,
		FocusBlocksPerMacro: 4,
		MacroRepeats:        1,
	}
}

// Configuration maps the preset to a session configuration.
// totalFocusBlocks = macroRepeats × focusBlocksPerMacro and the long break
// falls after every full macro.
func (p Preset) Configuration() Configuration {
	return Configuration{
		Name:              p.Name,
		FocusMinutes:      p.FocusMinutes,
		ShortBreakMinutes: p.ShortBreakMinutes,
		LongBreakMinutes:  p.LongBreakMinutes,
		LongBreakInterval: p.FocusBlocksPerMacro,
		TotalFocusBlocks:  atLeastOne(p.MacroRepeats) * atLeastOne(p.FocusBlocksPerMacro),
		BreaksEnabled:     true,
	}
}

// BlockEventKind enumerates the outcomes recorded for a focus block.
type BlockEventKind string

const (
	BlockCompleted BlockEventKind = "completed"
	BlockAborted   BlockEventKind = "aborted"
)

// BlockEvent is one entry in the append-only focus block log.
type BlockEvent struct {
	ID             int64          `json:"id"`
	SessionID      string         `json:"session_id"`
	Plant          string         `json:"plant"`
	Kind           BlockEventKind `json:"kind"`
	Preset         string         `json:"preset,omitempty"`
	BlockIndex     int            `json:"block_index"`
	TotalBlocks    int            `json:"total_blocks"`
	PlannedSeconds int            `json:"planned_seconds"`
	SpentSeconds   int            `json:"spent_seconds"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Plant is the growth record fed by completed focus blocks.
type Plant struct {
	Name         string    `json:"name"`
	Pomodoros    int64     `json:"pomodoros"`
	Aborted      int64     `json:"aborted"`
	Streak       int64     `json:"streak"`
	BestStreak   int64     `json:"best_streak"`
	FocusSeconds int64     `json:"focus_seconds"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Achievement is an unlocked milestone for a plant.
type Achievement struct {
	Plant      string    `json:"plant"`
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
