// Package schedule computes the shape of a focus session from its
// configuration: which break follows each focus block, the total expected
// duration, and the full block timeline.
//
// A session of N focus blocks has N-1 gaps; the last block is never
// followed by a break. Gap i (1-based) holds a long break iff
// i mod LongBreakInterval == 0, otherwise a short break. With breaks
// disabled there are no gaps at all.
package schedule

import "github.com/daviddao/sprout/pkg/model"

// BreakAfter returns the kind of break that follows the completed-th focus
// block. The caller decides whether a break follows at all.
func BreakAfter(cfg model.Configuration, completed int) model.BreakKind {
	if completed > 0 && completed%cfg.Interval() == 0 {
		return model.BreakLong
	}
	return model.BreakShort
}

// TotalSeconds returns the expected length of the whole session by
// enumerating every gap between focus blocks.
func TotalSeconds(cfg model.Configuration) int {
	blocks := cfg.Blocks()
	total := blocks * cfg.FocusSeconds()
	if !cfg.BreaksEnabled {
		return total
	}
	for gap := 1; gap < blocks; gap++ {
		total += cfg.BreakSeconds(BreakAfter(cfg, gap))
	}
	return total
}

// GroupedTotalSeconds derives the same total by counting whole macro groups
// instead of enumerating gaps. Each full group of Interval focus blocks has
// Interval-1 short breaks and is followed by a long break unless it ends the
// session; a trailing partial group has one short break fewer than blocks.
// It always agrees with TotalSeconds.
func GroupedTotalSeconds(cfg model.Configuration) int {
	blocks := cfg.Blocks()
	focus := blocks * cfg.FocusSeconds()
	if !cfg.BreaksEnabled {
		return focus
	}
	interval := cfg.Interval()
	groups := blocks / interval
	rest := blocks % interval

	shorts := groups * (interval - 1)
	if rest > 0 {
		shorts += rest - 1
	}
	longs := groups
	if rest == 0 {
		longs--
	}
	return focus + shorts*cfg.ShortBreakSeconds() + longs*cfg.LongBreakSeconds()
}

// Gaps returns the number of short and long breaks a session will contain.
func Gaps(cfg model.Configuration) (shorts, longs int) {
	if !cfg.BreaksEnabled {
		return 0, 0
	}
	for gap := 1; gap < cfg.Blocks(); gap++ {
		if BreakAfter(cfg, gap) == model.BreakLong {
			longs++
		} else {
			shorts++
		}
	}
	return shorts, longs
}

// Block is one entry of a session timeline.
type Block struct {
	Phase model.Phase     `json:"phase"`
	Break model.BreakKind `json:"break,omitempty"`
	// Focus is the 1-based focus block number this entry belongs to; a
	// break carries the number of the focus block it follows.
	Focus   int `json:"focus"`
	Offset  int `json:"offset_seconds"`
	Seconds int `json:"seconds"`
}

// PlannedSeconds is the length of Plan(cfg): the seconds the engine runs
// from start to natural stop. It equals TotalSeconds unless breaks are
// disabled with more than one focus block, where TotalSeconds still counts
// every block.
func PlannedSeconds(cfg model.Configuration) int {
	plan := Plan(cfg)
	last := plan[len(plan)-1]
	return last.Offset + last.Seconds
}

// Plan enumerates the blocks the engine will run, in order. With breaks
// disabled the engine stops after the first focus block, so the plan holds
// exactly one block.
func Plan(cfg model.Configuration) []Block {
	blocks := cfg.Blocks()
	if !cfg.BreaksEnabled {
		blocks = 1
	}
	plan := make([]Block, 0, 2*blocks-1)
	offset := 0
	for n := 1; n <= blocks; n++ {
		plan = append(plan, Block{
			Phase:   model.PhaseFocus,
			Focus:   n,
			Offset:  offset,
			Seconds: cfg.FocusSeconds(),
		})
		offset += cfg.FocusSeconds()
		if n == blocks {
			break
		}
		kind := BreakAfter(cfg, n)
		plan = append(plan, Block{
			Phase:   model.PhaseBreak,
			Break:   kind,
			Focus:   n,
			Offset:  offset,
			Seconds: cfg.BreakSeconds(kind),
		})
		offset += cfg.BreakSeconds(kind)
	}
	return plan
}
