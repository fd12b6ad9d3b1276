package progress

import (
	"github.com/daviddao/sprout/pkg/model"
	"github.com/daviddao/sprout/pkg/timer"
)

// Stage is a plant's growth stage, derived from completed pomodoros.
type Stage string

const (
	StageSeed     Stage = "seed"
	StageSprout   Stage = "sprout"
	StageSeedling Stage = "seedling"
	StageSapling  Stage = "sapling"
	StageTree     Stage = "tree"
	StageGrove    Stage = "grove"
)

// stages lists each stage with the pomodoro count it starts at, ascending.
var stages = []struct {
	stage Stage
	from  int64
}{
	{StageSeed, 0},
	{StageSprout, 1},
	{StageSeedling, 4},
	{StageSapling, 12},
	{StageTree, 25},
	{StageGrove, 50},
}

// StageFor returns the growth stage reached after pomodoros completed blocks.
func StageFor(pomodoros int64) Stage {
	s := StageSeed
	for _, st := range stages {
		if pomodoros >= st.from {
			s = st.stage
		}
	}
	return s
}

// NextStage returns the stage after the current one and how many more
// pomodoros it takes. ok is false at the final stage.
func NextStage(pomodoros int64) (next Stage, remaining int64, ok bool) {
	for _, st := range stages {
		if pomodoros < st.from {
			return st.stage, st.from - pomodoros, true
		}
	}
	return "", 0, false
}

// Achievement is a milestone a plant can unlock once.
type Achievement struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// earned is evaluated after the plant counters have been updated for
	// the completed block described by the notice.
	earned func(p model.Plant, n timer.Notice) bool
}

const deepRootsSeconds = 10 * 60 * 60

var achievements = []Achievement{
	{ID: "first_focus", Title: "First focus block", earned: func(p model.Plant, _ timer.Notice) bool {
		return p.Pomodoros >= 1
	}},
	{ID: "ten_focus", Title: "Ten focus blocks", earned: func(p model.Plant, _ timer.Notice) bool {
		return p.Pomodoros >= 10
	}},
	{ID: "century", Title: "One hundred focus blocks", earned: func(p model.Plant, _ timer.Notice) bool {
		return p.Pomodoros >= 100
	}},
	{ID: "steady_four", Title: "Four in a row without aborting", earned: func(p model.Plant, _ timer.Notice) bool {
		return p.Streak >= 4
	}},
	{ID: "deep_roots", Title: "Ten hours of focus", earned: func(p model.Plant, _ timer.Notice) bool {
		return p.FocusSeconds >= deepRootsSeconds
	}},
	{ID: "full_session", Title: "Finished a session of four or more blocks", earned: func(_ model.Plant, n timer.Notice) bool {
		return n.Config.BreaksEnabled && n.Config.Blocks() >= 4 && n.Last()
	}},
}

// Achievements returns every known achievement in display order.
func Achievements() []Achievement {
	out := make([]Achievement, len(achievements))
	copy(out, achievements)
	return out
}

// Lookup finds an achievement by ID.
func Lookup(id string) (Achievement, bool) {
	for _, a := range achievements {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Earned returns the achievements whose condition holds for p after the
// completion described by n, regardless of whether they were unlocked
// before.
func Earned(p model.Plant, n timer.Notice) []Achievement {
	var out []Achievement
	for _, a := range achievements {
		if a.earned(p, n) {
			out = append(out, a)
		}
	}
	return out
}
