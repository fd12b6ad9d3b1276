// Package progress turns engine notices into habit-tracker progress: plant
// growth counters, the focus block log and achievements.
//
// A Tracker is an explicit context object. The caller constructs one per
// session with a store and a plant name and hands it to the engine as a
// timer.Sink (usually through a timer.Queue so persistence happens after
// Tick returns). There is no package-level state.
package progress

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/daviddao/sprout/pkg/model"
	"github.com/daviddao/sprout/pkg/timer"
)

// Store is the subset of store operations the tracker needs.
type Store interface {
	RecordBlock(e *model.BlockEvent, update func(*model.Plant) error) (*model.Plant, error)
	UnlockAchievement(plant, id string, at time.Time) (bool, error)
}

// Result is what a single notice changed.
type Result struct {
	Event    model.BlockEvent `json:"event"`
	Plant    model.Plant      `json:"plant"`
	Unlocked []Achievement    `json:"unlocked,omitempty"`
}

// Tracker records notices for one plant. Not goroutine-safe.
type Tracker struct {
	store     Store
	plant     string
	sessionID string
	now       func() time.Time

	// OnResult, when set, is called after every successfully applied notice.
	OnResult func(Result)
}

// NewTracker returns a tracker for plant with a fresh session ID.
func NewTracker(s Store, plant string) *Tracker {
	return &Tracker{
		store:     s,
		plant:     plant,
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
}

// Plant returns the tracked plant name.
func (t *Tracker) Plant() string { return t.plant }

// SessionID identifies the session that block events are logged under.
func (t *Tracker) SessionID() string { return t.sessionID }

// NewSession rotates the session ID, for a restarted run.
func (t *Tracker) NewSession() { t.sessionID = uuid.NewString() }

// Apply records one notice: it appends a block event and updates the
// plant's counters in one store transaction, then, for completions, unlocks
// any newly earned achievements.
func (t *Tracker) Apply(n timer.Notice) (Result, error) {
	now := t.now()
	event := model.BlockEvent{
		SessionID:      t.sessionID,
		Plant:          t.plant,
		Kind:           n.Kind,
		Preset:         n.Config.Name,
		BlockIndex:     n.Block,
		TotalBlocks:    totalBlocks(n.Config),
		PlannedSeconds: n.PlannedSeconds,
		SpentSeconds:   n.SpentSeconds,
		CreatedAt:      now,
	}
	plant, err := t.store.RecordBlock(&event, func(p *model.Plant) error {
		return grow(p, n)
	})
	if err != nil {
		return Result{}, errors.Wrapf(err, "record block for plant %s", t.plant)
	}

	res := Result{Event: event, Plant: *plant}
	if n.Kind == model.BlockCompleted {
		for _, a := range Earned(*plant, n) {
			fresh, err := t.store.UnlockAchievement(t.plant, a.ID, now)
			if err != nil {
				return res, errors.Wrapf(err, "unlock %s", a.ID)
			}
			if fresh {
				res.Unlocked = append(res.Unlocked, a)
			}
		}
	}
	if t.OnResult != nil {
		t.OnResult(res)
	}
	return res, nil
}

// FocusBlockCompleted implements timer.Sink. Errors are logged, not
// propagated; the engine never waits on persistence.
func (t *Tracker) FocusBlockCompleted(n timer.Notice) { t.applyLogged(n) }

// FocusBlockAborted implements timer.Sink.
func (t *Tracker) FocusBlockAborted(n timer.Notice) { t.applyLogged(n) }

func (t *Tracker) applyLogged(n timer.Notice) {
	if _, err := t.Apply(n); err != nil {
		log.Error().Err(err).Str("plant", t.plant).Str("kind", string(n.Kind)).
			Int("block", n.Block).Msg("record focus block")
	}
}

// grow applies one notice to a plant's counters.
func grow(p *model.Plant, n timer.Notice) error {
	switch n.Kind {
	case model.BlockCompleted:
		p.Pomodoros++
		p.Streak++
		if p.Streak > p.BestStreak {
			p.BestStreak = p.Streak
		}
	case model.BlockAborted:
		p.Aborted++
		p.Streak = 0
	default:
		return errors.Newf("unknown notice kind %q", n.Kind)
	}
	p.FocusSeconds += int64(n.SpentSeconds)
	return nil
}

func totalBlocks(cfg model.Configuration) int {
	if !cfg.BreaksEnabled {
		return 1
	}
	return cfg.Blocks()
}

var _ timer.Sink = (*Tracker)(nil)
