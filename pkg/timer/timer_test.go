package timer

import (
	"testing"

	"github.com/daviddao/sprout/pkg/model"
)

// recorder records every notice together with the engine state observed at
// the moment the notice arrived.
type recorder struct {
	eng       *Engine
	completed []Notice
	aborted   []Notice
	seen      []State
}

func (r *recorder) FocusBlockCompleted(n Notice) {
	r.completed = append(r.completed, n)
	if r.eng != nil {
		r.seen = append(r.seen, r.eng.State())
	}
}

func (r *recorder) FocusBlockAborted(n Notice) {
	r.aborted = append(r.aborted, n)
	if r.eng != nil {
		r.seen = append(r.seen, r.eng.State())
	}
}

func newTestEngine(cfg model.Configuration, opts Options) (*Engine, *recorder) {
	rec := &recorder{}
	e := New(cfg, rec, opts)
	rec.eng = e
	return e, rec
}

func presetConfig(focus, short, long, perMacro, repeats int) model.Configuration {
	return model.Preset{
		FocusMinutes:        focus,
		ShortBreakMinutes:   short,
		LongBreakMinutes:    long,
		FocusBlocksPerMacro: perMacro,
		MacroRepeats:        repeats,
	}.Configuration()
}

func ticks(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Tick()
	}
}

func TestNew_InitialState(t *testing.T) {
	e, _ := newTestEngine(presetConfig(25, 5, 15, 3, 2), Options{})
	st := e.State()
	if st.Status != model.StatusIdle || st.Phase != model.PhaseFocus {
		t.Fatalf("initial: got %s/%s, want idle/focus", st.Status, st.Phase)
	}
	if st.BlockTotalSeconds != 1500 || st.RemainingSeconds != 1500 {
		t.Fatalf("initial block: got %d/%d, want 1500/1500", st.RemainingSeconds, st.BlockTotalSeconds)
	}
	if st.SessionTotalSeconds != 11100 || st.SessionElapsedSeconds != 0 {
		t.Fatalf("initial session: got %d/%d, want 0/11100", st.SessionElapsedSeconds, st.SessionTotalSeconds)
	}
}

func TestNew_NilSink(t *testing.T) {
	e := New(model.FreeForm(1), nil, Options{})
	e.Start()
	ticks(e, 60)
	if e.Running() {
		t.Fatal("session should have stopped after its only block")
	}
}

func TestTick_IdleIsNoop(t *testing.T) {
	e, _ := newTestEngine(model.FreeForm(5), Options{})
	before := e.State()
	ticks(e, 10)
	if e.State() != before {
		t.Fatalf("tick while idle changed state: %+v -> %+v", before, e.State())
	}
}

func TestTick_Countdown(t *testing.T) {
	e, _ := newTestEngine(model.FreeForm(5), Options{})
	e.Start()
	ticks(e, 7)
	st := e.State()
	if st.RemainingSeconds != 293 {
		t.Fatalf("remaining: got %d, want 293", st.RemainingSeconds)
	}
	if st.SessionElapsedSeconds != 7 {
		t.Fatalf("elapsed: got %d, want 7", st.SessionElapsedSeconds)
	}
}

func TestStart_Idempotent(t *testing.T) {
	e, _ := newTestEngine(model.FreeForm(5), Options{})
	e.Start()
	ticks(e, 3)
	e.Start()
	if st := e.State(); st.RemainingSeconds != 297 || st.Status != model.StatusRunning {
		t.Fatalf("second Start altered state: %+v", st)
	}
}

func TestSingleFreeFormTimer(t *testing.T) {
	e, rec := newTestEngine(model.FreeForm(10), Options{})
	e.Start()

	enteredBreak := false
	for i := 1; i <= 600; i++ {
		e.Tick()
		if e.State().Phase == model.PhaseBreak {
			enteredBreak = true
		}
		if i < 600 && len(rec.completed) != 0 {
			t.Fatalf("completion emitted early at tick %d", i)
		}
	}

	st := e.State()
	if st.Status != model.StatusIdle {
		t.Fatalf("status: got %s, want idle", st.Status)
	}
	if st.CompletedFocusBlocks != 0 {
		t.Fatalf("completed blocks after stop: got %d, want 0", st.CompletedFocusBlocks)
	}
	if len(rec.completed) != 1 || len(rec.aborted) != 0 {
		t.Fatalf("notices: got %d completed / %d aborted, want 1/0", len(rec.completed), len(rec.aborted))
	}
	if enteredBreak {
		t.Fatal("free-form timer must never enter a break")
	}
	if st.SessionElapsedSeconds != 600 || st.SessionTotalSeconds != 600 {
		t.Fatalf("session: got %d/%d, want 600/600", st.SessionElapsedSeconds, st.SessionTotalSeconds)
	}
	if st.Phase != model.PhaseFocus || st.RemainingSeconds != 600 {
		t.Fatalf("engine not ready to restart: %+v", st)
	}
}

func TestLongBreakPlacement(t *testing.T) {
	e, rec := newTestEngine(presetConfig(1, 1, 2, 3, 2), Options{})
	e.Start()

	// Record which break (if any) follows each completed focus block.
	breaksAfter := map[int]model.BreakKind{}
	lastPhase := model.PhaseFocus
	for i := 0; i < 100000 && (e.Running() || i == 0); i++ {
		e.Tick()
		st := e.State()
		if st.Phase == model.PhaseBreak && lastPhase == model.PhaseFocus {
			breaksAfter[st.CompletedFocusBlocks] = st.Break
		}
		lastPhase = st.Phase
	}

	if len(rec.completed) != 6 {
		t.Fatalf("completed notices: got %d, want 6", len(rec.completed))
	}
	if len(breaksAfter) != 5 {
		t.Fatalf("breaks: got %d, want 5 (%v)", len(breaksAfter), breaksAfter)
	}
	for block := 1; block <= 5; block++ {
		want := model.BreakShort
		if block == 3 {
			want = model.BreakLong
		}
		if breaksAfter[block] != want {
			t.Fatalf("break after block %d: got %q, want %q", block, breaksAfter[block], want)
		}
	}
	if _, ok := breaksAfter[6]; ok {
		t.Fatal("no break may follow the last focus block")
	}
	st := e.State()
	if st.SessionElapsedSeconds != st.SessionTotalSeconds {
		t.Fatalf("session elapsed %d != total %d at end", st.SessionElapsedSeconds, st.SessionTotalSeconds)
	}
}

func TestSessionTicksMatchTotal(t *testing.T) {
	e, _ := newTestEngine(presetConfig(2, 1, 3, 2, 3), Options{})
	e.Start()
	n := 0
	for e.Running() {
		e.Tick()
		n++
	}
	if n != e.State().SessionTotalSeconds {
		t.Fatalf("ticks to finish: got %d, want %d", n, e.State().SessionTotalSeconds)
	}
}

func TestCompletionNotice_BeforeTransition(t *testing.T) {
	e, rec := newTestEngine(presetConfig(1, 1, 1, 2, 1), Options{})
	e.Start()
	ticks(e, 60)

	if len(rec.completed) != 1 {
		t.Fatalf("completed: got %d, want 1", len(rec.completed))
	}
	seen := rec.seen[0]
	if seen.Phase != model.PhaseFocus || seen.RemainingSeconds != 0 || seen.CompletedFocusBlocks != 0 {
		t.Fatalf("notice must arrive before the break starts, saw %+v", seen)
	}
	n := rec.completed[0]
	if n.Block != 1 || n.PlannedSeconds != 60 || n.SpentSeconds != 60 || n.Kind != model.BlockCompleted {
		t.Fatalf("notice: %+v", n)
	}
	if st := e.State(); st.Phase != model.PhaseBreak || st.CompletedFocusBlocks != 1 {
		t.Fatalf("after boundary: %+v", st)
	}
}

func TestAbort_ClearsWithoutCompletion(t *testing.T) {
	e, rec := newTestEngine(presetConfig(25, 5, 15, 4, 1), Options{})
	e.Start()
	ticks(e, 120)
	e.Abort()

	if len(rec.aborted) != 1 || len(rec.completed) != 0 {
		t.Fatalf("notices: got %d aborted / %d completed, want 1/0", len(rec.aborted), len(rec.completed))
	}
	n := rec.aborted[0]
	if n.SpentSeconds != 120 || n.Block != 1 || n.Kind != model.BlockAborted {
		t.Fatalf("abort notice: %+v", n)
	}
	st := e.State()
	if st.Status != model.StatusIdle || st.Phase != model.PhaseFocus {
		t.Fatalf("after abort: got %s/%s, want idle/focus", st.Status, st.Phase)
	}
	if st.RemainingSeconds != st.BlockTotalSeconds || st.BlockTotalSeconds != 1500 {
		t.Fatalf("after abort block: %d/%d", st.RemainingSeconds, st.BlockTotalSeconds)
	}
	if st.SessionElapsedSeconds != 0 || st.CompletedFocusBlocks != 0 {
		t.Fatalf("after abort session: %+v", st)
	}
}

func TestAbort_DuringBreakResetsWithoutNotice(t *testing.T) {
	e, rec := newTestEngine(presetConfig(1, 1, 1, 4, 1), Options{})
	e.Start()
	ticks(e, 61)
	if e.State().Phase != model.PhaseBreak {
		t.Fatalf("expected break, got %s", e.State().Phase)
	}
	e.Abort()
	if len(rec.aborted) != 0 {
		t.Fatalf("abort during break emitted %d notices", len(rec.aborted))
	}
	if st := e.State(); st.Status != model.StatusIdle || st.Phase != model.PhaseFocus {
		t.Fatalf("after abort in break: %+v", st)
	}
}

func TestAbort_WhileIdleIsSilent(t *testing.T) {
	e, rec := newTestEngine(model.FreeForm(5), Options{})
	e.Abort()
	if len(rec.aborted) != 0 {
		t.Fatal("abort while idle must not notify")
	}
	e.Start()
	ticks(e, 10)
	e.Pause()
	e.Abort()
	if len(rec.aborted) != 0 {
		t.Fatal("abort while paused must not notify")
	}
}

func TestPause_ResumeContinues(t *testing.T) {
	e, _ := newTestEngine(model.FreeForm(5), Options{})
	e.Start()
	ticks(e, 30)
	e.Pause()
	ticks(e, 30)
	if got := e.State().RemainingSeconds; got != 270 {
		t.Fatalf("paused remaining: got %d, want 270", got)
	}
	e.Start()
	ticks(e, 1)
	if got := e.State().RemainingSeconds; got != 269 {
		t.Fatalf("resumed remaining: got %d, want 269", got)
	}
}

func TestConfigure_WhileRunningStops(t *testing.T) {
	e, _ := newTestEngine(model.FreeForm(5), Options{})
	e.Start()
	ticks(e, 10)
	e.Configure(presetConfig(3, 1, 2, 2, 2))
	st := e.State()
	if st.Status != model.StatusIdle {
		t.Fatalf("configure must stop the clock, got %s", st.Status)
	}
	if st.RemainingSeconds != 180 || st.SessionElapsedSeconds != 0 {
		t.Fatalf("configure did not reinitialize: %+v", st)
	}
}

func TestReset_Idempotent(t *testing.T) {
	e, rec := newTestEngine(presetConfig(1, 1, 1, 2, 2), Options{})
	e.Start()
	ticks(e, 75)
	e.Reset()
	once := e.State()
	e.Reset()
	if twice := e.State(); twice != once {
		t.Fatalf("reset not idempotent: %+v vs %+v", once, twice)
	}
	if len(rec.aborted) != 0 {
		t.Fatal("reset must not emit abort notices")
	}
	if once.Status != model.StatusIdle || once.SessionElapsedSeconds != 0 {
		t.Fatalf("reset state: %+v", once)
	}
}

func TestProgress_MonotoneAndBounded(t *testing.T) {
	configs := []model.Configuration{
		model.FreeForm(2),
		presetConfig(1, 1, 2, 2, 2),
		presetConfig(2, 0, 0, 0, 3),
		{FocusMinutes: 1, TotalFocusBlocks: 3, BreaksEnabled: false},
	}
	for _, cfg := range configs {
		e, _ := newTestEngine(cfg, Options{})
		e.Start()
		prevBlock, prevSession := e.BlockProgress(), e.SessionProgress()
		prevPhase, prevCompleted := e.State().Phase, e.State().CompletedFocusBlocks
		for e.Running() {
			e.Tick()
			b, s := e.BlockProgress(), e.SessionProgress()
			if b < 0 || b > 1 || s < 0 || s > 1 {
				t.Fatalf("%+v: progress out of range: block=%v session=%v", cfg, b, s)
			}
			if s < prevSession {
				t.Fatalf("%+v: session progress decreased %v -> %v", cfg, prevSession, s)
			}
			st := e.State()
			sameBlock := st.Phase == prevPhase && st.CompletedFocusBlocks == prevCompleted && e.Running()
			if sameBlock && b < prevBlock {
				t.Fatalf("%+v: block progress decreased %v -> %v", cfg, prevBlock, b)
			}
			prevBlock, prevSession = b, s
			prevPhase, prevCompleted = st.Phase, st.CompletedFocusBlocks
		}
	}
}

func TestProgress_Values(t *testing.T) {
	e, _ := newTestEngine(model.FreeForm(1), Options{})
	if e.BlockProgress() != 0 || e.SessionProgress() != 0 {
		t.Fatal("fresh engine must report zero progress")
	}
	e.Start()
	ticks(e, 30)
	if got := e.BlockProgress(); got != 0.5 {
		t.Fatalf("block progress: got %v, want 0.5", got)
	}
	if got := e.SessionProgress(); got != 0.5 {
		t.Fatalf("session progress: got %v, want 0.5", got)
	}
}

func TestBreaksDisabled_StopsAfterFirstBlock(t *testing.T) {
	cfg := model.Configuration{FocusMinutes: 1, TotalFocusBlocks: 4, BreaksEnabled: false}
	e, rec := newTestEngine(cfg, Options{})
	e.Start()
	ticks(e, 60)
	if e.Running() {
		t.Fatal("breaks disabled: session must stop after one focus block")
	}
	if len(rec.completed) != 1 {
		t.Fatalf("completed: got %d, want 1", len(rec.completed))
	}
}

func TestClampedConfigurationRuns(t *testing.T) {
	cfg := model.Configuration{BreaksEnabled: true, TotalFocusBlocks: 2}
	e, rec := newTestEngine(cfg, Options{})
	if e.State().RemainingSeconds != 60 {
		t.Fatalf("zero focus minutes must clamp to 60s, got %d", e.State().RemainingSeconds)
	}
	e.Start()
	ticks(e, 180)
	if e.Running() || len(rec.completed) != 2 {
		t.Fatalf("clamped session: running=%v completed=%d", e.Running(), len(rec.completed))
	}
}

func TestNotifyThreshold_FreeForm(t *testing.T) {
	e, rec := newTestEngine(model.FreeForm(10), Options{NotifyMinFocusMinutes: 25})
	e.Start()
	ticks(e, 600)
	if len(rec.completed) != 0 {
		t.Fatalf("below threshold: got %d completions, want 0", len(rec.completed))
	}
	if e.Running() {
		t.Fatal("threshold must not change the state machine")
	}

	e.Configure(model.FreeForm(25))
	e.Start()
	ticks(e, 1500)
	if len(rec.completed) != 1 {
		t.Fatalf("at threshold: got %d completions, want 1", len(rec.completed))
	}
}

func TestNotifyThreshold_IgnoredForPresets(t *testing.T) {
	e, rec := newTestEngine(presetConfig(1, 1, 1, 1, 1), Options{NotifyMinFocusMinutes: 25})
	e.Start()
	ticks(e, 60)
	if len(rec.completed) != 1 {
		t.Fatalf("preset completion: got %d, want 1", len(rec.completed))
	}
}

func TestRestartAfterStop(t *testing.T) {
	e, rec := newTestEngine(model.FreeForm(1), Options{})
	e.Start()
	ticks(e, 60)
	e.Start()
	ticks(e, 60)
	if len(rec.completed) != 2 {
		t.Fatalf("restart with same configuration: got %d completions, want 2", len(rec.completed))
	}
	st := e.State()
	if st.SessionElapsedSeconds != 60 {
		t.Fatalf("elapsed keeps its final value until configure: got %d", st.SessionElapsedSeconds)
	}
}
