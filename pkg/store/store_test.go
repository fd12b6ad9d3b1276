package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/daviddao/sprout/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePreset(name string) *model.Preset {
	return &model.Preset{
		Name: name, FocusMinutes: 50, ShortBreakMinutes: 10, LongBreakMinutes: 30,
		FocusBlocksPerMacro: 2, MacroRepeats: 3,
	}
}

// --- Preset tests ---

func TestNew_SeedsDefaultPreset(t *testing.T) {
	s := newTestStore(t)
	presets, err := s.ListPresets()
	if err != nil {
		t.Fatal(err)
	}
	if len(presets) != 1 || presets[0].Name != model.DefaultPreset().Name {
		t.Fatalf("seeded presets: %+v", presets)
	}
}

func TestNew_SeedOnlyWhenEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreatePreset(samplePreset("deep")); err != nil {
		t.Fatal(err)
	}
	if err := s.DeletePreset("Classic"); err != nil {
		t.Fatalf("DeletePreset: %v", err)
	}
	s.Close()

	s2, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if n := s2.CountPresets(); n != 1 {
		t.Fatalf("reopen must not reseed: got %d presets, want 1", n)
	}
}

func TestCreatePreset(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreatePreset(samplePreset("  deep work  "))
	if err != nil {
		t.Fatalf("CreatePreset: %v", err)
	}
	if p.ID == 0 || p.Name != "deep work" {
		t.Fatalf("created: id=%d name=%q", p.ID, p.Name)
	}
	got, err := s.GetPreset("deep work")
	if err != nil {
		t.Fatal(err)
	}
	if got.FocusMinutes != 50 || got.MacroRepeats != 3 || got.FocusBlocksPerMacro != 2 {
		t.Fatalf("roundtrip: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps not stored")
	}
}

func TestCreatePreset_DuplicateNameIgnoresCase(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreatePreset(samplePreset("Deep")); err != nil {
		t.Fatal(err)
	}
	_, err := s.CreatePreset(samplePreset("deep"))
	if !errors.Is(err, ErrPresetExists) {
		t.Fatalf("duplicate: got %v, want ErrPresetExists", err)
	}
}

func TestCreatePreset_BlankName(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreatePreset(samplePreset("   ")); !errors.Is(err, ErrInvalidPresetName) {
		t.Fatalf("blank name: got %v, want ErrInvalidPresetName", err)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetPreset("nope"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("got %v, want ErrPresetNotFound", err)
	}
}

func TestGetPreset_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetPreset("CLASSIC"); err != nil {
		t.Fatalf("case-insensitive lookup: %v", err)
	}
}

func TestListPresets_Ordered(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"zeta", "alpha", "Mid"} {
		if _, err := s.CreatePreset(samplePreset(name)); err != nil {
			t.Fatal(err)
		}
	}
	presets, err := s.ListPresets()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "Classic", "Mid", "zeta"}
	if len(presets) != len(want) {
		t.Fatalf("got %d presets, want %d", len(presets), len(want))
	}
	for i, p := range presets {
		if p.Name != want[i] {
			t.Fatalf("presets[%d] = %q, want %q", i, p.Name, want[i])
		}
	}
}

func TestUpdatePreset_Values(t *testing.T) {
	s := newTestStore(t)
	upd := samplePreset("")
	upd.FocusMinutes = 45
	got, err := s.UpdatePreset("Classic", upd)
	if err != nil {
		t.Fatalf("UpdatePreset: %v", err)
	}
	if got.Name != "Classic" || got.FocusMinutes != 45 {
		t.Fatalf("updated: %+v", got)
	}
}

func TestUpdatePreset_Rename(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpdatePreset("Classic", samplePreset("Focus50")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetPreset("Classic"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("old name still resolves: %v", err)
	}
	if _, err := s.GetPreset("focus50"); err != nil {
		t.Fatalf("new name: %v", err)
	}
}

func TestUpdatePreset_RenameToOwnNameDifferentCase(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpdatePreset("Classic", samplePreset("CLASSIC")); err != nil {
		t.Fatalf("renaming to own name must succeed: %v", err)
	}
}

func TestUpdatePreset_RenameConflict(t *testing.T) {
	s := newTestStore(t)
	s.CreatePreset(samplePreset("deep"))
	if _, err := s.UpdatePreset("Classic", samplePreset("Deep")); !errors.Is(err, ErrPresetExists) {
		t.Fatalf("got %v, want ErrPresetExists", err)
	}
}

func TestUpdatePreset_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpdatePreset("ghost", samplePreset("x")); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("got %v, want ErrPresetNotFound", err)
	}
}

func TestDeletePreset(t *testing.T) {
	s := newTestStore(t)
	s.CreatePreset(samplePreset("deep"))
	if err := s.DeletePreset("DEEP"); err != nil {
		t.Fatalf("DeletePreset: %v", err)
	}
	if n := s.CountPresets(); n != 1 {
		t.Fatalf("after delete: %d presets, want 1", n)
	}
}

func TestDeletePreset_LastOneRefused(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeletePreset("Classic"); !errors.Is(err, ErrLastPreset) {
		t.Fatalf("got %v, want ErrLastPreset", err)
	}
	if n := s.CountPresets(); n != 1 {
		t.Fatalf("last preset removed: %d left", n)
	}
}

func TestDeletePreset_NotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeletePreset("ghost"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("got %v, want ErrPresetNotFound", err)
	}
}

// --- Block event tests ---

func insertEvent(t *testing.T, s *Store, plant string, kind model.BlockEventKind, block int) {
	t.Helper()
	if _, err := s.InsertBlockEvent(&model.BlockEvent{
		SessionID: "sess", Plant: plant, Kind: kind, Preset: "Classic",
		BlockIndex: block, TotalBlocks: 4, PlannedSeconds: 1500, SpentSeconds: 1500,
	}); err != nil {
		t.Fatalf("InsertBlockEvent: %v", err)
	}
}

func TestInsertBlockEvent_Roundtrip(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	e := &model.BlockEvent{
		SessionID: "abc", Plant: "fern", Kind: model.BlockAborted,
		BlockIndex: 2, TotalBlocks: 4, PlannedSeconds: 1500, SpentSeconds: 61, CreatedAt: at,
	}
	id, err := s.InsertBlockEvent(e)
	if err != nil || id == 0 || e.ID != id {
		t.Fatalf("insert: id=%d e.ID=%d err=%v", id, e.ID, err)
	}
	events, err := s.ListBlockEvents("fern", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	got := events[0]
	if got.SessionID != "abc" || got.Kind != model.BlockAborted || got.SpentSeconds != 61 || !got.CreatedAt.Equal(at) {
		t.Fatalf("roundtrip: %+v", got)
	}
	if got.Preset != "" {
		t.Fatalf("empty preset: got %q", got.Preset)
	}
}

func TestListBlockEvents_NewestFirstAndFilters(t *testing.T) {
	s := newTestStore(t)
	insertEvent(t, s, "fern", model.BlockCompleted, 1)
	insertEvent(t, s, "fern", model.BlockAborted, 2)
	insertEvent(t, s, "ivy", model.BlockCompleted, 1)

	all, _ := s.ListBlockEvents("", "", 0)
	if len(all) != 3 || all[0].Plant != "ivy" {
		t.Fatalf("all newest first: %+v", all)
	}
	fern, _ := s.ListBlockEvents("fern", "", 10)
	if len(fern) != 2 {
		t.Fatalf("fern: got %d, want 2", len(fern))
	}
	completed, _ := s.ListBlockEvents("", model.BlockCompleted, 10)
	if len(completed) != 2 {
		t.Fatalf("completed: got %d, want 2", len(completed))
	}
	limited, _ := s.ListBlockEvents("", "", 1)
	if len(limited) != 1 {
		t.Fatalf("limit: got %d, want 1", len(limited))
	}
}

func TestCountBlockEvents(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		insertEvent(t, s, fmt.Sprintf("p%d", i%2), model.BlockCompleted, i+1)
	}
	if n := s.CountBlockEvents("", ""); n != 5 {
		t.Fatalf("all: got %d, want 5", n)
	}
	if n := s.CountBlockEvents("p0", model.BlockCompleted); n != 3 {
		t.Fatalf("p0 completed: got %d, want 3", n)
	}
	if n := s.CountBlockEvents("p1", model.BlockAborted); n != 0 {
		t.Fatalf("p1 aborted: got %d, want 0", n)
	}
}

// --- Plant tests ---

func TestGetPlant_UnknownIsZero(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetPlant("fern")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "fern" || p.Pomodoros != 0 {
		t.Fatalf("unknown plant: %+v", p)
	}
}

func TestSavePlant_Upsert(t *testing.T) {
	s := newTestStore(t)
	p := &model.Plant{Name: "fern", Pomodoros: 3, Streak: 2, BestStreak: 2, FocusSeconds: 4500}
	if err := s.SavePlant(p); err != nil {
		t.Fatal(err)
	}
	p.Pomodoros = 4
	p.Aborted = 1
	if err := s.SavePlant(p); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetPlant("fern")
	if err != nil {
		t.Fatal(err)
	}
	if got.Pomodoros != 4 || got.Aborted != 1 || got.FocusSeconds != 4500 || got.UpdatedAt.IsZero() {
		t.Fatalf("upsert: %+v", got)
	}
	plants, _ := s.ListPlants()
	if len(plants) != 1 {
		t.Fatalf("ListPlants: got %d, want 1", len(plants))
	}
}

func TestRecordBlock_LogsAndUpdatesTogether(t *testing.T) {
	s := newTestStore(t)
	e := &model.BlockEvent{SessionID: "s1", Plant: "fern", Kind: model.BlockCompleted,
		BlockIndex: 1, TotalBlocks: 4, PlannedSeconds: 1500, SpentSeconds: 1500}
	got, err := s.RecordBlock(e, func(p *model.Plant) error {
		p.Pomodoros++
		p.FocusSeconds += 1500
		return nil
	})
	if err != nil {
		t.Fatalf("RecordBlock: %v", err)
	}
	if e.ID == 0 {
		t.Fatal("event ID not set")
	}
	if got.Name != "fern" || got.Pomodoros != 1 || got.FocusSeconds != 1500 {
		t.Fatalf("returned plant: %+v", got)
	}
	stored, _ := s.GetPlant("fern")
	if stored.Pomodoros != 1 {
		t.Fatalf("stored pomodoros: got %d, want 1", stored.Pomodoros)
	}
	if n := s.CountBlockEvents("fern", ""); n != 1 {
		t.Fatalf("events: got %d, want 1", n)
	}
}

func TestRecordBlock_UpdateErrorWritesNothing(t *testing.T) {
	s := newTestStore(t)
	if err := s.SavePlant(&model.Plant{Name: "fern", Pomodoros: 2, Streak: 2}); err != nil {
		t.Fatal(err)
	}
	e := &model.BlockEvent{SessionID: "s1", Plant: "fern", Kind: model.BlockCompleted, BlockIndex: 3}
	disk := errors.New("disk full")
	_, err := s.RecordBlock(e, func(p *model.Plant) error {
		p.Pomodoros++
		return disk
	})
	if !errors.Is(err, disk) {
		t.Fatalf("err: got %v, want %v", err, disk)
	}
	if n := s.CountBlockEvents("fern", ""); n != 0 {
		t.Fatalf("events after rollback: got %d, want 0", n)
	}
	stored, _ := s.GetPlant("fern")
	if stored.Pomodoros != 2 {
		t.Fatalf("pomodoros after rollback: got %d, want 2", stored.Pomodoros)
	}
}

// --- Achievement tests ---

func TestUnlockAchievement_Idempotent(t *testing.T) {
	s := newTestStore(t)
	at := time.Now()
	first, err := s.UnlockAchievement("fern", "first_focus", at)
	if err != nil || !first {
		t.Fatalf("first unlock: %v %v", first, err)
	}
	again, err := s.UnlockAchievement("fern", "first_focus", at.Add(time.Hour))
	if err != nil || again {
		t.Fatalf("second unlock: %v %v", again, err)
	}
	other, _ := s.UnlockAchievement("ivy", "first_focus", at)
	if !other {
		t.Fatal("achievements are per plant")
	}
}

func TestListAchievements_Ordered(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.UnlockAchievement("fern", "ten_focus", base.Add(time.Hour))
	s.UnlockAchievement("fern", "first_focus", base)
	got, err := s.ListAchievements("fern")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "first_focus" || got[1].ID != "ten_focus" {
		t.Fatalf("order: %+v", got)
	}
}
