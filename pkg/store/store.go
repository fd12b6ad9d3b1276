// Package store manages all SQLite persistence for sprout: named session
// presets, the append-only focus block log, plant growth counters and
// unlocked achievements.
//
// Nothing here is on the engine's critical path. The run loop persists
// notices after each tick and only logs failures; a session keeps going
// when the database is unavailable.
package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/daviddao/sprout/pkg/model"

	_ "modernc.org/sqlite"
)

var (
	// ErrPresetNotFound is returned when no preset has the requested name.
	ErrPresetNotFound = errors.New("preset not found")

	// ErrPresetExists is returned when a preset name is already taken.
	ErrPresetExists = errors.New("preset already exists")

	// ErrLastPreset is returned when deleting the only remaining preset.
	ErrLastPreset = errors.New("cannot delete the last preset")

	// ErrInvalidPresetName is returned for empty or blank preset names.
	ErrInvalidPresetName = errors.New("invalid preset name")
)

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the SQLite database, initializes the schema and
// seeds the default preset into an empty preset table.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	if err := s.seedDefaultPreset(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "seed default preset")
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS presets (
		id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		name                   TEXT NOT NULL UNIQUE COLLATE NOCASE,
		focus_minutes          INTEGER NOT NULL,
		short_break_minutes    INTEGER NOT NULL,
		long_break_minutes     INTEGER NOT NULL,
		focus_blocks_per_macro INTEGER NOT NULL,
		macro_repeats          INTEGER NOT NULL,
		created_at             TEXT NOT NULL,
		updated_at             TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS block_events (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id      TEXT NOT NULL,
		plant           TEXT NOT NULL,
		kind            TEXT NOT NULL,
		preset          TEXT,
		block_index     INTEGER NOT NULL,
		total_blocks    INTEGER NOT NULL,
		planned_seconds INTEGER NOT NULL,
		spent_seconds   INTEGER NOT NULL,
		created_at      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_block_events_plant ON block_events(plant, id);
	CREATE INDEX IF NOT EXISTS idx_block_events_session ON block_events(session_id);

	CREATE TABLE IF NOT EXISTS plants (
		name          TEXT PRIMARY KEY,
		pomodoros     INTEGER NOT NULL DEFAULT 0,
		aborted       INTEGER NOT NULL DEFAULT 0,
		streak        INTEGER NOT NULL DEFAULT 0,
		best_streak   INTEGER NOT NULL DEFAULT 0,
		focus_seconds INTEGER NOT NULL DEFAULT 0,
		updated_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS achievements (
		plant       TEXT NOT NULL,
		id          TEXT NOT NULL,
		unlocked_at TEXT NOT NULL,
		PRIMARY KEY (plant, id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) seedDefaultPreset() error {
	p := model.DefaultPreset()
	now := s.now().Format(time.RFC3339Nano)
	return retryOnContention("seed preset", func() error {
		_, err := s.db.Exec(
			`INSERT INTO presets (name, focus_minutes, short_break_minutes, long_break_minutes,
			                      focus_blocks_per_macro, macro_repeats, created_at, updated_at)
			 SELECT ?, ?, ?, ?, ?, ?, ?, ?
			 WHERE NOT EXISTS (SELECT 1 FROM presets)`,
			p.Name, p.FocusMinutes, p.ShortBreakMinutes, p.LongBreakMinutes,
			p.FocusBlocksPerMacro, p.MacroRepeats, now, now,
		)
		return err
	})
}

// ---------------------------------------------------------------------------
// Presets
// ---------------------------------------------------------------------------

const presetColumns = `id, name, focus_minutes, short_break_minutes, long_break_minutes,
	focus_blocks_per_macro, macro_repeats, created_at, updated_at`

// CreatePreset stores a new preset. Names are unique ignoring case.
func (s *Store) CreatePreset(p *model.Preset) (*model.Preset, error) {
	name, err := normalizeName(p.Name)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var id int64
	err = retryOnContention("create preset", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		if taken, err := presetNameTaken(tx, name, 0); err != nil {
			return err
		} else if taken {
			return errors.Wrapf(ErrPresetExists, "%q", name)
		}
		res, err := tx.Exec(
			`INSERT INTO presets (name, focus_minutes, short_break_minutes, long_break_minutes,
			                      focus_blocks_per_macro, macro_repeats, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			name, p.FocusMinutes, p.ShortBreakMinutes, p.LongBreakMinutes,
			p.FocusBlocksPerMacro, p.MacroRepeats,
			now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	created := *p
	created.ID = id
	created.Name = name
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetPreset retrieves a preset by name, ignoring case.
func (s *Store) GetPreset(name string) (*model.Preset, error) {
	row := s.db.QueryRow(`SELECT `+presetColumns+` FROM presets WHERE name = ?`, strings.TrimSpace(name))
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrPresetNotFound, "%q", name)
	}
	return p, err
}

// ListPresets returns all presets ordered by name.
func (s *Store) ListPresets() ([]model.Preset, error) {
	rows, err := s.db.Query(`SELECT ` + presetColumns + ` FROM presets ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []model.Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *p)
	}
	return presets, rows.Err()
}

// UpdatePreset replaces the values of the preset called name. A non-empty
// p.Name different from name renames the preset.
func (s *Store) UpdatePreset(name string, p *model.Preset) (*model.Preset, error) {
	newName := p.Name
	if strings.TrimSpace(newName) == "" {
		newName = name
	}
	newName, err := normalizeName(newName)
	if err != nil {
		return nil, err
	}
	now := s.now().Format(time.RFC3339Nano)
	err = retryOnContention("update preset", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		var id int64
		if err := tx.QueryRow(`SELECT id FROM presets WHERE name = ?`, strings.TrimSpace(name)).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errors.Wrapf(ErrPresetNotFound, "%q", name)
			}
			return err
		}
		if taken, err := presetNameTaken(tx, newName, id); err != nil {
			return err
		} else if taken {
			return errors.Wrapf(ErrPresetExists, "%q", newName)
		}
		if _, err := tx.Exec(
			`UPDATE presets SET name = ?, focus_minutes = ?, short_break_minutes = ?,
			        long_break_minutes = ?, focus_blocks_per_macro = ?, macro_repeats = ?,
			        updated_at = ?
			 WHERE id = ?`,
			newName, p.FocusMinutes, p.ShortBreakMinutes, p.LongBreakMinutes,
			p.FocusBlocksPerMacro, p.MacroRepeats, now, id,
		); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return s.GetPreset(newName)
}

// DeletePreset removes a preset. The last remaining preset cannot be
// deleted.
func (s *Store) DeletePreset(name string) error {
	return retryOnContention("delete preset", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		var id int64
		if err := tx.QueryRow(`SELECT id FROM presets WHERE name = ?`, strings.TrimSpace(name)).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errors.Wrapf(ErrPresetNotFound, "%q", name)
			}
			return err
		}
		var count int64
		if err := tx.QueryRow(`SELECT COUNT(*) FROM presets`).Scan(&count); err != nil {
			return err
		}
		if count <= 1 {
			return errors.Wrapf(ErrLastPreset, "%q", name)
		}
		if _, err := tx.Exec(`DELETE FROM presets WHERE id = ?`, id); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// CountPresets returns the number of stored presets.
func (s *Store) CountPresets() int64 {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM presets`).Scan(&count); err != nil {
		return 0
	}
	return count
}

func presetNameTaken(tx *sql.Tx, name string, exceptID int64) (bool, error) {
	var n int
	err := tx.QueryRow(`SELECT COUNT(*) FROM presets WHERE name = ? AND id != ?`, name, exceptID).Scan(&n)
	return n > 0, err
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidPresetName
	}
	return name, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreset(row rowScanner) (*model.Preset, error) {
	var p model.Preset
	var createdStr, updatedStr string
	if err := row.Scan(&p.ID, &p.Name, &p.FocusMinutes, &p.ShortBreakMinutes, &p.LongBreakMinutes,
		&p.FocusBlocksPerMacro, &p.MacroRepeats, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	var parseErr error
	if p.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdStr); parseErr != nil {
		return nil, errors.Wrapf(parseErr, "parse created_at for preset %s", p.Name)
	}
	if p.UpdatedAt, parseErr = time.Parse(time.RFC3339Nano, updatedStr); parseErr != nil {
		return nil, errors.Wrapf(parseErr, "parse updated_at for preset %s", p.Name)
	}
	return &p, nil
}

// ---------------------------------------------------------------------------
// Block events
// ---------------------------------------------------------------------------

const insertBlockEventSQL = `INSERT INTO block_events (session_id, plant, kind, preset, block_index,
                          total_blocks, planned_seconds, spent_seconds, created_at)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func blockEventArgs(e *model.BlockEvent) []any {
	return []any{
		e.SessionID, e.Plant, string(e.Kind), e.Preset, e.BlockIndex, e.TotalBlocks,
		e.PlannedSeconds, e.SpentSeconds, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// InsertBlockEvent appends a focus block outcome to the log. Returns the row ID.
func (s *Store) InsertBlockEvent(e *model.BlockEvent) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	var lastID int64
	err := retryOnContention("insert block event", func() error {
		res, err := s.db.Exec(insertBlockEventSQL, blockEventArgs(e)...)
		if err != nil {
			return err
		}
		lastID, err = res.LastInsertId()
		return err
	})
	e.ID = lastID
	return lastID, err
}

// ListBlockEvents returns the newest block events first. An empty plant or
// kind matches everything.
func (s *Store) ListBlockEvents(plant string, kind model.BlockEventKind, limit int) ([]model.BlockEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, session_id, plant, kind, COALESCE(preset,''), block_index, total_blocks,
		        planned_seconds, spent_seconds, created_at
		 FROM block_events
		 WHERE (? = '' OR plant = ?) AND (? = '' OR kind = ?)
		 ORDER BY id DESC LIMIT ?`,
		plant, plant, string(kind), string(kind), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.BlockEvent
	for rows.Next() {
		var e model.BlockEvent
		var kindStr, createdStr string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Plant, &kindStr, &e.Preset, &e.BlockIndex,
			&e.TotalBlocks, &e.PlannedSeconds, &e.SpentSeconds, &createdStr); err != nil {
			return nil, err
		}
		e.Kind = model.BlockEventKind(kindStr)
		var parseErr error
		if e.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdStr); parseErr != nil {
			return nil, errors.Wrapf(parseErr, "parse created_at for block event %d", e.ID)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountBlockEvents counts block events; empty plant or kind match everything.
func (s *Store) CountBlockEvents(plant string, kind model.BlockEventKind) int64 {
	var count int64
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM block_events WHERE (? = '' OR plant = ?) AND (? = '' OR kind = ?)`,
		plant, plant, string(kind), string(kind),
	).Scan(&count); err != nil {
		return 0
	}
	return count
}

// ---------------------------------------------------------------------------
// Plants
// ---------------------------------------------------------------------------

// GetPlant returns the growth record for a plant. An unknown plant yields a
// zero record carrying the name.
func (s *Store) GetPlant(name string) (*model.Plant, error) {
	row := s.db.QueryRow(
		`SELECT name, pomodoros, aborted, streak, best_streak, focus_seconds, updated_at
		 FROM plants WHERE name = ?`, name,
	)
	p, err := scanPlant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.Plant{Name: name}, nil
	}
	return p, err
}

const upsertPlantSQL = `INSERT INTO plants (name, pomodoros, aborted, streak, best_streak, focus_seconds, updated_at)
 VALUES (?, ?, ?, ?, ?, ?, ?)
 ON CONFLICT(name) DO UPDATE SET
   pomodoros = excluded.pomodoros,
   aborted = excluded.aborted,
   streak = excluded.streak,
   best_streak = excluded.best_streak,
   focus_seconds = excluded.focus_seconds,
   updated_at = excluded.updated_at`

func plantArgs(p *model.Plant) []any {
	return []any{p.Name, p.Pomodoros, p.Aborted, p.Streak, p.BestStreak, p.FocusSeconds,
		p.UpdatedAt.Format(time.RFC3339Nano)}
}

// SavePlant upserts a plant growth record.
func (s *Store) SavePlant(p *model.Plant) error {
	p.UpdatedAt = s.now()
	return retryOnContention("save plant", func() error {
		_, err := s.db.Exec(upsertPlantSQL, plantArgs(p)...)
		return err
	})
}

// ListPlants returns all plants ordered by name.
func (s *Store) ListPlants() ([]model.Plant, error) {
	rows, err := s.db.Query(
		`SELECT name, pomodoros, aborted, streak, best_streak, focus_seconds, updated_at
		 FROM plants ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plants []model.Plant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, *p)
	}
	return plants, rows.Err()
}

// RecordBlock appends e to the block log and applies update to the plant
// named by e.Plant in a single transaction. If update returns an error
// nothing is written. Returns the plant as saved.
func (s *Store) RecordBlock(e *model.BlockEvent, update func(*model.Plant) error) (*model.Plant, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	var saved model.Plant
	var eventID int64
	err := retryOnContention("record block", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		res, err := tx.Exec(insertBlockEventSQL, blockEventArgs(e)...)
		if err != nil {
			return err
		}
		if eventID, err = res.LastInsertId(); err != nil {
			return err
		}

		p, err := scanPlant(tx.QueryRow(
			`SELECT name, pomodoros, aborted, streak, best_streak, focus_seconds, updated_at
			 FROM plants WHERE name = ?`, e.Plant,
		))
		if errors.Is(err, sql.ErrNoRows) {
			p, err = &model.Plant{Name: e.Plant}, nil
		}
		if err != nil {
			return err
		}
		if err := update(p); err != nil {
			return err
		}
		p.Name = e.Plant
		p.UpdatedAt = s.now()
		if _, err := tx.Exec(upsertPlantSQL, plantArgs(p)...); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		saved = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.ID = eventID
	return &saved, nil
}

func scanPlant(row rowScanner) (*model.Plant, error) {
	var p model.Plant
	var updatedStr string
	if err := row.Scan(&p.Name, &p.Pomodoros, &p.Aborted, &p.Streak, &p.BestStreak,
		&p.FocusSeconds, &updatedStr); err != nil {
		return nil, err
	}
	var parseErr error
	if p.UpdatedAt, parseErr = time.Parse(time.RFC3339Nano, updatedStr); parseErr != nil {
		return nil, errors.Wrapf(parseErr, "parse updated_at for plant %s", p.Name)
	}
	return &p, nil
}

// ---------------------------------------------------------------------------
// Achievements
// ---------------------------------------------------------------------------

// UnlockAchievement records an achievement for a plant. Returns true only
// when it was not unlocked before.
func (s *Store) UnlockAchievement(plant, id string, at time.Time) (bool, error) {
	var affected int64
	err := retryOnContention("unlock achievement", func() error {
		res, err := s.db.Exec(
			`INSERT INTO achievements (plant, id, unlocked_at) VALUES (?, ?, ?)
			 ON CONFLICT(plant, id) DO NOTHING`,
			plant, id, at.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected > 0, err
}

// ListAchievements returns a plant's achievements in unlock order.
func (s *Store) ListAchievements(plant string) ([]model.Achievement, error) {
	rows, err := s.db.Query(
		`SELECT plant, id, unlocked_at FROM achievements WHERE plant = ?
		 ORDER BY unlocked_at ASC, id ASC`, plant,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Achievement
	for rows.Next() {
		var a model.Achievement
		var atStr string
		if err := rows.Scan(&a.Plant, &a.ID, &atStr); err != nil {
			return nil, err
		}
		var parseErr error
		if a.UnlockedAt, parseErr = time.Parse(time.RFC3339Nano, atStr); parseErr != nil {
			return nil, errors.Wrapf(parseErr, "parse unlocked_at for achievement %s", a.ID)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
