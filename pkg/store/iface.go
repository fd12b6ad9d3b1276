// iface.go defines the StoreInterface for dependency injection and testing.
//
// The concrete *Store satisfies it. The CLI and the progress tracker accept
// narrower interfaces carved from the same method set.
package store

import (
	"time"

	"github.com/daviddao/sprout/pkg/model"
)

// StoreInterface defines the full set of store operations.
type StoreInterface interface {
	// Close closes the database connection.
	Close() error

	// --- Presets ---

	// CreatePreset stores a new uniquely named preset.
	CreatePreset(p *model.Preset) (*model.Preset, error)

	// GetPreset retrieves a preset by name (case-insensitive).
	GetPreset(name string) (*model.Preset, error)

	// ListPresets returns all presets ordered by name.
	ListPresets() ([]model.Preset, error)

	// UpdatePreset replaces a preset's values, optionally renaming it.
	UpdatePreset(name string, p *model.Preset) (*model.Preset, error)

	// DeletePreset removes a preset unless it is the last one.
	DeletePreset(name string) error

	// CountPresets returns the number of stored presets.
	CountPresets() int64

	// --- Block events ---

	// InsertBlockEvent appends a focus block outcome to the log.
	InsertBlockEvent(e *model.BlockEvent) (int64, error)

	// ListBlockEvents returns the newest block events first.
	ListBlockEvents(plant string, kind model.BlockEventKind, limit int) ([]model.BlockEvent, error)

	// CountBlockEvents counts block events matching plant and kind.
	CountBlockEvents(plant string, kind model.BlockEventKind) int64

	// --- Plants ---

	// GetPlant returns a plant's growth record (zero record if unknown).
	GetPlant(name string) (*model.Plant, error)

	// SavePlant upserts a plant growth record.
	SavePlant(p *model.Plant) error

	// ListPlants returns all plants ordered by name.
	ListPlants() ([]model.Plant, error)

	// RecordBlock logs a block event and updates its plant atomically.
	RecordBlock(e *model.BlockEvent, update func(*model.Plant) error) (*model.Plant, error)

	// --- Achievements ---

	// UnlockAchievement records an achievement; true when newly unlocked.
	UnlockAchievement(plant, id string, at time.Time) (bool, error)

	// ListAchievements returns a plant's achievements in unlock order.
	ListAchievements(plant string) ([]model.Achievement, error)
}

// Compile-time check that *Store implements StoreInterface.
var _ StoreInterface = (*Store)(nil)
