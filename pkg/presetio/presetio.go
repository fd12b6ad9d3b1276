// Package presetio reads and writes preset collections as YAML, for
// sharing presets between machines or keeping them in a dotfiles repo.
//
// Document shape:
//
//	presets:
//	  - name: Classic
//	    focus_minutes: 25
//	    short_break_minutes: 5
//	    long_break_minutes: 15
//	    focus_blocks_per_macro: 4
//	    macro_repeats: 1
package presetio

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/daviddao/sprout/pkg/model"
)

var (
	// ErrMissingName is returned when an entry has an empty name.
	ErrMissingName = errors.New("preset entry has no name")

	// ErrDuplicateName is returned when two entries share a name, ignoring case.
	ErrDuplicateName = errors.New("duplicate preset name")
)

type yamlPreset struct {
	Name                string `yaml:"name"`
	FocusMinutes        int    `yaml:"focus_minutes"`
	ShortBreakMinutes   int    `yaml:"short_break_minutes"`
	LongBreakMinutes    int    `yaml:"long_break_minutes"`
	FocusBlocksPerMacro int    `yaml:"focus_blocks_per_macro"`
	MacroRepeats        int    `yaml:"macro_repeats"`
}

type yamlDocument struct {
	Presets []yamlPreset `yaml:"presets"`
}

// Encode writes presets to w. IDs and timestamps are not exported.
func Encode(w io.Writer, presets []model.Preset) error {
	doc := yamlDocument{Presets: make([]yamlPreset, 0, len(presets))}
	for _, p := range presets {
		doc.Presets = append(doc.Presets, yamlPreset{
			Name:                p.Name,
			FocusMinutes:        p.FocusMinutes,
			ShortBreakMinutes:   p.ShortBreakMinutes,
			LongBreakMinutes:    p.LongBreakMinutes,
			FocusBlocksPerMacro: p.FocusBlocksPerMacro,
			MacroRepeats:        p.MacroRepeats,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "marshal presets yaml")
	}
	return errors.Wrap(enc.Close(), "flush presets yaml")
}

// Decode reads a preset document from r. Names are trimmed; entries with
// no name or a repeated name are rejected. Values are not clamped here;
// the engine clamps them when a session is configured.
func Decode(r io.Reader) ([]model.Preset, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "parse presets yaml")
	}

	seen := make(map[string]bool, len(doc.Presets))
	out := make([]model.Preset, 0, len(doc.Presets))
	for i, yp := range doc.Presets {
		name := strings.TrimSpace(yp.Name)
		if name == "" {
			return nil, errors.Wrapf(ErrMissingName, "entry %d", i+1)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, errors.Wrapf(ErrDuplicateName, "%q", name)
		}
		seen[key] = true
		out = append(out, model.Preset{
			Name:                name,
			FocusMinutes:        yp.FocusMinutes,
			ShortBreakMinutes:   yp.ShortBreakMinutes,
			LongBreakMinutes:    yp.LongBreakMinutes,
			FocusBlocksPerMacro: yp.FocusBlocksPerMacro,
			MacroRepeats:        yp.MacroRepeats,
		})
	}
	return out, nil
}
