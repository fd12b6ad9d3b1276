package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const starterConfig = `# sprout configuration. Environment variables (SPROUT_*) and command-line
# flags override these values.

# SQLite database path.
db = ".sprout/sprout.db"

# Plant that completed focus blocks grow.
plant = "default"

# debug, info, warn or error.
log_level = "info"

[timer]
# Clock period for one engine second. Shorter values fast-forward sessions.
tick_interval = "1s"

# Free-form sessions shorter than this many minutes do not count toward
# progress. 0 counts every session.
notify_min_focus_minutes = 0

# Preset used by 'sp run' and 'sp plan' when none is given.
default_preset = "Classic"
`

func (a *app) cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	writeConfig := flags.Bool("write-config", false, "write a starter config file if none exists")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	presets, err := a.store.ListPresets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: init: database error: %v\n", err)
		return exitError
	}

	fmt.Printf("initialized sprout (db: %s)\n", a.cfg.DB)
	fmt.Printf("  %d preset(s), default %q\n", len(presets), a.cfg.Timer.DefaultPreset)
	fmt.Printf("  plant: %s\n", a.cfg.Plant)

	if *writeConfig {
		created, err := writeStarterConfig(a.configPath)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "sp: init: config: %v\n", err)
			return exitError
		case created:
			fmt.Printf("  wrote %s\n", a.configPath)
		default:
			fmt.Printf("  config exists: %s\n", a.configPath)
		}
	}

	fmt.Println()
	fmt.Println("next steps:")
	fmt.Println("  sp plan        # see the session timeline")
	fmt.Println("  sp run         # start focusing")
	fmt.Println("  sp status      # watch your plant grow")
	return exitOK
}

// writeStarterConfig writes starterConfig to path unless a file already
// exists there. It reports whether a file was written.
func writeStarterConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrapf(err, "stat %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return false, errors.Wrapf(err, "write %s", path)
	}
	return true, nil
}
