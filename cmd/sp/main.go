// Command sp is the sprout CLI: Pomodoro focus sessions that grow a plant.
package main

import (
	"flag"
	"fmt"
	"os"
)

const version = "0.1.0"

// Exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitAborted = 2
)

func main() {
	global := flag.NewFlagSet("sp", flag.ContinueOnError)
	global.Usage = printUsage
	configPath := global.String("config", "", "config file (default: $SPROUT_CONFIG or <user config dir>/sprout/config.toml)")
	dbPath := global.String("db", "", "SQLite database path")
	logLevel := global.String("log-level", "", "log level: debug, info, warn, error")
	verbose := global.Bool("verbose", false, "same as --log-level=debug")
	if err := global.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return
		}
		os.Exit(exitError)
	}

	args := global.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(exitError)
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("sp", version)
		return
	}

	overrides := map[string]any{}
	if *dbPath != "" {
		overrides["db"] = *dbPath
	}
	if *logLevel != "" {
		overrides["log_level"] = *logLevel
	}
	if *verbose {
		overrides["log_level"] = "debug"
	}

	a, err := newApp(*configPath, overrides)
	if err != nil {
		fatal("%v", err)
	}
	code := a.dispatch(args[0], args[1:])
	a.Close()
	os.Exit(code)
}

func (a *app) dispatch(cmd string, args []string) int {
	switch cmd {
	// Setup
	case "init":
		return a.cmdInit(args)
	case "preset", "presets":
		return a.cmdPreset(args)

	// Sessions
	case "plan":
		return a.cmdPlan(args)
	case "run", "focus":
		return a.cmdRun(args)

	// Progress
	case "log":
		return a.cmdLog(args)
	case "status":
		return a.cmdStatus(args)

	default:
		fmt.Fprintf(os.Stderr, "sp: unknown command %q\n", cmd)
		fmt.Fprintln(os.Stderr, "Run 'sp --help' for usage.")
		return exitError
	}
}

func printUsage() {
	fmt.Print(`sp: Pomodoro focus sessions that grow a plant

Focus blocks alternate with short breaks; every Nth block earns a long
break. Completed blocks grow your plant; aborted blocks reset its streak.

Usage:
  sp [global flags] <command> [flags]

Setup:
  init [--write-config]      Create the database and seed the default preset
  preset list                List presets
  preset show <name>         Show one preset and its session length
  preset add <name> [...]    Add a preset (--focus --short --long --per-macro --repeats)
  preset update <name> [...] Change a preset (same flags, plus --name to rename)
  preset rm <name>           Delete a preset (the last one is kept)
  preset export [--out F]    Write presets as YAML
  preset import <file|->     Read presets from YAML (--replace to overwrite)

Sessions:
  plan [--preset P | --minutes N]       Show the block timeline and total length
  run  [--preset P | --minutes N]       Run a focus session in the terminal
       [--plant NAME] [--tick D]

Progress:
  log [--plant P] [--kind K] [--limit N]  Focus block history
  status [--plant P] [--all]              Plant stage, counters, achievements

Global flags:
  --config FILE     Config file
  --db PATH         SQLite database path
  --log-level L     debug, info, warn, error
  --verbose         Same as --log-level=debug

Aliases:
  focus = run, presets = preset

Environment:
  SPROUT_CONFIG                         Config file path
  SPROUT_DB                             SQLite database path (default: .sprout/sprout.db)
  SPROUT_PLANT                          Default plant (default: default)
  SPROUT_LOG_LEVEL                      Log level (default: info)
  SPROUT_TIMER_TICK_INTERVAL            Clock period, one engine second (default: 1s)
  SPROUT_TIMER_NOTIFY_MIN_FOCUS_MINUTES Skip completion notices for shorter free-form blocks
  SPROUT_TIMER_DEFAULT_PRESET           Preset used when none is given (default: Classic)

Most commands support --json for machine-readable output.

Exit codes:
  0  success, or session completed
  1  error
  2  session aborted
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "sp: "+format+"\n", args...)
	os.Exit(exitError)
}
