package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/daviddao/sprout/pkg/model"
	"github.com/daviddao/sprout/pkg/presetio"
	"github.com/daviddao/sprout/pkg/schedule"
	"github.com/daviddao/sprout/pkg/store"
)

func (a *app) cmdPreset(args []string) int {
	if len(args) == 0 {
		return a.presetList(nil)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list", "ls":
		return a.presetList(rest)
	case "show":
		return a.presetShow(rest)
	case "add":
		return a.presetAdd(rest)
	case "update", "edit":
		return a.presetUpdate(rest)
	case "rm", "remove", "delete":
		return a.presetRemove(rest)
	case "export":
		return a.presetExport(rest)
	case "import":
		return a.presetImport(rest)
	default:
		fmt.Fprintf(os.Stderr, "sp: preset: unknown subcommand %q\n", sub)
		return exitError
	}
}

// presetJSON is a preset plus its derived session shape.
type presetJSON struct {
	model.Preset
	TotalFocusBlocks int `json:"total_focus_blocks"`
	SessionSeconds   int `json:"session_seconds"`
}

func describePreset(p model.Preset) presetJSON {
	cfg := p.Configuration()
	return presetJSON{Preset: p, TotalFocusBlocks: cfg.Blocks(), SessionSeconds: schedule.TotalSeconds(cfg)}
}

func (a *app) presetList(args []string) int {
	flags := flag.NewFlagSet("preset list", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	presets, err := a.store.ListPresets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset list: %v\n", err)
		return exitError
	}

	if *jsonOut {
		out := make([]presetJSON, len(presets))
		for i, p := range presets {
			out[i] = describePreset(p)
		}
		printJSON(map[string]interface{}{"presets": out, "count": len(out)})
		return exitOK
	}

	if err := renderPresetTable(os.Stdout, presets); err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset list: %v\n", err)
		return exitError
	}
	return exitOK
}

func renderPresetTable(w io.Writer, presets []model.Preset) error {
	t := newTable(w, "Name", "Focus", "Short", "Long", "Per macro", "Repeats", "Session")
	for _, p := range presets {
		d := describePreset(p)
		if err := t.Append([]string{
			p.Name,
			fmt.Sprintf("%dm", p.FocusMinutes),
			fmt.Sprintf("%dm", p.ShortBreakMinutes),
			fmt.Sprintf("%dm", p.LongBreakMinutes),
			strconv.Itoa(p.FocusBlocksPerMacro),
			strconv.Itoa(p.MacroRepeats),
			humanDuration(d.SessionSeconds),
		}); err != nil {
			return err
		}
	}
	return t.Render()
}

func (a *app) presetShow(args []string) int {
	flags := flag.NewFlagSet("preset show", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return exitError
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "sp: usage: sp preset show <name>")
		return exitError
	}

	p, err := a.store.GetPreset(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset show: %v\n", err)
		return exitError
	}
	d := describePreset(*p)
	if *jsonOut {
		printJSON(d)
		return exitOK
	}
	shorts, longs := schedule.Gaps(p.Configuration())
	fmt.Printf("%s\n", p.Name)
	fmt.Printf("  focus:       %d min x %d blocks (%d per macro, %d repeats)\n",
		p.FocusMinutes, d.TotalFocusBlocks, p.FocusBlocksPerMacro, p.MacroRepeats)
	fmt.Printf("  short break: %d min x %d\n", p.ShortBreakMinutes, shorts)
	fmt.Printf("  long break:  %d min x %d\n", p.LongBreakMinutes, longs)
	fmt.Printf("  session:     %s\n", humanDuration(d.SessionSeconds))
	return exitOK
}

// presetFlags registers the value flags shared by add and update.
type presetFlags struct {
	focus, short, long, perMacro, repeats *int
}

func registerPresetFlags(flags *flag.FlagSet, def model.Preset) presetFlags {
	return presetFlags{
		focus:    flags.Int("focus", def.FocusMinutes, "focus block length in minutes"),
		short:    flags.Int("short", def.ShortBreakMinutes, "short break length in minutes"),
		long:     flags.Int("long", def.LongBreakMinutes, "long break length in minutes"),
		perMacro: flags.Int("per-macro", def.FocusBlocksPerMacro, "focus blocks per macro (long break after each macro)"),
		repeats:  flags.Int("repeats", def.MacroRepeats, "number of macros in a session"),
	}
}

// apply copies the flags that were set on the command line onto p.
func (pf presetFlags) apply(flags *flag.FlagSet, p *model.Preset) {
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "focus":
			p.FocusMinutes = *pf.focus
		case "short":
			p.ShortBreakMinutes = *pf.short
		case "long":
			p.LongBreakMinutes = *pf.long
		case "per-macro":
			p.FocusBlocksPerMacro = *pf.perMacro
		case "repeats":
			p.MacroRepeats = *pf.repeats
		}
	})
}

func (a *app) presetAdd(args []string) int {
	flags := flag.NewFlagSet("preset add", flag.ContinueOnError)
	def := model.DefaultPreset()
	pf := registerPresetFlags(flags, def)
	name, rest := splitName(args)
	if err := flags.Parse(rest); err != nil {
		return exitError
	}
	if name == "" && flags.NArg() == 1 {
		name = flags.Arg(0)
	}
	if name == "" {
		fmt.Fprintln(os.Stderr, "sp: usage: sp preset add <name> [--focus N] [--short N] [--long N] [--per-macro N] [--repeats N]")
		return exitError
	}

	p := model.Preset{
		Name:                name,
		FocusMinutes:        *pf.focus,
		ShortBreakMinutes:   *pf.short,
		LongBreakMinutes:    *pf.long,
		FocusBlocksPerMacro: *pf.perMacro,
		MacroRepeats:        *pf.repeats,
	}
	created, err := a.store.CreatePreset(&p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset add: %v\n", err)
		return exitError
	}
	fmt.Printf("added preset %q (%s per session)\n", created.Name, humanDuration(describePreset(*created).SessionSeconds))
	return exitOK
}

func (a *app) presetUpdate(args []string) int {
	flags := flag.NewFlagSet("preset update", flag.ContinueOnError)
	pf := registerPresetFlags(flags, model.Preset{})
	rename := flags.String("name", "", "new preset name")
	name, rest := splitName(args)
	if err := flags.Parse(rest); err != nil {
		return exitError
	}
	if name == "" && flags.NArg() == 1 {
		name = flags.Arg(0)
	}
	if name == "" {
		fmt.Fprintln(os.Stderr, "sp: usage: sp preset update <name> [--name NEW] [--focus N] ...")
		return exitError
	}

	current, err := a.store.GetPreset(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset update: %v\n", err)
		return exitError
	}
	next := *current
	next.Name = *rename
	pf.apply(flags, &next)

	updated, err := a.store.UpdatePreset(current.Name, &next)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset update: %v\n", err)
		return exitError
	}
	fmt.Printf("updated preset %q\n", updated.Name)
	return exitOK
}

func (a *app) presetRemove(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "sp: usage: sp preset rm <name>")
		return exitError
	}
	if err := a.store.DeletePreset(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset rm: %v\n", err)
		if errors.Is(err, store.ErrLastPreset) {
			fmt.Fprintln(os.Stderr, "  add another preset first")
		}
		return exitError
	}
	fmt.Printf("removed preset %q\n", args[0])
	return exitOK
}

func (a *app) presetExport(args []string) int {
	flags := flag.NewFlagSet("preset export", flag.ContinueOnError)
	out := flags.String("out", "", "write to file instead of stdout")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	presets, err := a.store.ListPresets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset export: %v\n", err)
		return exitError
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sp: preset export: %v\n", err)
			return exitError
		}
		defer f.Close()
		w = f
	}
	if err := presetio.Encode(w, presets); err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset export: %v\n", err)
		return exitError
	}
	if *out != "" {
		fmt.Fprintf(os.Stderr, "exported %d preset(s) to %s\n", len(presets), *out)
	}
	return exitOK
}

func (a *app) presetImport(args []string) int {
	flags := flag.NewFlagSet("preset import", flag.ContinueOnError)
	replace := flags.Bool("replace", false, "overwrite presets that already exist")
	path, rest := splitName(args)
	if err := flags.Parse(rest); err != nil {
		return exitError
	}
	if path == "" && flags.NArg() == 1 {
		path = flags.Arg(0)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "sp: usage: sp preset import <file|-> [--replace]")
		return exitError
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sp: preset import: %v\n", err)
			return exitError
		}
		defer f.Close()
		r = f
	}
	presets, err := presetio.Decode(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset import: %v\n", err)
		return exitError
	}

	res, err := a.importPresets(presets, *replace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sp: preset import: %v\n", err)
		return exitError
	}
	fmt.Printf("imported %d preset(s): %d added, %d replaced, %d skipped\n",
		len(presets), res.added, res.replaced, len(res.skipped))
	for _, name := range res.skipped {
		fmt.Printf("  skipped %q (exists; use --replace)\n", name)
	}
	return exitOK
}

type importResult struct {
	added, replaced int
	skipped         []string
}

func (a *app) importPresets(presets []model.Preset, replace bool) (importResult, error) {
	var res importResult
	for i := range presets {
		p := presets[i]
		_, err := a.store.CreatePreset(&p)
		switch {
		case err == nil:
			res.added++
		case errors.Is(err, store.ErrPresetExists) && replace:
			if _, err := a.store.UpdatePreset(p.Name, &p); err != nil {
				return res, err
			}
			res.replaced++
		case errors.Is(err, store.ErrPresetExists):
			res.skipped = append(res.skipped, p.Name)
		default:
			return res, err
		}
	}
	return res, nil
}

// splitName lets a positional name precede flags ("add deep --focus 50"),
// which the flag package would otherwise stop parsing at.
func splitName(args []string) (string, []string) {
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		return args[0], args[1:]
	}
	return "", args
}
