package stitch

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zyedidia/stitch/inject"
	"github.com/zyedidia/stitch/logger"
)

// Flags for modifying the behavior of Stitch.
type Flags struct {
	// Keyed bindings in command line order. When empty, a second positional
	// argument is embedded as a single unlabeled JSON payload.
	Bindings inject.Bindings
	// Extra keys, added to the built-in table.
	Types    inject.TypeTable
	Marker   string
	Output   string
	Style    string
	LogLevel string
	RunDir   string
	Tool     string
	// Diagnostics are written here. Defaults to os.Stderr.
	Stderr   io.Writer
}

var ErrUsage = errors.New("usage: stitch [flags] TEMPLATE [DATA]")
var ErrUpToDate = errors.New("up to date")

// Builds the injector configuration from the flags and positional
// arguments, returning the template path.
func configure(args []string, flags Flags, types inject.TypeTable) (string, inject.Config, error) {
	cfg := inject.Config{
		Marker: flags.Marker,
	}
	if len(args) == 0 {
		return "", cfg, fmt.Errorf("no template: %w", ErrUsage)
	}
	tmpl := args[0]

	if flags.Bindings.Len() > 0 {
		if len(args) != 1 {
			return "", cfg, fmt.Errorf("unexpected argument '%s' with keyed bindings: %w", args[1], ErrUsage)
		}
		bs, err := flags.Bindings.Resolve(types)
		if err != nil {
			return "", cfg, err
		}
		cfg.Bindings = bs
		return tmpl, cfg, nil
	}

	switch len(args) {
	case 1:
		return "", cfg, fmt.Errorf("no data files: %w", ErrUsage)
	case 2:
		cfg.Bindings = []inject.Binding{inject.Single(args[1])}
		return tmpl, cfg, nil
	}
	return "", cfg, fmt.Errorf("too many arguments: %w", ErrUsage)
}

// Warns about data files whose names do not fit their declared type.
func checkTypes(log logger.Logger, bs []inject.Binding, types inject.TypeTable) error {
	for _, b := range bs {
		ct, ok := types[b.Key]
		if !ok {
			continue
		}
		ok, err := ct.Matches(b.Path)
		if err != nil {
			return err
		}
		if !ok {
			log.Warn("data file does not match its content type", "key", b.Key, "path", b.Path, "type", ct.Mime, "glob", ct.Glob)
		}
	}
	return nil
}

// Run injects the data files named by args and flags into the template named
// by args, writing the result to out or to flags.Output. If the output file
// already holds the result it is left untouched and ErrUpToDate is returned.
// Malformed invocations fail with ErrUsage before any file is touched.
func Run(out io.Writer, args []string, flags Flags) error {
	types := inject.DefaultTypes().Merge(flags.Types)

	var tmpl string
	var cfg inject.Config
	if flags.Tool == "" {
		var err error
		tmpl, cfg, err = configure(args, flags, types)
		if err != nil {
			return err
		}
	}

	if flags.RunDir != "" {
		err := os.Chdir(flags.RunDir)
		if err != nil {
			return err
		}
	}

	stderr := flags.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	log := logger.New(stderr, flags.LogLevel)

	if flags.Tool != "" {
		return runTool(out, args, flags, types)
	}

	if err := checkTypes(log, cfg.Bindings, types); err != nil {
		return err
	}

	printer, err := newPrinter(flags.Style, stderr, log)
	if err != nil {
		return err
	}
	inj := inject.NewInjector(cfg)
	inj.Printer = printer

	log.Debug("injecting", "template", tmpl, "bindings", len(cfg.Bindings))

	if flags.Output == "" {
		return inj.InjectFile(out, tmpl)
	}
	return writeOutput(inj, tmpl, flags.Output, log)
}

func runTool(out io.Writer, args []string, flags Flags, types inject.TypeTable) error {
	t, err := inject.NewTool(flags.Tool, out, types)
	if err != nil {
		return err
	}
	cfg := inject.Config{
		Marker: flags.Marker,
	}
	// tools that only need the template do not require bindings
	if _, c, err := configure(args, flags, types); err == nil {
		cfg = c
	} else if !errors.Is(err, ErrUsage) {
		return err
	}
	return t.Run(inject.NewInjector(cfg), args)
}
