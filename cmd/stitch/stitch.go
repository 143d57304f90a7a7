package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/zyedidia/stitch"
	"github.com/zyedidia/stitch/info"
	"github.com/zyedidia/stitch/inject"
)

// keyValue records a keyed data file flag such as --info into an ordered
// binding list.
type keyValue struct {
	key string
	bs  *inject.Bindings
}

func (v *keyValue) String() string { return "" }
func (v *keyValue) Type() string   { return "file" }

func (v *keyValue) Set(path string) error {
	v.bs.Set(v.key, path)
	return nil
}

// bindValue records --bind key=path.
type bindValue struct {
	bs *inject.Bindings
}

func (v *bindValue) String() string { return "" }
func (v *bindValue) Type() string   { return "key=file" }

func (v *bindValue) Set(s string) error {
	key, path, found := strings.Cut(s, "=")
	if !found || key == "" {
		return fmt.Errorf("expected key=file, got '%s'", s)
	}
	v.bs.Set(key, path)
	return nil
}

type options struct {
	fs       *pflag.FlagSet
	bindings inject.Bindings
	output   *string
	marker   *string
	style    *string
	loglevel *string
	rundir   *string
	tool     *string
	config   *string
	version  *bool
	help     *bool
}

func newOptions() *options {
	o := &options{
		fs: pflag.NewFlagSet("stitch", pflag.ContinueOnError),
	}
	for _, k := range []string{"info", "dt", "tw", "meta"} {
		o.fs.Var(&keyValue{key: k, bs: &o.bindings}, k, fmt.Sprintf("embed file as '%s'", inject.ID(k)))
	}
	o.fs.Var(&bindValue{bs: &o.bindings}, "bind", "embed file under any known key")
	o.output = o.fs.StringP("output", "o", "", "write to file instead of stdout")
	o.marker = o.fs.String("marker", inject.DefaultMarker, "marker that designates an injection point")
	o.style = o.fs.StringP("style", "s", "basic", "printer style to use (basic, progress)")
	o.loglevel = o.fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	o.rundir = o.fs.StringP("directory", "C", "", "run command from directory")
	o.tool = o.fs.StringP("tool", "t", "", "run a tool (use 'list' to see all tools)")
	o.config = o.fs.StringP("config", "c", "", "config file to use")
	o.version = o.fs.BoolP("version", "v", false, "show version information")
	o.help = o.fs.BoolP("help", "h", false, "show this help message")
	o.fs.SortFlags = false
	return o
}

// applies config values for flags not given on the command line
func (o *options) apply(uf stitch.UserFlags) {
	set := func(name string, dst *string, v *string) {
		if v != nil && !o.fs.Changed(name) {
			*dst = *v
		}
	}
	set("marker", o.marker, uf.Marker)
	set("style", o.style, uf.Style)
	set("log-level", o.loglevel, uf.LogLevel)
	set("output", o.output, uf.Output)
}

// parse reads the command line, changes into -C if given, and then merges
// in the config files found from there. Config args are prepended to the
// command line.
func parse(args []string, stderr io.Writer) (*options, stitch.UserFlags, error) {
	var uf stitch.UserFlags
	o := newOptions()
	o.fs.SetOutput(stderr)
	if err := o.fs.Parse(args); err != nil {
		return nil, uf, err
	}
	if *o.help || *o.version {
		return o, uf, nil
	}

	if *o.rundir != "" {
		if err := os.Chdir(*o.rundir); err != nil {
			return nil, uf, err
		}
	}

	uf, err := stitch.LoadUserFlags(*o.config)
	if err != nil {
		return nil, uf, err
	}
	defaults, err := uf.DefaultArgs()
	if err != nil {
		return nil, uf, fmt.Errorf("config args: %w", err)
	}
	if len(defaults) > 0 {
		o = newOptions()
		o.fs.SetOutput(stderr)
		if err := o.fs.Parse(append(defaults, args...)); err != nil {
			return nil, uf, err
		}
	}
	o.apply(uf)

	if *o.marker == "" {
		return nil, uf, fmt.Errorf("empty marker: %w", stitch.ErrUsage)
	}
	return o, uf, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, uf, err := parse(args, stderr)
	if err != nil {
		return err
	}

	if *o.help {
		fmt.Fprintln(stderr, "usage: stitch [flags] TEMPLATE [DATA]")
		o.fs.PrintDefaults()
		return nil
	}

	if *o.version {
		fmt.Fprintln(stdout, "stitch version", info.Version)
		return nil
	}

	return stitch.Run(stdout, o.fs.Args(), stitch.Flags{
		Bindings: o.bindings,
		Types:    uf.Types,
		Marker:   *o.marker,
		Output:   *o.output,
		Style:    *o.style,
		LogLevel: *o.loglevel,
		Tool:     *o.tool,
		Stderr:   stderr,
	})
}

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stitch: %s\n", err)
		if !errors.Is(err, stitch.ErrUpToDate) {
			os.Exit(1)
		}
	}
}
