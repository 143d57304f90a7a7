package stitch_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"
	"github.com/zyedidia/stitch"
	"github.com/zyedidia/stitch/inject"
)

type Test struct {
	Name    string
	Disable bool
	Runs    []Run
}

type Run struct {
	Args   []string
	Bind   []string
	Types  inject.TypeTable
	Tool   string
	Style  string
	Marker string
	Output string
	Error  string
}

func (r Run) flags() stitch.Flags {
	flags := stitch.Flags{
		Types:  r.Types,
		Tool:   r.Tool,
		Style:  r.Style,
		Marker: r.Marker,
		Stderr: io.Discard,
	}
	for _, b := range r.Bind {
		key, path, _ := strings.Cut(b, "=")
		flags.Bindings.Set(key, path)
	}
	return flags
}

func loadTest(dir string, t *testing.T) *Test {
	data, err := os.ReadFile(filepath.Join(dir, "test.toml"))
	if err != nil {
		t.Fatal(err)
	}
	var test Test
	err = toml.Unmarshal(data, &test)
	if err != nil {
		t.Fatal(err)
	}
	return &test
}

func runTest(dir string, t *testing.T) {
	test := loadTest(dir, t)
	if test.Disable {
		t.Skipf("%s disabled", dir)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(fmt.Errorf("could not get wd: %w", err))
	}

	os.Chdir(dir)
	defer os.Chdir(wd)
	for i, r := range test.Runs {
		buf := &bytes.Buffer{}
		err := stitch.Run(buf, r.Args, r.flags())
		if err != nil {
			if err.Error() == r.Error {
				continue
			}
			t.Fatalf("%d: %v", i, err)
		}
		if r.Error != "" {
			t.Fatalf("%d: expected error %q", i, r.Error)
		}

		if diff := cmp.Diff(r.Output, buf.String()); diff != "" {
			t.Fatalf("%d: output mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestAll(t *testing.T) {
	files, err := os.ReadDir("./test")
	if err != nil {
		t.Fatal(fmt.Errorf("open test dir: %w", err))
	}

	tests := []string{}

	for _, f := range files {
		if f.IsDir() {
			tests = append(tests, filepath.Join("test", f.Name()))
		}
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			runTest(tt, t)
		})
	}
}

func TestOutputFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	tmpl := write("index.html", "<head>\n__DATA__\n</head>\n")
	meta := write("meta.csv", "a,b\n")
	out := filepath.Join(dir, "model.html")

	flags := stitch.Flags{Output: out, Stderr: io.Discard}
	flags.Bindings.Set("meta", meta)

	stdout := &bytes.Buffer{}
	if err := stitch.Run(stdout, []string{tmpl}, flags); err != nil {
		t.Fatal(err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "<head>\n<script type=\"text/csv\" id=\"m__DATA__meta\">\na,b\n</script>\n</head>\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	err = stitch.Run(stdout, []string{tmpl}, flags)
	if !errors.Is(err, stitch.ErrUpToDate) {
		t.Fatalf("expected up to date, got %v", err)
	}

	write("meta.csv", "a,b\n1,2\n")
	if err := stitch.Run(stdout, []string{tmpl}, flags); err != nil {
		t.Fatal(err)
	}
	got, _ = os.ReadFile(out)
	if !strings.Contains(string(got), "a,b\n1,2\n</script>") {
		t.Fatalf("output not rewritten: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, ".stitch", "state")); err != nil {
		t.Fatalf("state not saved: %v", err)
	}

	// edits to the output are undone even though the inputs are unchanged
	write("model.html", "edited by hand\n")
	if err := stitch.Run(stdout, []string{tmpl}, flags); err != nil {
		t.Fatal(err)
	}
	got, _ = os.ReadFile(out)
	if !strings.Contains(string(got), "a,b\n1,2\n</script>") {
		t.Fatalf("edited output not rewritten: %q", got)
	}

	// without state the document is compared byte for byte
	if err := os.RemoveAll(filepath.Join(dir, ".stitch")); err != nil {
		t.Fatal(err)
	}
	err = stitch.Run(stdout, []string{tmpl}, flags)
	if !errors.Is(err, stitch.ErrUpToDate) {
		t.Fatalf("expected up to date without state, got %v", err)
	}

	// a corrupt state file is ignored
	write(filepath.Join(".stitch", "state"), "not gzip")
	err = stitch.Run(stdout, []string{tmpl}, flags)
	if !errors.Is(err, stitch.ErrUpToDate) {
		t.Fatalf("expected up to date with corrupt state, got %v", err)
	}
}

func TestOutputFileMissingData(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "index.html")
	os.WriteFile(tmpl, []byte("__DATA__\n"), 0o644)
	out := filepath.Join(dir, "model.html")

	flags := stitch.Flags{Output: out, Stderr: io.Discard}
	flags.Bindings.Set("info", filepath.Join(dir, "nothere.json"))
	err := stitch.Run(io.Discard, []string{tmpl}, flags)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
	if _, err := os.Stat(out); err == nil {
		t.Fatal("output written after failure")
	}
}

func TestUsageBeforeIO(t *testing.T) {
	flags := stitch.Flags{RunDir: filepath.Join(t.TempDir(), "nothere"), Stderr: io.Discard}
	err := stitch.Run(io.Discard, nil, flags)
	if !errors.Is(err, stitch.ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestMismatchWarning(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "index.html")
	data := filepath.Join(dir, "meta.json")
	os.WriteFile(tmpl, []byte("__DATA__\n"), 0o644)
	os.WriteFile(data, []byte("{}\n"), 0o644)

	stderr := &bytes.Buffer{}
	flags := stitch.Flags{Stderr: stderr}
	flags.Bindings.Set("meta", data)
	if err := stitch.Run(io.Discard, []string{tmpl}, flags); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr.String(), "does not match its content type") {
		t.Fatalf("expected warning, got %q", stderr.String())
	}
}

func TestProgressStyle(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "index.html")
	data := filepath.Join(dir, "dt.json")
	os.WriteFile(tmpl, []byte("<p>\n__DATA__\n</p>\n"), 0o644)
	os.WriteFile(data, []byte(strings.Repeat("[0.5],", 1000)+"\n"), 0o644)

	stderr := &bytes.Buffer{}
	stdout := &bytes.Buffer{}
	flags := stitch.Flags{Style: "progress", Stderr: stderr}
	flags.Bindings.Set("dt", data)
	if err := stitch.Run(stdout, []string{tmpl}, flags); err != nil {
		t.Fatal(err)
	}
	want := "<p>\n<script type=\"application/json\" id=\"m__DATA__dt\">\n" +
		strings.Repeat("[0.5],", 1000) + "\n</script>\n</p>\n"
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stderr.String(), "m__DATA__dt") {
		t.Fatalf("expected progress on stderr, got %q", stderr.String())
	}
}
