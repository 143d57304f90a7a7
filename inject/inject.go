package inject

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultMarker is the token that designates an injection point.
const DefaultMarker = "__DATA__"

const idPrefix = "m__DATA__"

// ID returns the element id of the block for key.
func ID(key string) string {
	return idPrefix + key
}

// Config is the fixed configuration of a single run.
type Config struct {
	Marker   string
	Bindings []Binding
}

func (c Config) marker() string {
	if c.Marker == "" {
		return DefaultMarker
	}
	return c.Marker
}

// A Printer is notified as each data file is copied.
type Printer interface {
	Start(b Binding, size int64)
	Writer(w io.Writer) io.Writer
	Done(b Binding)
}

type nopPrinter struct{}

func (nopPrinter) Start(Binding, int64)         {}
func (nopPrinter) Writer(w io.Writer) io.Writer { return w }
func (nopPrinter) Done(Binding)                 {}

// Injector replaces marker lines of a template with script blocks holding
// the contents of the bound files.
type Injector struct {
	Config
	// Open opens data files. Defaults to os.Open.
	Open    func(name string) (io.ReadCloser, error)
	Printer Printer
}

func NewInjector(c Config) *Injector {
	return &Injector{
		Config:  c,
		Open:    openFile,
		Printer: nopPrinter{},
	}
}

func openFile(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// InjectFile opens the template at path and injects it into w.
func (inj *Injector) InjectFile(w io.Writer, path string) error {
	f, err := inj.open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return inj.Inject(w, f)
}

// Inject streams tmpl to w, substituting every marker line with one block
// per binding. Lines without the marker are copied unchanged.
func (inj *Injector) Inject(w io.Writer, tmpl io.Reader) error {
	marker := inj.marker()
	r := bufio.NewReader(tmpl)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			var werr error
			if strings.Contains(line, marker) {
				werr = inj.emit(w, terminator(line))
			} else {
				_, werr = io.WriteString(w, line)
			}
			if werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}

// terminator returns the line ending of line, which may be empty for the
// final line of a file.
func terminator(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	} else if strings.HasSuffix(line, "\n") {
		return "\n"
	}
	return ""
}

func (inj *Injector) emit(w io.Writer, eol string) error {
	for i, b := range inj.Bindings {
		end := "\n"
		if i == len(inj.Bindings)-1 {
			end = eol
		}
		if err := inj.block(w, b, end); err != nil {
			return err
		}
	}
	return nil
}

func (inj *Injector) block(w io.Writer, b Binding, end string) error {
	f, err := inj.open(b.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	var size int64 = -1
	if s, ok := f.(interface{ Stat() (os.FileInfo, error) }); ok {
		if fi, err := s.Stat(); err == nil {
			size = fi.Size()
		}
	}

	if _, err := fmt.Fprintf(w, "<script type=\"%s\" id=\"%s\">\n", b.Type, ID(b.Key)); err != nil {
		return err
	}

	p := inj.printer()
	p.Start(b, size)
	tw := &tailWriter{w: w}
	_, err = io.Copy(p.Writer(tw), f)
	p.Done(b)
	if err != nil {
		return fmt.Errorf("%s: %w", b.Path, err)
	}

	if tw.n > 0 && tw.last != '\n' {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "</script>"+end)
	return err
}

func (inj *Injector) open(name string) (io.ReadCloser, error) {
	if inj.Open == nil {
		return openFile(name)
	}
	return inj.Open(name)
}

func (inj *Injector) printer() Printer {
	if inj.Printer == nil {
		return nopPrinter{}
	}
	return inj.Printer
}

// tailWriter remembers the last byte written through it.
type tailWriter struct {
	w    io.Writer
	n    int64
	last byte
}

func (t *tailWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if n > 0 {
		t.n += int64(n)
		t.last = p[n-1]
	}
	return n, err
}
