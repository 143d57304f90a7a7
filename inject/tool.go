package inject

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var tools = []Tool{
	&ListTool{},
	&KeysTool{},
	&MarkersTool{},
	&IdsTool{},
}

// A Tool inspects the inputs of a run instead of performing it.
type Tool interface {
	Run(inj *Injector, args []string) error
	String() string
}

// NewTool returns the tool called name, writing to w.
func NewTool(name string, w io.Writer, types TypeTable) (Tool, error) {
	switch name {
	case "list":
		return &ListTool{W: w}, nil
	case "keys":
		return &KeysTool{W: w, Types: types}, nil
	case "markers":
		return &MarkersTool{W: w}, nil
	case "ids":
		return &IdsTool{W: w}, nil
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

type ListTool struct {
	W io.Writer
}

func (t *ListTool) Run(inj *Injector, args []string) error {
	for _, tl := range tools {
		fmt.Fprintln(t.W, tl)
	}
	return nil
}

func (t *ListTool) String() string {
	return "list - list all available tools"
}

type KeysTool struct {
	W     io.Writer
	Types TypeTable
}

func (t *KeysTool) Run(inj *Injector, args []string) error {
	for _, k := range t.Types.Keys() {
		ct := t.Types[k]
		if ct.Glob != "" {
			fmt.Fprintf(t.W, "%s: %s (%s)\n", k, ct.Mime, ct.Glob)
		} else {
			fmt.Fprintf(t.W, "%s: %s\n", k, ct.Mime)
		}
	}
	return nil
}

func (t *KeysTool) String() string {
	return "keys - show the known binding keys and their content types"
}

type MarkersTool struct {
	W io.Writer
}

func (t *MarkersTool) Run(inj *Injector, args []string) error {
	if len(args) == 0 {
		return errors.New("markers: no template given")
	}
	f, err := inj.open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	marker := inj.marker()
	r := bufio.NewReader(f)
	for n := 1; ; n++ {
		line, err := r.ReadString('\n')
		if strings.Contains(line, marker) {
			fmt.Fprintf(t.W, "%d: %s\n", n, strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}

func (t *MarkersTool) String() string {
	return "markers - show the template lines that will be replaced"
}

type IdsTool struct {
	W io.Writer
}

func (t *IdsTool) Run(inj *Injector, args []string) error {
	for _, b := range inj.Bindings {
		fmt.Fprintf(t.W, "%s\t%s\t%s\n", ID(b.Key), b.Type, b.Path)
	}
	return nil
}

func (t *IdsTool) String() string {
	return "ids - show the element ids that will be emitted"
}
