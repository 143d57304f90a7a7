package inject

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
)

const (
	MimeJSON = "application/json"
	MimeCSV  = "text/csv"
)

var ErrUnknownKey = errors.New("unknown binding key")

// A Binding associates a key with a data file and its content type. The
// empty key is used when a single unlabeled file is embedded.
type Binding struct {
	Key  string
	Path string
	Type string
}

func (b Binding) String() string {
	if b.Key == "" {
		return b.Path
	}
	return b.Key + "=" + b.Path
}

// Single returns the binding for a lone unlabeled JSON file.
func Single(path string) Binding {
	return Binding{
		Path: path,
		Type: MimeJSON,
	}
}

// ContentType is the declared type of a key, along with a glob that the
// names of its data files are expected to match.
type ContentType struct {
	Mime string `toml:"type"`
	Glob string `toml:"glob"`
}

// Matches reports whether the base name of path matches the glob of t. A
// type without a glob matches everything.
func (t ContentType) Matches(path string) (bool, error) {
	if t.Glob == "" {
		return true, nil
	}
	g, err := glob.Compile(t.Glob)
	if err != nil {
		return false, fmt.Errorf("glob %q: %w", t.Glob, err)
	}
	return g.Match(filepath.Base(path)), nil
}

// TypeTable maps binding keys to their content types.
type TypeTable map[string]ContentType

// DefaultTypes returns the built-in key table.
func DefaultTypes() TypeTable {
	return TypeTable{
		"info": {Mime: MimeJSON, Glob: "*.json"},
		"dt":   {Mime: MimeJSON, Glob: "*.json"},
		"tw":   {Mime: MimeJSON, Glob: "*.json"},
		"meta": {Mime: MimeCSV, Glob: "*.csv"},
	}
}

// Merge returns a copy of t with the entries of other added, replacing
// existing keys.
func (t TypeTable) Merge(other TypeTable) TypeTable {
	m := make(TypeTable, len(t)+len(other))
	for k, v := range t {
		m[k] = v
	}
	for k, v := range other {
		m[k] = v
	}
	return m
}

// Keys returns the keys of t in sorted order.
func (t TypeTable) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve looks up the content type of key and returns the binding of key
// to path.
func (t TypeTable) Resolve(key, path string) (Binding, error) {
	ct, ok := t[key]
	if !ok {
		return Binding{}, fmt.Errorf("'%s': %w", key, ErrUnknownKey)
	}
	return Binding{
		Key:  key,
		Path: path,
		Type: ct.Mime,
	}, nil
}

// Bindings is a list of key/path pairs in declaration order. Setting a key a
// second time replaces its path but keeps its position.
type Bindings struct {
	keys  []string
	paths map[string]string
}

func (bs *Bindings) Set(key, path string) {
	if bs.paths == nil {
		bs.paths = make(map[string]string)
	}
	if _, ok := bs.paths[key]; !ok {
		bs.keys = append(bs.keys, key)
	}
	bs.paths[key] = path
}

func (bs *Bindings) Len() int {
	return len(bs.keys)
}

// Resolve resolves every pair against t, in declaration order.
func (bs *Bindings) Resolve(t TypeTable) ([]Binding, error) {
	out := make([]Binding, 0, len(bs.keys))
	for _, k := range bs.keys {
		b, err := t.Resolve(k, bs.paths[k])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
