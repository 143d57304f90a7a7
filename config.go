package stitch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/kballard/go-shellquote"
	"github.com/pelletier/go-toml/v2"
	"github.com/zyedidia/stitch/inject"
)

const (
	configFile = "config.toml"
	localFile  = ".stitch.toml"
)

// Flags that may be automatically set in a config file.
type UserFlags struct {
	Marker   *string
	Style    *string
	LogLevel *string `toml:"log-level"`
	Output   *string
	// Args are prepended to the command line arguments.
	Args  *string
	Types inject.TypeTable
}

func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "stitch")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FindLocalConfig searches the working directory and its parents for a
// .stitch.toml file, returning "" if there is none.
func FindLocalConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(dir, localFile)
		if exists(p) {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ReadUserFlags decodes the config file at path.
func ReadUserFlags(path string) (UserFlags, error) {
	var uf UserFlags
	data, err := os.ReadFile(path)
	if err != nil {
		return uf, err
	}
	if err := toml.Unmarshal(data, &uf); err != nil {
		return uf, fmt.Errorf("%s: %w", path, err)
	}
	return uf, nil
}

// LoadUserFlags reads the config file at path, or if path is empty, the
// global config followed by the nearest local config. Later files take
// precedence.
func LoadUserFlags(path string) (UserFlags, error) {
	if path != "" {
		return ReadUserFlags(path)
	}

	var uf UserFlags
	paths := []string{filepath.Join(DefaultConfigDir(), configFile)}
	local, err := FindLocalConfig()
	if err != nil {
		return uf, err
	}
	if local != "" {
		paths = append(paths, local)
	}
	for _, p := range paths {
		f, err := ReadUserFlags(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return uf, err
		}
		uf = uf.Merge(f)
	}
	return uf, nil
}

// Merge returns uf overridden by the fields set in other.
func (uf UserFlags) Merge(other UserFlags) UserFlags {
	if other.Marker != nil {
		uf.Marker = other.Marker
	}
	if other.Style != nil {
		uf.Style = other.Style
	}
	if other.LogLevel != nil {
		uf.LogLevel = other.LogLevel
	}
	if other.Output != nil {
		uf.Output = other.Output
	}
	if other.Args != nil {
		uf.Args = other.Args
	}
	if uf.Types == nil {
		uf.Types = other.Types
	} else if other.Types != nil {
		uf.Types = uf.Types.Merge(other.Types)
	}
	return uf
}

// DefaultArgs splits the configured default arguments.
func (uf UserFlags) DefaultArgs() ([]string, error) {
	if uf.Args == nil {
		return nil, nil
	}
	return shellquote.Split(*uf.Args)
}
