package stitch

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/segmentio/fasthash/fnv1a"
	"github.com/zyedidia/stitch/inject"
	"github.com/zyedidia/stitch/logger"
)

// The state directory is kept next to the output file.
const (
	stateDir  = ".stitch"
	stateFile = "state"
)

// record holds the digests of the inputs of a run and of the output it
// produced.
type record struct {
	Inputs uint64
	Output uint64
}

type state struct {
	Outputs  map[uint64]record
	location string
}

func loadState(dir string) *state {
	s := &state{
		Outputs:  make(map[uint64]record),
		location: dir,
	}
	f, err := os.Open(filepath.Join(dir, stateFile))
	if err != nil {
		return s
	}
	defer f.Close()
	fz, err := gzip.NewReader(f)
	if err != nil {
		return s
	}
	defer fz.Close()
	var outputs map[uint64]record
	// a corrupt state file is the same as none
	if err := gob.NewDecoder(fz).Decode(&outputs); err == nil && outputs != nil {
		s.Outputs = outputs
	}
	return s
}

func (s *state) save() error {
	if err := os.MkdirAll(s.location, os.ModePerm); err != nil {
		return err
	}
	buf := &bytes.Buffer{}
	fz := gzip.NewWriter(buf)
	if err := gob.NewEncoder(fz).Encode(s.Outputs); err != nil {
		return err
	}
	if err := fz.Close(); err != nil {
		return err
	}
	return atomic.WriteFile(filepath.Join(s.location, stateFile), buf)
}

func addFile(h uint64, path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		h = fnv1a.AddBytes64(h, chunk[:n])
		if err == io.EOF {
			return h, nil
		} else if err != nil {
			return h, fmt.Errorf("%s: %w", path, err)
		}
	}
}

// inputDigest hashes everything that determines the output: the marker, the
// bindings, and the contents of the template and of every data file.
func inputDigest(tmpl string, cfg inject.Config) (uint64, error) {
	h := fnv1a.AddString64(fnv1a.Init64, cfg.Marker+"\x00")
	h, err := addFile(h, tmpl)
	if err != nil {
		return h, err
	}
	for _, b := range cfg.Bindings {
		h = fnv1a.AddString64(h, "\x00"+b.Key+"\x00"+b.Type+"\x00"+b.Path+"\x00")
		h, err = addFile(h, b.Path)
		if err != nil {
			return h, err
		}
	}
	return h, nil
}

func outputKey(path string) uint64 {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return fnv1a.HashString64(path)
}

// writeOutput injects tmpl into the file at path. When the inputs and the
// output file are unchanged since the last run the injection is skipped.
// When the new document equals the file's contents the file is left alone.
// Both cases return ErrUpToDate.
func writeOutput(inj *inject.Injector, tmpl, path string, log logger.Logger) error {
	st := loadState(filepath.Join(filepath.Dir(path), stateDir))
	key := outputKey(path)
	in, err := inputDigest(tmpl, inj.Config)
	if err != nil {
		return err
	}

	old, oerr := os.ReadFile(path)
	if rec, ok := st.Outputs[key]; ok && oerr == nil {
		if rec.Inputs == in && rec.Output == fnv1a.HashBytes64(old) {
			log.Debug("inputs unchanged", "path", path)
			return fmt.Errorf("'%s': %w", path, ErrUpToDate)
		}
	}

	buf := &bytes.Buffer{}
	if err := inj.InjectFile(buf, tmpl); err != nil {
		return err
	}
	data := buf.Bytes()

	same := oerr == nil && bytes.Equal(old, data)
	if !same {
		if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
			return err
		}
	}
	st.Outputs[key] = record{
		Inputs: in,
		Output: fnv1a.HashBytes64(data),
	}
	if err := st.save(); err != nil {
		return err
	}
	if same {
		return fmt.Errorf("'%s': %w", path, ErrUpToDate)
	}
	log.Info("wrote", "path", path, "bytes", len(data))
	return nil
}
