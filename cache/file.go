package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileVersion is written to every cache file. Files with another major
// version are rejected on load.
const FileVersion = "1.0"

// File is the on-disk form of a translation cache. Entries marshal with
// sorted keys, so saving the same cache twice gives the same bytes apart
// from SavedAt.
type File struct {
	Version  string            `json:"version"`
	SavedAt  time.Time         `json:"saved_at"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Entries  map[string]string `json:"entries"`
}

// Dump captures the contents of c. The cache must implement Snapshotter.
func Dump(c TranslationCache, meta map[string]string) (*File, error) {
	s, ok := c.(Snapshotter)
	if !ok {
		return nil, fmt.Errorf("cache type %T cannot be saved", c)
	}
	entries, err := s.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("reading cache entries: %w", err)
	}
	return &File{
		Version:  FileVersion,
		SavedAt:  time.Now().UTC().Truncate(time.Second),
		Metadata: meta,
		Entries:  entries,
	}, nil
}

// Encode writes f as indented JSON.
func (f *File) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(f)
}

// Decode reads a cache file from r.
func Decode(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding cache file: %w", err)
	}
	if major(f.Version) != major(FileVersion) {
		return nil, fmt.Errorf("unsupported cache file version %q", f.Version)
	}
	return &f, nil
}

func major(v string) string {
	m, _, _ := strings.Cut(v, ".")
	return m
}

// Load stores every entry of f in c and returns how many were stored.
// Entries with an empty key are skipped. The first Set error stops the load.
func (f *File) Load(c TranslationCache) (int, error) {
	n := 0
	for key, value := range f.Entries {
		if key == "" {
			continue
		}
		if err := c.Set(key, value); err != nil {
			return n, fmt.Errorf("storing %s: %w", key, err)
		}
		n++
	}
	return n, nil
}

// SaveFile writes c to path. The file is replaced atomically so an
// interrupted run never leaves a truncated cache behind.
func SaveFile(path string, c TranslationCache, meta map[string]string) error {
	f, err := Dump(c, meta)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".shoptl-cache-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := f.Encode(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads the cache file at path into c. A missing file loads nothing.
func LoadFile(path string, c TranslationCache) (int, error) {
	r, err := os.Open(path) // #nosec G304 - path is chosen by the user
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("opening cache file: %w", err)
	}
	defer r.Close()

	f, err := Decode(r)
	if err != nil {
		return 0, err
	}
	return f.Load(c)
}
