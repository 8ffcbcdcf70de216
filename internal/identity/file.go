package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.yaml.in/yaml/v3"
)

// File is a Store backed by a YAML document on disk. Every write rewrites the
// whole file through a temporary file and a rename.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a store for path. The file is created on the first write.
func NewFile(path string) *File {
	return &File{path: path}
}

type fileDocument struct {
	HealthChecks map[string]Identity `yaml:"health_checks"`
}

func (f *File) load() (map[string]Identity, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Identity{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}
	if doc.HealthChecks == nil {
		doc.HealthChecks = map[string]Identity{}
	}
	return doc.HealthChecks, nil
}

func (f *File) save(entries map[string]Identity) error {
	data, err := yaml.Marshal(fileDocument{HealthChecks: entries})
	if err != nil {
		return fmt.Errorf("encoding identity file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".identities-*")
	if err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing identity file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing identity file: %w", err)
	}
	return nil
}

func (f *File) Read(_ context.Context, name string) (Identity, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return Identity{}, false, err
	}
	id, ok := entries[name]
	return id, ok, nil
}

func (f *File) Write(_ context.Context, name string, id Identity) error {
	if err := validate(name, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	entries[name] = id
	return f.save(entries)
}

func (f *File) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		return nil
	}
	delete(entries, name)
	return f.save(entries)
}

func (f *File) List(_ context.Context) (map[string]Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}
