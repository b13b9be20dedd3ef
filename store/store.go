// Package store holds the dataset shared by every request.
//
// The server keeps at most one dataset: a successful upload replaces it and
// SQL queries read it. When the store is empty but knows where the last
// upload was archived, Get reloads it once on demand.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vegasq/parqview/internal/metrics"
	"github.com/vegasq/parqview/table"
)

// ErrNoDataset is returned when no dataset has been loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// Reloader rebuilds a dataset from the location it was archived at.
type Reloader interface {
	Reload(ctx context.Context, source string) (*table.Table, error)
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(ctx context.Context, source string) (*table.Table, error)

// Reload implements Reloader.
func (f ReloaderFunc) Reload(ctx context.Context, source string) (*table.Table, error) {
	return f(ctx, source)
}

// Dataset is the current table and where it came from.
type Dataset struct {
	Table  *table.Table
	Name   string
	Source string
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	current  *Dataset
	source   string
	reloader Reloader
}

// New returns an empty store. reloader may be nil.
func New(reloader Reloader) *Store {
	return &Store{reloader: reloader}
}

// Put replaces the current dataset. source is the archive location of the
// upload and may be empty when it was not archived.
func (s *Store) Put(t *table.Table, name, source string) {
	s.mu.Lock()
	s.current = &Dataset{Table: t, Name: name, Source: source}
	if source != "" {
		s.source = source
	}
	s.mu.Unlock()

	metrics.DatasetRows.Set(float64(t.NumRows()))
}

// Remember records an archive location without loading it, so the next Get
// reloads from it.
func (s *Store) Remember(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
}

// Get returns the current dataset, reloading it from the last known source
// if the store is empty.
func (s *Store) Get(ctx context.Context) (*Dataset, error) {
	s.mu.RLock()
	ds, source := s.current, s.source
	s.mu.RUnlock()
	if ds != nil {
		return ds, nil
	}
	if source == "" || s.reloader == nil {
		return nil, ErrNoDataset
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return s.current, nil
	}

	t, err := s.reloader.Reload(ctx, s.source)
	if err != nil {
		return nil, fmt.Errorf("%w: reload %s: %v", ErrNoDataset, s.source, err)
	}
	s.current = &Dataset{Table: t, Name: s.source, Source: s.source}
	metrics.DatasetRows.Set(float64(t.NumRows()))
	return s.current, nil
}

// Source returns the archive location of the last dataset, if any.
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Clear drops the current dataset and forgets its source.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = nil
	s.source = ""
	s.mu.Unlock()

	metrics.DatasetRows.Set(0)
}
