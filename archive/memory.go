package archive

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const memoryScheme = "memory://"

// Memory keeps uploads in process memory, for development and tests.
type Memory struct {
	mu    sync.Mutex
	data  map[string][]byte
	order []string
}

// NewMemory initializes an empty in-memory archive.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Name implements Archive.
func (m *Memory) Name() string { return BackendMemory }

// Save implements Archive.
func (m *Memory) Save(ctx context.Context, filename string, data []byte) (string, error) {
	name, err := objectName(filename)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = append([]byte(nil), data...)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append(m.order, name)
	return memoryScheme + name, nil
}

// Open implements Archive.
func (m *Memory) Open(ctx context.Context, location string) ([]byte, error) {
	name := strings.TrimPrefix(location, memoryScheme)

	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	return append([]byte(nil), data...), nil
}

// Latest implements Archive.
func (m *Memory) Latest(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return "", ErrNotFound
	}
	return memoryScheme + m.order[len(m.order)-1], nil
}
