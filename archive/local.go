package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local stores uploads as files in a directory.
type Local struct {
	dir       string
	extension string
}

// NewLocal returns a Local archive rooted at dir, creating it if needed.
// Latest only considers files ending in extension.
func NewLocal(dir, extension string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("upload directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Local{dir: dir, extension: extension}, nil
}

// Name implements Archive.
func (l *Local) Name() string { return BackendLocal }

// Save implements Archive. An existing file with the same name is replaced.
func (l *Local) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := objectName(filename)
	if err != nil {
		return "", err
	}

	path := filepath.Join(l.dir, name)
	tmp, err := os.CreateTemp(l.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return path, nil
}

// Open implements Archive.
func (l *Local) Open(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(location)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}

// Latest implements Archive.
func (l *Local) Latest(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", l.dir, err)
	}

	var (
		latest string
		newest time.Time
	)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.HasSuffix(e.Name(), l.extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(newest) {
			latest = filepath.Join(l.dir, e.Name())
			newest = info.ModTime()
		}
	}
	if latest == "" {
		return "", ErrNotFound
	}
	return latest, nil
}
