// Package archive keeps a copy of every uploaded parquet file.
//
// Archiving is best effort: Persist never fails the caller, it reports the
// outcome in a Result. Archived uploads can be read back, which lets the
// server restore its dataset after a restart.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vegasq/parqview/internal/metrics"
)

// Backend names.
const (
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendMemory = "memory"
	BackendNone   = "none"
)

var (
	// ErrNotFound is returned when an archived upload does not exist.
	ErrNotFound = errors.New("archived upload not found")

	// ErrDisabled is returned by the "none" backend.
	ErrDisabled = errors.New("upload archive disabled")
)

// Archive stores uploaded files.
type Archive interface {
	// Name returns the backend name.
	Name() string
	// Save stores data under the base name of filename and returns the
	// location it can be opened from.
	Save(ctx context.Context, filename string, data []byte) (string, error)
	// Open returns the content stored at location.
	Open(ctx context.Context, location string) ([]byte, error)
	// Latest returns the location of the most recently saved upload.
	Latest(ctx context.Context) (string, error)
}

// Result is the outcome of a Persist call.
type Result struct {
	Persisted bool
	Location  string
	Err       error
}

// Persist saves data and records the outcome. It never returns an error;
// failures are reported in Result.Err.
func Persist(ctx context.Context, a Archive, filename string, data []byte) Result {
	location, err := a.Save(ctx, filename, data)
	if errors.Is(err, ErrDisabled) {
		return Result{}
	}
	metrics.ArchiveWrites.WithLabelValues(a.Name(), metrics.Outcome(err)).Inc()
	if err != nil {
		return Result{Err: err}
	}
	return Result{Persisted: true, Location: location}
}

// objectName reduces an uploaded filename to a safe base name.
func objectName(filename string) (string, error) {
	name := filepath.Base(filepath.Clean(strings.ReplaceAll(filename, `\`, "/")))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "", fmt.Errorf("invalid upload name %q", filename)
	}
	return name, nil
}

// None is the disabled backend.
type None struct{}

// Name implements Archive.
func (None) Name() string { return BackendNone }

// Save implements Archive.
func (None) Save(context.Context, string, []byte) (string, error) { return "", ErrDisabled }

// Open implements Archive.
func (None) Open(context.Context, string) ([]byte, error) { return nil, ErrDisabled }

// Latest implements Archive.
func (None) Latest(context.Context) (string, error) { return "", ErrNotFound }

// Config selects and configures a backend.
type Config struct {
	Backend   string
	Dir       string
	Extension string
	S3        S3Config
}

// New returns the backend named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Archive, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendLocal, "":
		return NewLocal(cfg.Dir, cfg.Extension)
	case BackendS3:
		return NewS3(ctx, cfg.S3)
	case BackendMemory:
		return NewMemory(), nil
	case BackendNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
