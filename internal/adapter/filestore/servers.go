// Package filestore persists the server registry as a JSON file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/DoVri/Topps/internal/domain"
	"github.com/gofrs/flock"
)

const (
	lockTimeout   = 5 * time.Second
	lockRetryWait = 50 * time.Millisecond
)

// ServerRepository stores snapshots as a JSON array at path. Writes go to a
// temp file that is renamed over path, with path+".lock" held across
// processes.
type ServerRepository struct {
	path string
}

func NewServerRepository(path string) *ServerRepository {
	return &ServerRepository{path: path}
}

func (r *ServerRepository) Path() string {
	return r.path
}

// Load returns the stored entries. A missing file is an empty registry.
// Records with an out-of-range port are dropped.
func (r *ServerRepository) Load(ctx context.Context) ([]domain.ServerEntry, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}

	var records []serverRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", r.path, err)
	}

	entries := make([]domain.ServerEntry, 0, len(records))
	for _, rec := range records {
		if !domain.ValidPort(rec.Port) {
			slog.WarnContext(ctx, "Dropping stored server with invalid port", "name", rec.Name, "port", rec.Port)
			continue
		}
		entries = append(entries, domain.ServerEntry{Name: rec.Name, Port: uint16(rec.Port), Domain: rec.Domain})
	}
	return entries, nil
}

func (r *ServerRepository) Save(ctx context.Context, entries []domain.ServerEntry) error {
	records := make([]serverRecord, len(entries))
	for i, e := range entries {
		records[i] = serverRecord{Name: e.Name, Port: int(e.Port), Domain: e.Domain}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode servers: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	fileLock := flock.New(r.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryWait)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock: timeout after %v", lockTimeout)
	}
	defer func() { _ = fileLock.Unlock() }()

	return writeAtomic(r.path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

type serverRecord struct {
	Name   string `json:"name"`
	Port   int    `json:"port"`
	Domain string `json:"domain,omitempty"`
}
