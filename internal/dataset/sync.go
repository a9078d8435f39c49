// Package dataset manages the local copy of the trip dataset: pulling
// published files from the object store and summarizing what is on disk.
package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/ridepulse/ridepulse/internal/config"
	"github.com/ridepulse/ridepulse/internal/storage"
)

// Syncer mirrors the published dataset files into the local dataset
// directory. Files already present with a matching size are skipped.
type Syncer struct {
	store  storage.ObjectStore
	dir    string
	glob   string
	logger *slog.Logger
}

func NewSyncer(store storage.ObjectStore, cfg config.DatasetConfig, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	glob := cfg.SyncObjectGlob
	if glob == "" {
		glob = cfg.TripGlob
	}
	return &Syncer{store: store, dir: cfg.Dir, glob: glob, logger: logger}
}

// Sync downloads missing or changed files and returns how many it wrote.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("create dataset directory: %w", err)
	}
	objects, err := s.store.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list dataset objects: %w", err)
	}

	downloaded := 0
	for _, object := range objects {
		name := path.Base(object.Key)
		matched, err := path.Match(s.glob, name)
		if err != nil {
			return downloaded, fmt.Errorf("invalid object glob %q: %w", s.glob, err)
		}
		if !matched {
			continue
		}
		local := filepath.Join(s.dir, name)
		if info, err := os.Stat(local); err == nil && info.Size() == object.Size {
			continue
		}
		if err := s.download(ctx, object.Key, local); err != nil {
			return downloaded, err
		}
		s.logger.Info("downloaded dataset file", "key", object.Key, "bytes", object.Size)
		downloaded++
	}
	return downloaded, nil
}

// download writes through a temp file so a crash mid-transfer never
// leaves a truncated dataset file behind.
func (s *Syncer) download(ctx context.Context, key, local string) error {
	reader, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	tmp, err := os.CreateTemp(s.dir, ".sync-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", local, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, local); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("move %q into place: %w", local, err)
	}
	return nil
}
