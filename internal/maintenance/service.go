package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	ChartDir      string
	RetainAge     time.Duration
	SweepInterval time.Duration
}

// Service sweeps rendered chart images out of the chart directory once
// they age past the retention window. Charts are referenced by URL in
// chat responses, so the window has to outlive the response cache TTL.
type Service struct {
	Config Config
	Logger *slog.Logger
	Clock  func() time.Time
}

type SweepSummary struct {
	FilesScanned int   `json:"files_scanned"`
	FilesDeleted int   `json:"files_deleted"`
	BytesFreed   int64 `json:"bytes_freed"`
	Failures     int   `json:"failures"`
}

func (s *Service) Run(ctx context.Context) error {
	s.ensureDefaults()

	ticker := time.NewTicker(s.Config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			summary, err := s.SweepOnce(ctx)
			if err != nil {
				if s.Logger != nil {
					s.Logger.ErrorContext(ctx, "chart sweep failed", slog.Any("error", err), slog.Any("summary", summary))
				}
				continue
			}
			if s.Logger != nil && summary.FilesDeleted > 0 {
				s.Logger.InfoContext(ctx, "chart sweep completed", slog.Any("summary", summary))
			}
		}
	}
}

// SweepOnce deletes expired chart files and reports what it touched.
// Partial failures are counted rather than aborting the sweep.
func (s *Service) SweepOnce(ctx context.Context) (SweepSummary, error) {
	s.ensureDefaults()
	if s.Config.ChartDir == "" {
		return SweepSummary{}, fmt.Errorf("chart directory is required")
	}

	entries, err := os.ReadDir(s.Config.ChartDir)
	if err != nil {
		if os.IsNotExist(err) {
			return SweepSummary{}, nil
		}
		sweepRunsTotal.WithLabelValues("error").Inc()
		return SweepSummary{}, fmt.Errorf("read chart directory: %w", err)
	}

	cutoff := s.Clock().Add(-s.Config.RetainAge)
	summary := SweepSummary{}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		summary.FilesScanned++

		info, err := entry.Info()
		if err != nil {
			summary.Failures++
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.Config.ChartDir, entry.Name())
		if err := os.Remove(path); err != nil {
			summary.Failures++
			if s.Logger != nil {
				s.Logger.WarnContext(ctx, "failed to delete expired chart",
					slog.String("path", path), slog.Any("error", err))
			}
			continue
		}
		summary.FilesDeleted++
		summary.BytesFreed += info.Size()
	}

	status := "ok"
	if summary.Failures > 0 {
		status = "partial"
	}
	sweepRunsTotal.WithLabelValues(status).Inc()
	sweepFilesDeletedTotal.Add(float64(summary.FilesDeleted))
	sweepBytesFreedTotal.Add(float64(summary.BytesFreed))
	return summary, nil
}

func (s *Service) ensureDefaults() {
	if s.Config.RetainAge <= 0 {
		s.Config.RetainAge = 24 * time.Hour
	}
	if s.Config.SweepInterval <= 0 {
		s.Config.SweepInterval = time.Hour
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
}
