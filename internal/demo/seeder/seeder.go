package seeder

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Service writes a synthetic month-partitioned trip dataset plus the
// three lookup CSVs the engine bootstrap expects, laid out so the api
// binary can point RIDEPULSE_DATASET_DIR at the output directly.
type Service struct {
	cfg Config
	log *slog.Logger
}

type Summary struct {
	Files       []string `json:"files"`
	TripsTotal  int      `json:"trips_total"`
	ZonesTotal  int      `json:"zones_total"`
	ElapsedMS   int64    `json:"elapsed_ms"`
	OutputDir   string   `json:"output_dir"`
	LookupFiles []string `json:"lookup_files"`
}

func New(cfg Config, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, log: logger}
}

func (s *Service) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output directory: %w", err)
	}

	generator := NewGenerator(s.cfg.Seed, 0)
	monthStart, err := time.Parse("2006-01", s.cfg.StartMonth)
	if err != nil {
		return Summary{}, fmt.Errorf("parse start month: %w", err)
	}

	summary := Summary{OutputDir: s.cfg.OutputDir, ZonesTotal: generator.zoneCount}
	for i := 0; i < s.cfg.Months; i++ {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		month := monthStart.AddDate(0, i, 0)
		name := fmt.Sprintf("fhvhv_tripdata_%s.parquet", month.Format("2006-01"))
		path := filepath.Join(s.cfg.OutputDir, name)
		if err := s.writeMonth(generator, month, path); err != nil {
			return summary, fmt.Errorf("write %s: %w", name, err)
		}
		summary.Files = append(summary.Files, name)
		summary.TripsTotal += s.cfg.TripsPerMonth
		if s.log != nil {
			s.log.InfoContext(ctx, "seeded trip file",
				slog.String("file", name),
				slog.Int("trips", s.cfg.TripsPerMonth))
		}
	}

	lookups, err := s.writeLookups(generator.zoneCount)
	if err != nil {
		return summary, err
	}
	summary.LookupFiles = lookups
	summary.ElapsedMS = time.Since(started).Milliseconds()
	return summary, nil
}

func (s *Service) writeMonth(generator *Generator, month time.Time, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := parquet.NewGenericWriter[Trip](f)

	const batchSize = 5000
	batch := make([]Trip, 0, batchSize)
	remaining := s.cfg.TripsPerMonth
	for remaining > 0 {
		batch = batch[:0]
		n := batchSize
		if remaining < n {
			n = remaining
		}
		for j := 0; j < n; j++ {
			batch = append(batch, generator.NextTrip(month))
		}
		if _, err := writer.Write(batch); err != nil {
			_ = f.Close()
			return err
		}
		remaining -= n
	}

	if err := writer.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *Service) writeLookups(zoneCount int) ([]string, error) {
	boroughs := []string{"Manhattan", "Brooklyn", "Queens", "Bronx", "Staten Island", "EWR"}

	zoneRows := [][]string{{"LocationID", "Borough", "Zone", "service_zone"}}
	for id := 1; id <= zoneCount; id++ {
		zoneRows = append(zoneRows, []string{
			strconv.Itoa(id),
			boroughs[(id-1)%len(boroughs)],
			ZoneName(id),
			"Boro Zone",
		})
	}

	baseRows := [][]string{{"dispatching_base_num", "base_name"}}
	for _, base := range dispatchingBases {
		baseRows = append(baseRows, []string{base, "Base " + base})
	}

	licenseRows := [][]string{
		{"hvfhs_license_num", "company"},
		{"HV0002", "Juno"},
		{"HV0003", "Uber"},
		{"HV0004", "Via"},
		{"HV0005", "Lyft"},
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{"taxi_zone_lookup.csv", zoneRows},
		{"fhv_base_lookup.csv", baseRows},
		{"hvfhs_license_num_lookup.csv", licenseRows},
	}

	written := make([]string, 0, len(files))
	for _, file := range files {
		if err := writeCSV(filepath.Join(s.cfg.OutputDir, file.name), file.rows); err != nil {
			return nil, fmt.Errorf("write %s: %w", file.name, err)
		}
		written = append(written, file.name)
	}
	return written, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(f)
	if err := writer.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
