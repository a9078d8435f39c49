package seeder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	OutputDir     string
	StartMonth    string // "2023-01"
	Months        int
	TripsPerMonth int
	Seed          int64
}

func DefaultConfig() Config {
	return Config{
		OutputDir:     "data",
		StartMonth:    "2023-01",
		Months:        3,
		TripsPerMonth: 50000,
		Seed:          time.Now().UTC().UnixNano(),
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyString(lookup, "RIDEPULSE_SEED_OUTPUT_DIR", &cfg.OutputDir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_SEED_START_MONTH", &cfg.StartMonth); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "RIDEPULSE_SEED_MONTHS", &cfg.Months); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "RIDEPULSE_SEED_TRIPS_PER_MONTH", &cfg.TripsPerMonth); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "RIDEPULSE_SEED_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.OutputDir) == "" {
		return Config{}, fmt.Errorf("RIDEPULSE_SEED_OUTPUT_DIR is required")
	}
	if _, err := time.Parse("2006-01", strings.TrimSpace(cfg.StartMonth)); err != nil {
		return Config{}, fmt.Errorf("invalid RIDEPULSE_SEED_START_MONTH: %w", err)
	}
	if cfg.Months <= 0 {
		return Config{}, fmt.Errorf("RIDEPULSE_SEED_MONTHS must be > 0")
	}
	if cfg.TripsPerMonth <= 0 {
		return Config{}, fmt.Errorf("RIDEPULSE_SEED_TRIPS_PER_MONTH must be > 0")
	}

	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	cfg.StartMonth = strings.TrimSpace(cfg.StartMonth)
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
