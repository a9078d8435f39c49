package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Dataset       DatasetConfig
	ObjectStore   ObjectStoreConfig
	AI            AIConfig
	Engine        EngineConfig
	Pipeline      PipelineConfig
	Chart         ChartConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatasetConfig struct {
	Dir             string
	TripGlob        string
	ZoneLookupCSV   string
	BaseLookupCSV   string
	LicenseLookup   string
	SyncFromStore   bool
	SyncObjectGlob  string
	ManifestEnabled bool
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

// AIConfig selects and tunes the inference provider. Provider is a
// configuration-time choice; the pipeline only sees the interface.
type AIConfig struct {
	Provider        string // "ollama" or "openai"
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float64
	Timeout         time.Duration
	MaxSQLAttempts  int
	MaxSpecAttempts int
}

type EngineConfig struct {
	RowCap       int
	QueryTimeout time.Duration
}

type PipelineConfig struct {
	Enabled       bool
	PreviewRows   int
	CacheTTL      time.Duration
	CacheCapacity int
}

type ChartConfig struct {
	Output        string // "image" or "data"
	Dir           string
	MaxPoints     int
	RetainAge     time.Duration
	SweepInterval time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("RIDEPULSE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid RIDEPULSE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "RIDEPULSE_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "RIDEPULSE_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "RIDEPULSE_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "RIDEPULSE_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_DATASET_DIR", &cfg.Dataset.Dir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_DATASET_TRIP_GLOB", &cfg.Dataset.TripGlob); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_DATASET_ZONE_LOOKUP", &cfg.Dataset.ZoneLookupCSV); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_DATASET_BASE_LOOKUP", &cfg.Dataset.BaseLookupCSV); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_DATASET_LICENSE_LOOKUP", &cfg.Dataset.LicenseLookup); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "RIDEPULSE_DATASET_SYNC_FROM_STORE", &cfg.Dataset.SyncFromStore); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_DATASET_SYNC_OBJECT_GLOB", &cfg.Dataset.SyncObjectGlob); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "RIDEPULSE_DATASET_MANIFEST_ENABLED", &cfg.Dataset.ManifestEnabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "RIDEPULSE_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_AI_PROVIDER", &cfg.AI.Provider); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "RIDEPULSE_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "RIDEPULSE_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "RIDEPULSE_AI_MAX_SQL_ATTEMPTS", &cfg.AI.MaxSQLAttempts); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "RIDEPULSE_AI_MAX_SPEC_ATTEMPTS", &cfg.AI.MaxSpecAttempts); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "RIDEPULSE_ENGINE_ROW_CAP", &cfg.Engine.RowCap); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "RIDEPULSE_ENGINE_QUERY_TIMEOUT", &cfg.Engine.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "RIDEPULSE_PIPELINE_ENABLED", &cfg.Pipeline.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "RIDEPULSE_PIPELINE_PREVIEW_ROWS", &cfg.Pipeline.PreviewRows); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "RIDEPULSE_PIPELINE_CACHE_TTL", &cfg.Pipeline.CacheTTL); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "RIDEPULSE_PIPELINE_CACHE_CAPACITY", &cfg.Pipeline.CacheCapacity); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_CHART_OUTPUT", &cfg.Chart.Output); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "RIDEPULSE_CHART_DIR", &cfg.Chart.Dir); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "RIDEPULSE_CHART_MAX_POINTS", &cfg.Chart.MaxPoints); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "RIDEPULSE_CHART_RETAIN_AGE", &cfg.Chart.RetainAge); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "RIDEPULSE_CHART_SWEEP_INTERVAL", &cfg.Chart.SweepInterval); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "RIDEPULSE_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "RIDEPULSE_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.AI.Provider {
	case "ollama", "openai":
	default:
		return Config{}, fmt.Errorf("invalid RIDEPULSE_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	switch cfg.Chart.Output {
	case "image", "data":
	default:
		return Config{}, fmt.Errorf("invalid RIDEPULSE_CHART_OUTPUT: %q", cfg.Chart.Output)
	}
	if cfg.AI.MaxSQLAttempts <= 0 || cfg.AI.MaxSpecAttempts <= 0 {
		return Config{}, fmt.Errorf("generation attempt budgets must be positive")
	}
	if cfg.Dataset.SyncFromStore && cfg.ObjectStore.Bucket == "" {
		return Config{}, fmt.Errorf("object store bucket is required when dataset sync is enabled")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "ridepulse-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Dataset: DatasetConfig{
			Dir:             "data",
			TripGlob:        "fhvhv_tripdata_2023-*.parquet",
			ZoneLookupCSV:   "taxi_zone_lookup.csv",
			BaseLookupCSV:   "fhv_base_lookup.csv",
			LicenseLookup:   "hvfhs_license_num_lookup.csv",
			SyncFromStore:   false,
			SyncObjectGlob:  "",
			ManifestEnabled: true,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:        "localhost:9000",
			Region:          "us-east-1",
			Bucket:          "",
			AccessKeyID:     "minio",
			SecretAccessKey: "miniostorage",
			UseSSL:          false,
			Prefix:          "",
		},
		AI: AIConfig{
			Provider:        "ollama",
			BaseURL:         "http://127.0.0.1:11434",
			Model:           "llama3",
			Temperature:     0.1,
			Timeout:         180 * time.Second,
			MaxSQLAttempts:  3,
			MaxSpecAttempts: 3,
		},
		Engine: EngineConfig{
			RowCap:       500,
			QueryTimeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			Enabled:       true,
			PreviewRows:   10,
			CacheTTL:      10 * time.Minute,
			CacheCapacity: 256,
		},
		Chart: ChartConfig{
			Output:        "image",
			Dir:           "/tmp/ridepulse-charts",
			MaxPoints:     2000,
			RetainAge:     24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Pipeline.Enabled = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
