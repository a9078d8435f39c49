package engine

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/ridepulse/ridepulse/internal/config"
	"github.com/ridepulse/ridepulse/internal/schema"
)

// exposedTables are the relations the language layer may query. The raw
// and intermediate views stay internal to the bootstrap chain.
var exposedTables = []string{"fhv_with_company", "taxi_zones"}

// DB owns an in-memory DuckDB instance with the trip dataset mounted as
// a chain of views over the parquet files and lookup CSVs.
type DB struct {
	sqlDB *sql.DB
}

func Open(ctx context.Context, cfg config.DatasetConfig) (*DB, error) {
	sqlDB, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	db := &DB{sqlDB: sqlDB}
	if err := db.bootstrap(ctx, cfg); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) SQL() *sql.DB {
	return d.sqlDB
}

func (d *DB) Close() error {
	return d.sqlDB.Close()
}

// bootstrap loads the lookup tables and builds the view chain
// fhv_raw -> fhv_clean -> fhv_with_zones -> fhv_with_company.
func (d *DB) bootstrap(ctx context.Context, cfg config.DatasetConfig) error {
	tripGlob := filepath.Join(cfg.Dir, cfg.TripGlob)
	zoneCSV := filepath.Join(cfg.Dir, cfg.ZoneLookupCSV)
	baseCSV := filepath.Join(cfg.Dir, cfg.BaseLookupCSV)
	licenseCSV := filepath.Join(cfg.Dir, cfg.LicenseLookup)

	statements := []struct {
		name string
		sql  string
	}{
		{
			name: "taxi_zones",
			sql: fmt.Sprintf(
				`CREATE OR REPLACE TABLE taxi_zones AS
				 SELECT * FROM read_csv(%s, header = true, auto_detect = true)`,
				quoteLiteral(zoneCSV)),
		},
		{
			name: "fhv_base_lookup",
			sql: fmt.Sprintf(
				`CREATE OR REPLACE TABLE fhv_base_lookup AS
				 SELECT * FROM read_csv(%s, header = true, auto_detect = true)`,
				quoteLiteral(baseCSV)),
		},
		{
			name: "hvfhs_licenses",
			sql: fmt.Sprintf(
				`CREATE OR REPLACE TABLE hvfhs_licenses AS
				 SELECT * FROM read_csv(%s, header = true, auto_detect = true)`,
				quoteLiteral(licenseCSV)),
		},
		{
			name: "fhv_raw",
			sql: fmt.Sprintf(
				`CREATE OR REPLACE VIEW fhv_raw AS
				 SELECT * FROM read_parquet(%s)`,
				quoteLiteral(tripGlob)),
		},
		{
			name: "fhv_clean",
			sql: `CREATE OR REPLACE VIEW fhv_clean AS
				SELECT
					*,
					date_trunc('day', pickup_datetime)  AS pickup_date,
					extract('hour' FROM pickup_datetime) AS pickup_hour,
					dayname(pickup_datetime)             AS pickup_weekday
				FROM fhv_raw
				WHERE pickup_datetime IS NOT NULL
				  AND dropoff_datetime IS NOT NULL
				  AND dropoff_datetime > pickup_datetime
				  AND trip_miles > 0
				  AND trip_time > 0`,
		},
		{
			name: "fhv_with_zones",
			sql: `CREATE OR REPLACE VIEW fhv_with_zones AS
				SELECT
					t.*,
					pu.Zone    AS pickup_zone,
					pu.Borough AS pickup_borough,
					do.Zone    AS dropoff_zone,
					do.Borough AS dropoff_borough
				FROM fhv_clean AS t
				LEFT JOIN taxi_zones AS pu ON t.PULocationID = pu.LocationID
				LEFT JOIN taxi_zones AS do ON t.DOLocationID = do.LocationID`,
		},
		{
			name: "fhv_with_company",
			sql: `CREATE OR REPLACE VIEW fhv_with_company AS
				SELECT
					t.*,
					COALESCE(l.company, 'Unknown') AS company
				FROM fhv_with_zones AS t
				LEFT JOIN hvfhs_licenses AS l ON t.hvfhs_license_num = l.hvfhs_license_num`,
		},
	}

	for _, stmt := range statements {
		if _, err := d.sqlDB.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("bootstrap %s: %w", stmt.name, err)
		}
	}
	return nil
}

// Catalog reads the exposed relations out of information_schema so the
// prompt and validator always see what the engine actually serves.
func (d *DB) Catalog(ctx context.Context) (*schema.Catalog, error) {
	placeholders := make([]string, len(exposedTables))
	args := make([]any, len(exposedTables))
	for i, name := range exposedTables {
		placeholders[i] = "?"
		args[i] = name
	}
	query := fmt.Sprintf(
		`SELECT table_name, column_name, data_type
		 FROM information_schema.columns
		 WHERE table_name IN (%s)
		 ORDER BY table_name, ordinal_position`,
		strings.Join(placeholders, ", "))

	rows, err := d.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read information_schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := map[string][]schema.Column{}
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return nil, fmt.Errorf("scan information_schema row: %w", err)
		}
		columns[table] = append(columns[table], schema.Column{Name: column, Type: dataType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate information_schema rows: %w", err)
	}

	tables := make([]schema.Table, 0, len(exposedTables))
	for _, name := range exposedTables {
		cols, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("relation %q missing after bootstrap", name)
		}
		tables = append(tables, schema.Table{Name: name, Columns: cols})
	}
	return schema.NewCatalog(tables)
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
