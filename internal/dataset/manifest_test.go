package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

type tripRow struct {
	Company   string  `parquet:"company"`
	TripMiles float64 `parquet:"trip_miles"`
}

func writeParquet(t *testing.T, path string, rows []tripRow) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %q: %v", path, err)
	}
	writer := parquet.NewGenericWriter[tripRow](f)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func TestBuildManifestReadsFooterRowCounts(t *testing.T) {
	dir := t.TempDir()
	writeParquet(t, filepath.Join(dir, "fhvhv_tripdata_2023-01.parquet"), []tripRow{
		{Company: "Uber", TripMiles: 2.4},
		{Company: "Lyft", TripMiles: 1.1},
		{Company: "Uber", TripMiles: 7.9},
	})
	writeParquet(t, filepath.Join(dir, "fhvhv_tripdata_2023-02.parquet"), []tripRow{
		{Company: "Via", TripMiles: 3.3},
	})

	manifest, err := BuildManifest(dir, "fhvhv_tripdata_2023-*.parquet")
	if err != nil {
		t.Fatalf("BuildManifest() error = %v", err)
	}
	if len(manifest.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(manifest.Files))
	}
	if manifest.Files[0].Rows != 3 || manifest.Files[1].Rows != 1 {
		t.Fatalf("rows = %d/%d, want 3/1", manifest.Files[0].Rows, manifest.Files[1].Rows)
	}
	if manifest.TotalRows != 4 {
		t.Fatalf("TotalRows = %d, want 4", manifest.TotalRows)
	}
}

func TestBuildManifestEmptyDirIsEmptyManifest(t *testing.T) {
	manifest, err := BuildManifest(t.TempDir(), "*.parquet")
	if err != nil {
		t.Fatalf("BuildManifest() error = %v", err)
	}
	if len(manifest.Files) != 0 || manifest.TotalRows != 0 {
		t.Fatalf("manifest = %+v, want empty", manifest)
	}
}
