package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeChartFile(t *testing.T, dir, name string, age time.Duration, now time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	stamp := now.Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestSweepOnceDeletesOnlyExpiredCharts(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	old := writeChartFile(t, dir, "aaaaaaaa-1111-2222-3333-444455556666.png", 48*time.Hour, now)
	fresh := writeChartFile(t, dir, "bbbbbbbb-1111-2222-3333-444455556666.png", time.Hour, now)

	svc := &Service{
		Config: Config{ChartDir: dir, RetainAge: 24 * time.Hour},
		Clock:  func() time.Time { return now },
	}
	summary, err := svc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce() error = %v", err)
	}
	if summary.FilesScanned != 2 {
		t.Fatalf("FilesScanned = %d, want 2", summary.FilesScanned)
	}
	if summary.FilesDeleted != 1 {
		t.Fatalf("FilesDeleted = %d, want 1", summary.FilesDeleted)
	}
	if summary.BytesFreed != int64(len("png-bytes")) {
		t.Fatalf("BytesFreed = %d", summary.BytesFreed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected expired chart to be deleted")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh chart to survive: %v", err)
	}
}

func TestSweepOnceIgnoresNonChartFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	stamp := now.Add(-72 * time.Hour)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	svc := &Service{Config: Config{ChartDir: dir, RetainAge: time.Hour}}
	summary, err := svc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce() error = %v", err)
	}
	if summary.FilesScanned != 0 || summary.FilesDeleted != 0 {
		t.Fatalf("summary = %+v, want untouched", summary)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected non-chart file to survive: %v", err)
	}
}

func TestSweepOnceMissingDirectoryIsNotAnError(t *testing.T) {
	svc := &Service{Config: Config{ChartDir: filepath.Join(t.TempDir(), "missing")}}
	summary, err := svc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce() error = %v", err)
	}
	if summary.FilesScanned != 0 {
		t.Fatalf("FilesScanned = %d, want 0", summary.FilesScanned)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{Config: Config{ChartDir: t.TempDir(), SweepInterval: time.Millisecond}}

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
