package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
)

type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Rows int64  `json:"rows"`
}

// Manifest describes the parquet files the engine will mount, with row
// counts read straight from the parquet footers.
type Manifest struct {
	Files     []FileInfo `json:"files"`
	TotalRows int64      `json:"total_rows"`
}

func BuildManifest(dir, glob string) (Manifest, error) {
	paths, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return Manifest{}, fmt.Errorf("invalid dataset glob %q: %w", glob, err)
	}
	sort.Strings(paths)

	var manifest Manifest
	for _, p := range paths {
		info, err := describeFile(p)
		if err != nil {
			return Manifest{}, err
		}
		manifest.Files = append(manifest.Files, info)
		manifest.TotalRows += info.Rows
	}
	return manifest, nil
}

func describeFile(path string) (FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %q: %w", path, err)
	}
	parquetFile, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return FileInfo{}, fmt.Errorf("read parquet footer of %q: %w", path, err)
	}
	return FileInfo{
		Name: filepath.Base(path),
		Size: stat.Size(),
		Rows: parquetFile.NumRows(),
	}, nil
}
