package duckdb

import (
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for an input alignment file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// StatRunFiles fingerprints the input files of a run. samples may be
// shorter than paths; missing sample names are left empty.
func StatRunFiles(paths, samples []string) ([]RunFile, error) {
	files := make([]RunFile, len(paths))
	for i, p := range paths {
		fp, err := StatFile(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		files[i].FileFingerprint = fp
		if i < len(samples) {
			files[i].Sample = samples[i]
		}
	}
	return files, nil
}

// Stale reports whether the file on disk no longer matches the fingerprint
// recorded for it. A missing file is stale.
func (f FileFingerprint) Stale() bool {
	cur, err := StatFile(f.Path)
	if err != nil {
		return true
	}
	// The database keeps microsecond precision.
	return cur.Size != f.Size ||
		!cur.ModTime.Truncate(time.Microsecond).Equal(f.ModTime.Truncate(time.Microsecond))
}
