// Package export materializes audit result tables as timestamped CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirPerms is used when creating the export directory.
const DirPerms = 0o755

// timestampLayout matches the filenames the audit tooling has always
// produced, e.g. MissingAssignments_20260901_154500.csv.
const timestampLayout = "20060102_150405"

// Table is a materialized result table ready for export.
type Table struct {
	Headers []string
	Rows    [][]string
}

// WriteCSV writes a table to dir as <prefix>_<timestamp>.csv and returns the
// full path of the file written.
func WriteCSV(dir, prefix string, table Table) (string, error) {
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return "", fmt.Errorf("export: creating %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s.csv", prefix, time.Now().Format(timestampLayout))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(table.Headers); err != nil {
		return "", fmt.Errorf("export: writing %s: %w", path, err)
	}

	for _, row := range table.Rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("export: writing %s: %w", path, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return "", fmt.Errorf("export: flushing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("export: closing %s: %w", path, err)
	}

	return path, nil
}
