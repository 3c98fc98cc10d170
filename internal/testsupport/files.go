package testsupport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"tracuu/internal/batch"
)

// WriteBatchCSV writes a batch input file carrying the required header
// plus one row per entry of rows (sequence, account, name, identifier).
func WriteBatchCSV(t testing.TB, path string, rows [][4]string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(batch.RequiredColumns); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, row := range rows {
		if err := w.Write(row[:]); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush %s: %v", path, err)
	}
}
