package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"tracuu/internal/fileutil"
	"tracuu/internal/services"
	"tracuu/internal/taxid"
)

const componentName = "batch"

// ListPending returns the spreadsheets waiting in dir, sorted by name.
// Both .xlsx and .csv inputs are accepted; spreadsheet lock files
// (~$ prefix) are skipped.
func ListPending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrConfiguration, componentName, "list",
			fmt.Sprintf("read pending directory %q", dir), err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".xlsx") && !strings.HasSuffix(lower, ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// Load reads the spreadsheet at path into a table. An .xlsx input reads
// the first worksheet; a .csv input reads the whole file. The header
// row names the columns; each required column must be present. The tax
// identifier column is canonicalized in place and fully empty rows are
// dropped.
func Load(path string) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	if isCSV(path) {
		rows, err = readCSVRows(path)
	} else {
		rows, err = readSheetRows(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, services.Wrap(services.ErrValidation, componentName, "load",
			fmt.Sprintf("spreadsheet %q has no header row", path), nil)
	}

	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = strings.TrimSpace(cell)
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, services.Wrap(services.ErrValidation, componentName, "load",
			fmt.Sprintf("workbook missing required columns: %s (found: %s)",
				strings.Join(missing, ", "), strings.Join(header, ", ")), nil)
	}

	table := NewTable(header)
	for _, raw := range rows[1:] {
		values := make(map[string]string, len(header))
		empty := true
		for i, name := range header {
			if name == "" || i >= len(raw) {
				continue
			}
			value := strings.TrimSpace(raw[i])
			if value != "" {
				empty = false
			}
			values[name] = value
		}
		if empty {
			continue
		}
		values[ColTaxID] = taxid.Normalize(values[ColTaxID])
		table.Append(values)
	}
	return table, nil
}

func readSheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, componentName, "load",
			fmt.Sprintf("open workbook %q", path), err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, services.Wrap(services.ErrValidation, componentName, "load",
			fmt.Sprintf("workbook %q has no sheets", path), nil)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, componentName, "load",
			fmt.Sprintf("read sheet %q", sheet), err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, componentName, "load",
			fmt.Sprintf("open csv %q", path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, componentName, "load",
			fmt.Sprintf("read csv %q", path), err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	}
	return rows, nil
}

func missingColumns(header []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, name := range header {
		present[name] = struct{}{}
	}
	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Write saves the table to path, as .csv or .xlsx depending on the
// extension. The file is written to a sibling temp file and renamed
// over the target, so an interrupted write never truncates a prior
// checkpoint.
func (t *Table) Write(path string) error {
	if isCSV(path) {
		return t.writeCSV(path)
	}
	return t.writeWorkbook(path)
}

func (t *Table) writeCSV(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, componentName, "write",
			fmt.Sprintf("create csv %q", tmp), err)
	}

	writeErr := func() error {
		// BOM so Excel decodes the Vietnamese headers as UTF-8.
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return err
		}
		w := csv.NewWriter(f)
		if err := w.Write(t.columns); err != nil {
			return err
		}
		record := make([]string, len(t.columns))
		for _, row := range t.rows {
			for i, name := range t.columns {
				record[i] = row[name]
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}()
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrConfiguration, componentName, "write",
			fmt.Sprintf("save csv %q", tmp), writeErr)
	}

	if err := fileutil.ReplaceFile(tmp, path); err != nil {
		return services.Wrap(services.ErrConfiguration, componentName, "write",
			fmt.Sprintf("commit csv %q", path), err)
	}
	return nil
}

func (t *Table) writeWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, name := range t.columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return services.Wrap(services.ErrValidation, componentName, "write", "address header cell", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return services.Wrap(services.ErrValidation, componentName, "write", "write header cell", err)
		}
	}
	for r, row := range t.rows {
		for c, name := range t.columns {
			value := row[name]
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return services.Wrap(services.ErrValidation, componentName, "write", "address cell", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return services.Wrap(services.ErrValidation, componentName, "write",
					fmt.Sprintf("write cell %s", cell), err)
			}
		}
	}

	// excelize derives the format from the SaveAs extension, so the
	// temp file is written through an os.File instead.
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, componentName, "write",
			fmt.Sprintf("create workbook %q", tmp), err)
	}
	_, writeErr := f.WriteTo(out)
	if closeErr := out.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrConfiguration, componentName, "write",
			fmt.Sprintf("save workbook %q", tmp), writeErr)
	}
	if err := fileutil.ReplaceFile(tmp, path); err != nil {
		return services.Wrap(services.ErrConfiguration, componentName, "write",
			fmt.Sprintf("commit workbook %q", path), err)
	}
	return nil
}

// Artifacts holds the three output paths for one input batch.
type Artifacts struct {
	Full   string
	Failed string
	Links  string
}

// ArtifactPaths derives the output paths for the given input file. A
// .csv input produces .csv artifacts; everything else produces .xlsx.
func ArtifactPaths(outputDir, inputPath string) Artifacts {
	ext := ".xlsx"
	if isCSV(inputPath) {
		ext = ".csv"
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return Artifacts{
		Full:   filepath.Join(outputDir, base+"__FULL"+ext),
		Failed: filepath.Join(outputDir, base+"__FAILED"+ext),
		Links:  filepath.Join(outputDir, base+"__LINKS"+ext),
	}
}

// WriteCheckpoint persists the full table and the links projection.
func WriteCheckpoint(table *Table, art Artifacts) error {
	if err := table.Write(art.Full); err != nil {
		return err
	}
	return table.Project(LinksColumns).Write(art.Links)
}

// WriteFinal persists all three artifacts: the full table, the
// failed-only subset, and the links projection.
func WriteFinal(table *Table, art Artifacts) error {
	if err := table.Write(art.Full); err != nil {
		return err
	}
	if err := FailedSubset(table).Write(art.Failed); err != nil {
		return err
	}
	return table.Project(LinksColumns).Write(art.Links)
}
