// Package batch loads input workbooks, holds the accumulating result
// table, and writes the three output artifacts per batch.
package batch

// Input columns every batch workbook must carry.
const (
	ColSequence = "STT"
	ColAccount  = "CIF"
	ColCustomer = "CusTomer_Name"
	ColTaxID    = "Mã số thuế"
)

// Columns derived at load time and filled per row during resolution.
const (
	ColNormalized   = "mst_norm"
	ColExpandedName = "customer_name_expanded"
	ColSlug         = "customer_slug"
	ColLink         = "link_masothue"
	ColAPIName      = "api_name"
	ColAPISource    = "api_source"
	ColAPIError     = "api_error"
	ColAPILink      = "link_masothue_api"
	ColStatus       = "crawl_status"
	ColSource       = "crawl_source"
	ColError        = "crawl_error"
)

// RequiredColumns lists what the input workbook must provide. A
// missing column is a fatal load error.
var RequiredColumns = []string{ColSequence, ColAccount, ColCustomer, ColTaxID}

var derivedColumns = []string{
	ColNormalized, ColExpandedName, ColSlug, ColLink,
	ColAPIName, ColAPISource, ColAPIError, ColAPILink,
	ColStatus, ColSource, ColError,
}

// LinksColumns is the reduced projection the links artifact carries,
// in output order.
var LinksColumns = []string{
	ColSequence, ColAccount, ColCustomer, ColTaxID, ColNormalized,
	ColExpandedName, ColLink,
	ColAPIName, ColAPISource, ColAPILink, ColAPIError,
	ColStatus, ColSource, ColError,
}

// Table is one batch held in memory: an ordered column list plus rows
// addressed by column name. Columns discovered during resolution are
// appended after the existing ones, never inserted, so repeated runs
// produce the same layout.
type Table struct {
	columns []string
	seen    map[string]struct{}
	rows    []map[string]string
}

// NewTable builds an empty table with the given starting columns.
// Empty and duplicate names are dropped.
func NewTable(columns []string) *Table {
	t := &Table{seen: map[string]struct{}{}}
	for _, name := range columns {
		t.EnsureColumn(name)
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len reports the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// EnsureColumn registers a column, appending it when unseen.
func (t *Table) EnsureColumn(name string) {
	if name == "" {
		return
	}
	if _, ok := t.seen[name]; ok {
		return
	}
	t.seen[name] = struct{}{}
	t.columns = append(t.columns, name)
}

// Append adds one row and returns its index. Values under unknown
// columns register those columns.
func (t *Table) Append(values map[string]string) int {
	row := make(map[string]string, len(values))
	for name, value := range values {
		if name == "" {
			continue
		}
		t.EnsureColumn(name)
		row[name] = value
	}
	t.rows = append(t.rows, row)
	return len(t.rows) - 1
}

// Set stores a value, registering the column when new.
func (t *Table) Set(row int, column, value string) {
	if column == "" {
		return
	}
	t.EnsureColumn(column)
	t.rows[row][column] = value
}

// Get returns the value at (row, column), empty when unset.
func (t *Table) Get(row int, column string) string {
	return t.rows[row][column]
}

// Filter returns a new table with the same columns and only the rows
// keep admits.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := NewTable(t.columns)
	for i, row := range t.rows {
		if !keep(i) {
			continue
		}
		copied := make(map[string]string, len(row))
		for name, value := range row {
			copied[name] = value
		}
		out.rows = append(out.rows, copied)
	}
	return out
}

// Project returns a new table reduced to the named columns, keeping
// only those this table has, in the given order.
func (t *Table) Project(columns []string) *Table {
	present := make([]string, 0, len(columns))
	for _, name := range columns {
		if _, ok := t.seen[name]; ok {
			present = append(present, name)
		}
	}
	out := NewTable(present)
	for _, row := range t.rows {
		copied := make(map[string]string, len(present))
		for _, name := range present {
			if value, ok := row[name]; ok {
				copied[name] = value
			}
		}
		out.rows = append(out.rows, copied)
	}
	return out
}
