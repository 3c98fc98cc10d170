package batch

import (
	"tracuu/internal/resolve"
	"tracuu/internal/textutil"
)

// Prepare appends the derived and bookkeeping columns and fills the
// per-row derivations, so every checkpoint shows the synthesized link
// even for rows not yet processed.
func Prepare(table *Table, linker *resolve.Linker) {
	for _, name := range derivedColumns {
		table.EnsureColumn(name)
	}
	for i := 0; i < table.Len(); i++ {
		identifier := table.Get(i, ColTaxID)
		display := linker.DisplayName(table.Get(i, ColCustomer))
		table.Set(i, ColNormalized, identifier)
		table.Set(i, ColExpandedName, display)
		table.Set(i, ColSlug, textutil.Slugify(display))
		table.Set(i, ColLink, linker.Synthesize(identifier, display))
	}
}

// ApplyOutcome writes one row's terminal result into the table. On
// success the resolved record's attributes merge in, appending newly
// discovered columns; on exhaustion the full error trail lands in the
// error column. Reapplying the same outcome is idempotent.
func ApplyOutcome(table *Table, row int, out *resolve.Outcome) {
	table.Set(row, ColNormalized, out.Identifier)
	table.Set(row, ColExpandedName, out.DisplayName)
	table.Set(row, ColSlug, textutil.Slugify(out.DisplayName))
	table.Set(row, ColLink, out.Link)
	table.Set(row, ColAPIName, out.APIName)
	table.Set(row, ColAPISource, out.APISource)
	table.Set(row, ColAPILink, out.APILink)
	table.Set(row, ColAPIError, out.APIError)
	table.Set(row, ColStatus, out.Status)
	table.Set(row, ColSource, out.Source)

	if out.OK() {
		if out.Record == nil {
			return
		}
		for _, key := range out.Record.Keys() {
			value, _ := out.Record.Get(key)
			table.Set(row, key, value)
		}
		return
	}
	table.Set(row, ColError, out.ErrorTrail())
}

// ApplyPrefetch writes only the name-recovery columns from an
// unconfirmed pass. The crawl verdict columns stay untouched so a
// later full run still owns the terminal status.
func ApplyPrefetch(table *Table, row int, out *resolve.Outcome) {
	table.Set(row, ColAPIName, out.APIName)
	table.Set(row, ColAPISource, out.APISource)
	table.Set(row, ColAPILink, out.APILink)
	table.Set(row, ColAPIError, out.APIError)
}

// FailedSubset returns the rows whose status is not a success tag,
// including rows never reached.
func FailedSubset(table *Table) *Table {
	return table.Filter(func(row int) bool {
		return !resolve.IsSuccessStatus(table.Get(row, ColStatus))
	})
}
