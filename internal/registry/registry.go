// Package registry defines the capability boundary to external
// business registries: a flat ordered record and the two lookups the
// resolution chain needs from every source.
package registry

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"tracuu/internal/textutil"
)

// Record is a flat attribute mapping that preserves the order in which
// keys were first seen, so discovered output columns append in a
// stable order instead of map-iteration order.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: map[string]string{}}
}

// Set stores a value, registering the key on first use. Empty keys are
// ignored.
func (r *Record) Set(key, value string) {
	if key == "" {
		return
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (string, bool) {
	value, ok := r.values[key]
	return value, ok
}

// Keys returns the attribute names in first-seen order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len reports the number of attributes.
func (r *Record) Len() int {
	return len(r.keys)
}

// Merge copies every attribute of other into r. Keys r has not seen
// are appended after its existing ones; keys it has seen take the
// incoming value.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		r.Set(key, other.values[key])
	}
}

// Client is one external registry source. Both operations block the
// calling worker; neither retries internally. Implementations fail
// with the shared error markers so the resolution chain can classify
// tier failures uniformly.
type Client interface {
	// Name identifies the source in provenance tags and logs.
	Name() string
	// FetchByLink loads the detail page at url and parses its keyed
	// structure into a record.
	FetchByLink(ctx context.Context, url string) (*Record, error)
	// SearchByIdentifier drives the source's search entry point and
	// returns the best matching candidate's detail record. Identifier
	// equality (compared digit-wise) picks among multiple candidates;
	// the first candidate wins when nothing matches exactly.
	SearchByIdentifier(ctx context.Context, identifier string) (*Record, error)
}

// ParseTable walks the tr/td grid of a keyed detail table and stores
// each pair under prefix+key. It returns how many pairs were stored.
func ParseTable(table *goquery.Selection, prefix string, rec *Record) int {
	count := 0
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := textutil.NormalizeKey(cells.Eq(0).Text())
		if key == "" {
			return
		}
		rec.Set(prefix+key, textutil.CleanText(cells.Eq(1).Text()))
		count++
	})
	return count
}
