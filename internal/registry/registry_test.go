package registry

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestRecordPreservesFirstSeenKeyOrder(t *testing.T) {
	rec := NewRecord()
	rec.Set("b", "2")
	rec.Set("a", "1")
	rec.Set("b", "overwritten")
	rec.Set("c", "3")
	rec.Set("", "dropped")

	keys := rec.Keys()
	want := []string{"b", "a", "c"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i, key := range want {
		if keys[i] != key {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], key)
		}
	}
	if value, _ := rec.Get("b"); value != "overwritten" {
		t.Fatalf("b = %q, want the newest value", value)
	}
}

func TestRecordMergeAppendsNovelKeys(t *testing.T) {
	base := NewRecord()
	base.Set("mst_t1_name", "ALPHA")
	base.Set("masothue_url", "https://masothue.com/x")

	other := NewRecord()
	other.Set("masothue_url", "https://masothue.com/y")
	other.Set("tvpl_status", "Đang hoạt động")

	base.Merge(other)

	keys := base.Keys()
	want := []string{"mst_t1_name", "masothue_url", "tvpl_status"}
	for i, key := range want {
		if keys[i] != key {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
	if value, _ := base.Get("masothue_url"); value != "https://masothue.com/y" {
		t.Fatalf("merged url = %q, want the incoming value", value)
	}
}

func TestParseTableReadsKeyedRows(t *testing.T) {
	const page = `<table id="detail">
		<tr><td> Tên quốc tế : </td><td> ALPHA  CO., LTD </td></tr>
		<tr><td>Tình trạng:</td><td>Đang hoạt động</td></tr>
		<tr><td>only-one-cell</td></tr>
		<tr><td>  </td><td>skipped empty key</td></tr>
	</table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}

	rec := NewRecord()
	count := ParseTable(doc.Find("#detail"), "mst_t1_", rec)
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if value, _ := rec.Get("mst_t1_Tên quốc tế"); value != "ALPHA CO., LTD" {
		t.Fatalf("international name = %q", value)
	}
	if value, _ := rec.Get("mst_t1_Tình trạng"); value != "Đang hoạt động" {
		t.Fatalf("status = %q", value)
	}
}
