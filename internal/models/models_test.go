package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDateRangeCoversWholeToDay(t *testing.T) {
	r, err := ParseDateRange("2026-03-01", "2026-03-02")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !r.Contains(time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)) {
		t.Fatalf("expected late on the to-day to match")
	}
	if r.Contains(time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC)) {
		t.Fatalf("expected day before from to be excluded")
	}
	if r.Contains(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected day after to to be excluded")
	}
}

func TestParseDateRangeErrors(t *testing.T) {
	if _, err := ParseDateRange("03/01/2026", ""); err == nil {
		t.Fatalf("expected bad layout to fail")
	}
	if _, err := ParseDateRange("2026-03-05", "2026-03-01"); err == nil {
		t.Fatalf("expected inverted range to fail")
	}
	r, err := ParseDateRange("", "")
	if err != nil || !r.Contains(time.Time{}) {
		t.Fatalf("expected open range to match everything")
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}
	p := Paginate(items, 3, 10)
	if p.TotalPages != 3 || len(p.Items) != 3 || p.Items[0] != 20 {
		t.Fatalf("unexpected last page %#v", p)
	}
	p = Paginate(items, 99, 10)
	if p.Page != 3 {
		t.Fatalf("expected page clamp to 3, got %d", p.Page)
	}
	empty := Paginate([]int{}, 1, 0)
	if empty.TotalPages != 1 || len(empty.Items) != 0 || empty.PageSize != DefaultPageSize {
		t.Fatalf("unexpected empty page %#v", empty)
	}
}

func TestRecipientCountAndAssignee(t *testing.T) {
	if n := (Campaign{To: "911, 922,,933"}).RecipientCount(); n != 3 {
		t.Fatalf("expected 3 recipients, got %d", n)
	}
	if (Ticket{}).Assignee() != "Admin" {
		t.Fatalf("expected empty assignee to display Admin")
	}
}

func TestHasSeenIsPerViewer(t *testing.T) {
	a := Announcement{SeenBy: []string{"v@x.com"}}
	if !a.HasSeen("v@x.com") || a.HasSeen("w@x.com") {
		t.Fatalf("unexpected seen state")
	}
}

func TestMegabytesAcceptsStringsAndNumbers(t *testing.T) {
	var u StorageUsage
	if err := json.Unmarshal([]byte(`{"fileStorage":{"megabytes":"12.50"},"databaseStorage":{"megabytes":3.25}}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.FileStorage.Megabytes != 12.5 || u.DatabaseStorage.Megabytes != 3.25 {
		t.Fatalf("unexpected usage %#v", u)
	}
	if err := json.Unmarshal([]byte(`{"megabytes":"lots"}`), &u.FileStorage); err == nil {
		t.Fatalf("expected error for non-numeric megabytes")
	}
}
