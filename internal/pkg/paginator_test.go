package pkg

import "testing"

func TestNewPageClamps(t *testing.T) {
	cases := []struct {
		raw       string
		total     int64
		wantPage  int
		wantPages int
	}{
		{"", 0, 1, 1},
		{"3", 0, 1, 1},
		{"abc", 25, 1, 3},
		{"-2", 25, 1, 3},
		{"2", 25, 2, 3},
		{"99", 25, 3, 3},
		{"1", 10, 1, 1},
		{"2", 11, 2, 2},
	}
	for _, c := range cases {
		p := NewPage(c.raw, c.total, PageSize)
		if p.Number != c.wantPage || p.NumPages != c.wantPages {
			t.Errorf("NewPage(%q, %d) = page %d of %d, want %d of %d",
				c.raw, c.total, p.Number, p.NumPages, c.wantPage, c.wantPages)
		}
	}
}

func TestPageNavigation(t *testing.T) {
	p := NewPage("2", 25, PageSize)
	if !p.HasNext() || !p.HasPrevious() || !p.HasOtherPages() {
		t.Fatalf("middle page: %+v", p)
	}
	if p.Offset() != 10 || p.Limit() != 10 || p.NextNumber() != 3 || p.PreviousNumber() != 1 {
		t.Fatalf("offset=%d next=%d prev=%d", p.Offset(), p.NextNumber(), p.PreviousNumber())
	}
	last := NewPage("3", 25, PageSize)
	if last.HasNext() || last.NextNumber() != 3 {
		t.Fatalf("last page: %+v", last)
	}
	if got := last.Range(); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("range: %v", got)
	}
}

func TestPaginateSlice(t *testing.T) {
	items := make([]int, 13)
	for i := range items {
		items[i] = i
	}
	first := Paginate(items, "", PageSize)
	if len(first.Items) != 10 || first.Items[0] != 0 || !first.HasNext() {
		t.Fatalf("first page: %+v", first)
	}
	second := Paginate(items, "2", PageSize)
	if len(second.Items) != 3 || second.Items[0] != 10 || second.HasNext() || !second.HasPrevious() {
		t.Fatalf("second page: %+v", second)
	}
	empty := Paginate([]string{}, "5", PageSize)
	if len(empty.Items) != 0 || empty.NumPages != 1 || empty.Number != 1 {
		t.Fatalf("empty: %+v", empty)
	}
}
