package store

import "testing"

func TestNewPaginationComputesTotalPages(t *testing.T) {
	cases := []struct {
		total, page, pageSize, wantPages int
	}{
		{0, 1, 10, 1},
		{10, 1, 10, 1},
		{11, 1, 10, 2},
		{25, 1, 10, 3},
	}
	for _, c := range cases {
		p := NewPagination(c.total, c.page, c.pageSize)
		if p.TotalPages != c.wantPages {
			t.Errorf("NewPagination(%d, %d, %d).TotalPages = %d, want %d", c.total, c.page, c.pageSize, p.TotalPages, c.wantPages)
		}
	}
}

func TestNormalizePageClampsDefaults(t *testing.T) {
	cases := []struct {
		page, pageSize         int
		wantPage, wantPageSize int
	}{
		{0, 0, DefaultPage, DefaultPageSize},
		{-1, -5, DefaultPage, DefaultPageSize},
		{2, 500, 2, MaxPageSize},
		{3, 20, 3, 20},
	}
	for _, c := range cases {
		page, pageSize := normalizePage(c.page, c.pageSize)
		if page != c.wantPage || pageSize != c.wantPageSize {
			t.Errorf("normalizePage(%d, %d) = (%d, %d), want (%d, %d)", c.page, c.pageSize, page, pageSize, c.wantPage, c.wantPageSize)
		}
	}
}

func TestSliceWindowClampsToLength(t *testing.T) {
	cases := []struct {
		total, page, pageSize int
		wantStart, wantEnd    int
	}{
		{25, 1, 10, 0, 10},
		{25, 3, 10, 20, 25},
		{25, 10, 10, 25, 25},
	}
	for _, c := range cases {
		start, end := sliceWindow(c.total, c.page, c.pageSize)
		if start != c.wantStart || end != c.wantEnd {
			t.Errorf("sliceWindow(%d, %d, %d) = (%d, %d), want (%d, %d)", c.total, c.page, c.pageSize, start, end, c.wantStart, c.wantEnd)
		}
	}
}
