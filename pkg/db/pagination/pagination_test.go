package pagination

import "testing"

func TestNormalizeClampsInvalidValues(t *testing.T) {
	p := Pagination{Page: 0, PerPage: -3}.Normalize()
	if p.Page != 1 {
		t.Fatalf("expected page 1, got %d", p.Page)
	}
	if p.PerPage != DefaultPerPage {
		t.Fatalf("expected per_page %d, got %d", DefaultPerPage, p.PerPage)
	}

	p = Pagination{Page: 2, PerPage: 10_000}.Normalize()
	if p.PerPage != MaxPerPage {
		t.Fatalf("expected per_page %d, got %d", MaxPerPage, p.PerPage)
	}
}

func TestOffset(t *testing.T) {
	p := Pagination{Page: 3, PerPage: 15}
	if got := p.Offset(); got != 30 {
		t.Fatalf("expected offset 30, got %d", got)
	}
}

func TestBuildMeta(t *testing.T) {
	meta := BuildMeta(31, Pagination{Page: 2, PerPage: 15})
	if meta.Total != 31 {
		t.Fatalf("expected total 31, got %d", meta.Total)
	}
	if meta.LastPage != 3 {
		t.Fatalf("expected last page 3, got %d", meta.LastPage)
	}
	if meta.CurrentPage != 2 || meta.PerPage != 15 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestBuildMetaEmptyResult(t *testing.T) {
	meta := BuildMeta(0, Pagination{Page: 1, PerPage: 15})
	if meta.LastPage != 1 {
		t.Fatalf("expected last page 1 for empty result, got %d", meta.LastPage)
	}
}
