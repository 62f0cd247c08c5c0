package pagination

import "gorm.io/gorm"

const (
	DefaultPerPage = 15
	MaxPerPage     = 250
)

// Pagination is classic offset pagination as exposed on list endpoints.
type Pagination struct {
	Page    int `form:"page,default=1"`
	PerPage int `form:"per_page,default=15"`
}

// Meta describes the page that was returned.
type Meta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
}

// Normalize clamps page and per_page into their allowed ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Apply adds the offset/limit clauses for this page.
func (p Pagination) Apply(stmt *gorm.DB) *gorm.DB {
	return stmt.Offset(p.Offset()).Limit(p.PerPage)
}

// BuildMeta computes page metadata for a total row count.
func BuildMeta(total int64, p Pagination) Meta {
	lastPage := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return Meta{
		Total:       total,
		CurrentPage: p.Page,
		LastPage:    lastPage,
		PerPage:     p.PerPage,
	}
}
