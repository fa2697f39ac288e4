package models

// Page is one page of a listing.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// TotalPages rounds up; an empty listing has zero pages.
func (p *Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}

	return (p.Total + p.PageSize - 1) / p.PageSize
}
