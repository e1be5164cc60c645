package model

// FileSummary is one row of the paginated file listing.
type FileSummary struct {
	RowNumber           int    `json:"rowNumber"`
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Folder              string `json:"folder,omitempty"`
	FullPath            string `json:"fullPath"`
	LineCount           *int64 `json:"lineCount"`
	FunctionPreview     string `json:"functionPreview,omitempty"`
	FileRelationPreview string `json:"fileRelationPreview,omitempty"`
	DBRelationPreview   string `json:"dbRelationPreview,omitempty"`
	HasGraph            bool   `json:"hasGraph"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	From       int `json:"from"`
	To         int `json:"to"`
}

// NewPagination clamps page into [1, totalPages] where totalPages is at least 1.
func NewPagination(page, pageSize, total int) Pagination {
	if pageSize < 1 {
		pageSize = 1
	}
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset is the number of rows preceding the current page.
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// SetRange fills From/To once the page's item count is known.
func (p *Pagination) SetRange(items int) {
	if p.Total == 0 || items == 0 {
		p.From, p.To = 0, 0
		return
	}
	p.From = p.Offset() + 1
	p.To = p.Offset() + items
}
