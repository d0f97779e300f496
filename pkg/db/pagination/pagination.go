package pagination

// Pagination carries offset paging parameters bound from query strings.
type Pagination struct {
	Page      int    `form:"page,default=1" validate:"gte=1"`
	Limit     int    `form:"limit,default=10" validate:"gte=1,lte=100"` // Min 1, Max 100
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

func BuildPageInfo(p Pagination, total int64) *PageInfo {
	totalPages := int(total) / p.Limit
	if int(total)%p.Limit != 0 {
		totalPages++
	}
	return &PageInfo{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
