package pkg

// Pagination is the envelope of paged public listings.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(total, page, limit int) Pagination {
	p := Pagination{
		Total: total,
		Page:  page,
		Limit: limit,
	}
	if limit > 0 {
		p.TotalPages = (total + limit - 1) / limit
	}
	return p
}
