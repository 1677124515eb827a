package diagnosis

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Diagnosis `json:"data"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	Total      int64        `json:"totalItems"`
	TotalPages int          `json:"totalPages"`
}

// Filter narrows Paginate/Count queries. Zero values match everything.
type Filter struct {
	DamageType Category
	FileName   string
}
