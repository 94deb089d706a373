package types

// PaginationResponse describes the page a list response holds
type PaginationResponse struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewPaginationResponse describes the page of filter out of total matches
func NewPaginationResponse(total int, filter *QueryFilter) PaginationResponse {
	limit, offset := filter.GetLimit(), filter.GetOffset()
	return PaginationResponse{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}
