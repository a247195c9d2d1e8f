package rpc

// Pagination is the envelope metadata returned with every list response.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	NextPage    *int `json:"next_page"`
	PrevPage    *int `json:"prev_page"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
}

// Page is one decoded list response. Body keeps the verbatim response so it can be archived.
type Page[T any] struct {
	Number     int
	Data       []T
	Pagination Pagination
	Body       []byte
}
