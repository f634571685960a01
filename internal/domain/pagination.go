package domain

// PageRequest describes one cursor-paginated read. Cursor is the id of the
// last item of the previous page.
type PageRequest struct {
	Cursor string
	Limit  int
	All    bool
}

// PageQuery is the raw query string of a paginated listing.
type PageQuery struct {
	Cursor string `form:"cursor"`
	Limit  string `form:"limit"`
	All    string `form:"all"`
}

// SearchQuery is the raw query string of post search.
type SearchQuery struct {
	PageQuery
	Q string `form:"q"`
}
