package domain

// Query describes a filtered, sorted, paginated read of one collection.
// Field names refer to the record's JSON keys. The zero Query lists everything.
type Query struct {
	// Equals keeps records whose field equals the value. "user_id" and "email"
	// are served by indexed columns.
	Equals map[string]any
	// Search keeps records where any of SearchFields contains Search,
	// case-insensitively.
	Search       string
	SearchFields []string
	// Tags keeps records sharing at least one tag.
	Tags []string
	// Min keeps records whose numeric field is >= the threshold.
	Min map[string]float64
	// SortBy orders results by a field; empty means creation order.
	SortBy     string
	Descending bool
	Page       PaginationParams
}

// IsZero reports whether q applies no filter, sort or pagination.
func (q Query) IsZero() bool {
	return len(q.Equals) == 0 && q.Search == "" && len(q.Tags) == 0 &&
		len(q.Min) == 0 && q.SortBy == "" && q.Page.Limit == 0
}

// ByUser is the common query for every record owned by userID.
func ByUser(userID string) Query {
	return Query{Equals: map[string]any{"user_id": userID}}
}

// TagCount reports how many of a user's roteiros carry a tag.
type TagCount struct {
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}
