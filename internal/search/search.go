package search

import "context"

// ResultType identifies the kind of item in a search result.
type ResultType string

const (
	ResultChecklist ResultType = "checklist"
	ResultNote      ResultType = "note"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	Owner    string     `json:"owner"`
	Category string     `json:"category"`
}

// Query describes a search request. Results are limited to items Username
// may read.
type Query struct {
	Text       string
	Username   string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

var (
	_ Searcher = (*Meili)(nil)
	_ Searcher = (*Scanner)(nil)
)

// Record is the data indexed for a checklist or note. Readers holds the owner
// and every user the item is shared with.
type Record struct {
	ID       string     `json:"id"`
	ItemID   string     `json:"itemId"`
	Type     ResultType `json:"type"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	Owner    string     `json:"owner"`
	Category string     `json:"category"`
	Readers  []string   `json:"readers"`
}

// RecordID builds the index key for an item. Checklist and note ids live in
// separate namespaces, so the type is part of the key.
func RecordID(kind ResultType, itemID string) string {
	return string(kind) + "-" + itemID
}

// Source loads indexable records. An empty username means every user's items;
// otherwise only the items that user may read.
type Source interface {
	Records(ctx context.Context, username string) ([]Record, error)
}

func (r Record) readableBy(username string) bool {
	for _, reader := range r.Readers {
		if reader == username {
			return true
		}
	}
	return false
}

func (r Record) result(snippet string) Result {
	return Result{
		Type:     r.Type,
		ID:       r.ItemID,
		Title:    r.Title,
		Snippet:  snippet,
		Owner:    r.Owner,
		Category: r.Category,
	}
}
