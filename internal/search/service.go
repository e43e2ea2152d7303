package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to
// scanning the user's items.
type Service struct {
	meili    *Meili
	fallback Searcher
	source   Source
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, source Source) *Service {
	return &Service{meili: meili, fallback: NewScanner(source), source: source}
}

// Search tries Meilisearch if healthy, otherwise falls back to the scanner.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to scan: %v", err)
	}

	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		log.Printf("search: scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// Index pushes a record to Meilisearch (fire-and-forget).
func (s *Service) Index(record Record) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.Index([]Record{record}); err != nil {
			log.Printf("search: index %s: %v", record.ID, err)
		}
	}()
}

// Delete removes an item from the index (fire-and-forget).
func (s *Service) Delete(kind ResultType, itemID string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	id := RecordID(kind, itemID)
	go func() {
		if err := s.meili.Delete(id); err != nil {
			log.Printf("search: delete %s: %v", id, err)
		}
	}()
}

// ReindexAll loads every record from the source and pushes it to Meilisearch.
// Called during Bootstrap.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	records, err := s.source.Records(ctx, "")
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.Index(records); err != nil {
		log.Printf("search: reindex: %v", err)
	}
}

// Close stops background work.
func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
