package search

import (
	"context"
	"strings"
	"unicode/utf8"
)

const snippetRadius = 60

// Scanner searches by reading every record the user can see. It needs no
// external service and backs the search endpoint when Meilisearch is absent.
type Scanner struct {
	source Source
}

func NewScanner(source Source) *Scanner {
	return &Scanner{source: source}
}

// Healthy always returns true; the scanner reads the same files the API serves.
func (s *Scanner) Healthy() bool {
	return true
}

func (s *Scanner) Search(ctx context.Context, q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" || q.Username == "" {
		return nil, 0, nil
	}
	records, err := s.source.Records(ctx, q.Username)
	if err != nil {
		return nil, 0, err
	}

	matches := make([]Result, 0)
	for _, record := range records {
		if q.FilterType != "" && record.Type != q.FilterType {
			continue
		}
		if !record.readableBy(q.Username) {
			continue
		}
		title := strings.ToLower(record.Title)
		body := strings.ToLower(record.Body)
		if strings.Contains(title, needle) || strings.Contains(body, needle) {
			matches = append(matches, record.result(snippet(record.Body, needle)))
		}
	}

	total := len(matches)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Result{}, total, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matches[offset:end], total, nil
}

// snippet cuts a window of text around the first match of needle. Without a
// match in the text it returns the start of the text.
func snippet(text, needle string) string {
	text = strings.Join(strings.Fields(text), " ")
	idx, n := strings.Index(strings.ToLower(text), needle), len(needle)
	if idx < 0 || idx+n > len(text) {
		idx, n = 0, 0
	}
	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + n + snippetRadius
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	out := text[start:end]
	if start > 0 {
		out = "…" + out
	}
	if end < len(text) {
		out += "…"
	}
	return out
}
