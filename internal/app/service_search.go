package app

import (
	"context"
	"strings"

	"checkmark/api/internal/search"
	"checkmark/api/internal/store"
)

func (s *Service) Search(ctx context.Context, actor store.User, text, filterType string, limit, offset int) (search.Response, error) {
	q := search.Query{
		Text:     strings.TrimSpace(text),
		Username: actor.Username,
		Limit:    limit,
		Offset:   offset,
	}
	if filterType != "" {
		kind, err := parseItemType(filterType)
		if err != nil {
			return search.Response{}, err
		}
		q.FilterType = search.ResultType(kind)
	}
	if limit < 0 || offset < 0 {
		return search.Response{}, errValidation("limit and offset must not be negative")
	}
	if q.Text == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	return s.search.Search(ctx, q), nil
}
