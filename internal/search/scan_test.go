package search

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeSource struct {
	records []Record
	err     error
}

func (f fakeSource) Records(ctx context.Context, username string) ([]Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	if username == "" {
		return f.records, nil
	}
	visible := make([]Record, 0)
	for _, record := range f.records {
		if record.readableBy(username) {
			visible = append(visible, record)
		}
	}
	return visible, nil
}

func testRecords() []Record {
	return []Record{
		{ID: RecordID(ResultChecklist, "c1"), ItemID: "c1", Type: ResultChecklist, Title: "Groceries", Body: "milk\neggs\nbread", Owner: "alice", Category: "Home", Readers: []string{"alice"}},
		{ID: RecordID(ResultNote, "n1"), ItemID: "n1", Type: ResultNote, Title: "Trip plan", Body: "Buy MILK before leaving", Owner: "alice", Category: "Travel", Readers: []string{"alice", "bob"}},
		{ID: RecordID(ResultNote, "n2"), ItemID: "n2", Type: ResultNote, Title: "Secret", Body: "milk is private", Owner: "carol", Category: "Uncategorized", Readers: []string{"carol"}},
	}
}

func TestScannerMatchesCaseInsensitively(t *testing.T) {
	scanner := NewScanner(fakeSource{records: testRecords()})

	results, total, err := scanner.Search(context.Background(), Query{Text: "Milk", Username: "alice"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 2 || len(results) != 2 {
		t.Fatalf("expected 2 results, got %d (%+v)", total, results)
	}
	for _, result := range results {
		if result.Owner != "alice" {
			t.Fatalf("unexpected result from %s", result.Owner)
		}
	}
}

func TestScannerOnlyReturnsReadableItems(t *testing.T) {
	scanner := NewScanner(fakeSource{records: testRecords()})

	results, _, err := scanner.Search(context.Background(), Query{Text: "milk", Username: "bob"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "n1" {
		t.Fatalf("expected only the shared note, got %+v", results)
	}
	if !strings.Contains(strings.ToLower(results[0].Snippet), "milk") {
		t.Fatalf("expected snippet around match, got %q", results[0].Snippet)
	}
}

func TestScannerFiltersAndPaginates(t *testing.T) {
	scanner := NewScanner(fakeSource{records: testRecords()})
	ctx := context.Background()

	results, total, err := scanner.Search(ctx, Query{Text: "milk", Username: "alice", FilterType: ResultChecklist})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 1 || results[0].Type != ResultChecklist {
		t.Fatalf("expected one checklist, got %+v", results)
	}

	results, total, err = scanner.Search(ctx, Query{Text: "milk", Username: "alice", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 2 || len(results) != 1 {
		t.Fatalf("expected second page of one, got total=%d results=%+v", total, results)
	}

	results, _, err = scanner.Search(ctx, Query{Text: "   ", Username: "alice"})
	if err != nil || len(results) != 0 {
		t.Fatalf("blank query = %+v, %v", results, err)
	}
}

func TestServiceFallsBackToScanner(t *testing.T) {
	svc := NewService(nil, fakeSource{records: testRecords()})

	resp := svc.Search(context.Background(), Query{Text: "groceries", Username: "alice"})
	if resp.Total != 1 || resp.Results[0].ID != "c1" || resp.Query != "groceries" {
		t.Fatalf("unexpected response %+v", resp)
	}

	svc = NewService(nil, fakeSource{err: errors.New("disk on fire")})
	resp = svc.Search(context.Background(), Query{Text: "milk", Username: "alice"})
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty non-nil results on error, got %+v", resp)
	}

	// Without Meilisearch these are no-ops.
	svc.Index(Record{ID: "x"})
	svc.Delete(ResultNote, "x")
	svc.ReindexAll(context.Background())
	svc.Close()
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a ", 100) + "needle" + strings.Repeat(" b", 100)
	got := snippet(long, "needle")
	if !strings.Contains(got, "needle") || !strings.HasPrefix(got, "…") || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected snippet %q", got)
	}
	if got := snippet("short text", "missing"); got != "short text" {
		t.Fatalf("unexpected snippet without match %q", got)
	}
}
