package app

import (
	"context"
	"errors"
	"strings"

	"checkmark/api/internal/search"
	"checkmark/api/internal/store"
)

// RecordSource feeds checklists and notes from the file store to the search
// service.
type RecordSource struct {
	files *store.Store
}

func NewRecordSource(files *store.Store) *RecordSource {
	return &RecordSource{files: files}
}

func (r *RecordSource) Records(ctx context.Context, username string) ([]search.Record, error) {
	if username == "" {
		return r.allRecords(ctx)
	}
	return r.userRecords(ctx, username)
}

func (r *RecordSource) allRecords(ctx context.Context) ([]search.Record, error) {
	lists, err := r.files.ListAllChecklists(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := r.files.ListAllNotes(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]search.Record, 0, len(lists)+len(notes))
	for _, list := range lists {
		grant, err := r.files.GetGrant(ctx, store.ItemChecklist, list.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, checklistRecord(list, grant))
	}
	for _, note := range notes {
		grant, err := r.files.GetGrant(ctx, store.ItemNote, note.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, noteRecord(note, grant))
	}
	return records, nil
}

func (r *RecordSource) userRecords(ctx context.Context, username string) ([]search.Record, error) {
	lists, err := r.files.ListChecklists(ctx, username)
	if err != nil {
		return nil, err
	}
	notes, err := r.files.ListNotes(ctx, username)
	if err != nil {
		return nil, err
	}
	records := make([]search.Record, 0, len(lists)+len(notes))
	for _, list := range lists {
		records = append(records, checklistRecord(list, nil))
	}
	for _, note := range notes {
		records = append(records, noteRecord(note, nil))
	}

	grants, err := r.files.GrantsSharedWith(ctx, username)
	if err != nil {
		return nil, err
	}
	for i := range grants {
		grant := &grants[i]
		switch grant.ItemType {
		case store.ItemChecklist:
			list, err := r.files.GetChecklist(ctx, grant.Owner, grant.ItemID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			records = append(records, checklistRecord(list, grant))
		case store.ItemNote:
			note, err := r.files.GetNote(ctx, grant.Owner, grant.ItemID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			records = append(records, noteRecord(note, grant))
		}
	}
	return records, nil
}

func checklistRecord(list store.Checklist, grant *store.Grant) search.Record {
	lines := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		lines = append(lines, item.Text)
	}
	return search.Record{
		ID:       search.RecordID(search.ResultChecklist, list.ID),
		ItemID:   list.ID,
		Type:     search.ResultChecklist,
		Title:    list.Title,
		Body:     strings.Join(lines, "\n"),
		Owner:    list.Owner,
		Category: list.Category,
		Readers:  readers(list.Owner, grant),
	}
}

func noteRecord(note store.Note, grant *store.Grant) search.Record {
	return search.Record{
		ID:       search.RecordID(search.ResultNote, note.ID),
		ItemID:   note.ID,
		Type:     search.ResultNote,
		Title:    note.Title,
		Body:     note.Content,
		Owner:    note.Owner,
		Category: note.Category,
		Readers:  readers(note.Owner, grant),
	}
}
