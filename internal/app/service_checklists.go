package app

import (
	"context"
	"errors"
	"strings"

	"checkmark/api/internal/rbac"
	"checkmark/api/internal/store"
	"checkmark/api/internal/util"
)

type CreateChecklistInput struct {
	Title    string              `json:"title"`
	Category string              `json:"category"`
	Type     store.ChecklistType `json:"type"`
	Items    []ItemInput         `json:"items"`
}

// UpdateChecklistInput changes only the fields that are present.
type UpdateChecklistInput struct {
	Title    *string              `json:"title"`
	Category *string              `json:"category"`
	Type     *store.ChecklistType `json:"type"`
}

type ItemInput struct {
	Text   string           `json:"text"`
	Status store.TaskStatus `json:"status"`
	Time   *int             `json:"time"`
}

type UpdateItemInput struct {
	Text      *string           `json:"text"`
	Completed *bool             `json:"completed"`
	Status    *store.TaskStatus `json:"status"`
	Time      *int              `json:"time"`
}

// FlatItem is the compact item shape returned by the API key listing.
type FlatItem struct {
	Index     int              `json:"index"`
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Completed bool             `json:"completed"`
	Status    store.TaskStatus `json:"status,omitempty"`
	Time      *int             `json:"time,omitempty"`
}

type FlatChecklist struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	Category string              `json:"category"`
	Type     store.ChecklistType `json:"type"`
	Owner    string              `json:"owner"`
	Items    []FlatItem          `json:"items"`
}

func flatten(list store.Checklist) FlatChecklist {
	items := make([]FlatItem, 0, len(list.Items))
	for i, item := range list.Items {
		flat := FlatItem{Index: i, ID: item.ID, Text: item.Text, Completed: item.Completed}
		if list.Type == store.ChecklistTask {
			flat.Status = item.Status
			seconds := item.Time
			flat.Time = &seconds
		}
		items = append(items, flat)
	}
	return FlatChecklist{
		ID:       list.ID,
		Title:    list.Title,
		Category: list.Category,
		Type:     list.Type,
		Owner:    list.Owner,
		Items:    items,
	}
}

// GetLists returns a user's own checklists. username defaults to the actor;
// only admins may name somebody else.
func (s *Service) GetLists(ctx context.Context, actor store.User, username string) ([]store.Checklist, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = actor.Username
	}
	if username != actor.Username && !actor.IsAdmin {
		return nil, errForbidden()
	}
	return s.files.ListChecklists(ctx, username)
}

// GetFlatLists is GetLists with each checklist reduced to its compact form.
func (s *Service) GetFlatLists(ctx context.Context, actor store.User, username string) ([]FlatChecklist, error) {
	lists, err := s.GetLists(ctx, actor, username)
	if err != nil {
		return nil, err
	}
	result := make([]FlatChecklist, 0, len(lists))
	for _, list := range lists {
		result = append(result, flatten(list))
	}
	return result, nil
}

func (s *Service) GetAllLists(ctx context.Context, actor store.User) ([]store.Checklist, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.files.ListAllChecklists(ctx)
}

func (s *Service) CreateList(ctx context.Context, actor store.User, input CreateChecklistInput) (store.Checklist, error) {
	list := store.Checklist{
		Title:    input.Title,
		Category: input.Category,
		Type:     input.Type,
	}
	for i, in := range input.Items {
		item, err := newItem(list.Type, in, i)
		if err != nil {
			return store.Checklist{}, err
		}
		list.Items = append(list.Items, item)
	}
	created, err := s.files.CreateChecklist(ctx, actor.Username, list)
	if err != nil {
		return store.Checklist{}, err
	}
	s.search.Index(checklistRecord(created, nil))
	return created, nil
}

func (s *Service) GetList(ctx context.Context, actor store.User, id string) (store.Checklist, error) {
	owner, _, err := s.authorize(ctx, actor, store.ItemChecklist, id, rbac.ActionRead)
	if err != nil {
		return store.Checklist{}, err
	}
	return s.checklist(ctx, owner, id)
}

func (s *Service) checklist(ctx context.Context, owner, id string) (store.Checklist, error) {
	list, err := s.files.GetChecklist(ctx, owner, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Checklist{}, errNotFound("Checklist")
	}
	return list, err
}

// UpdateList edits checklist metadata. A new title keeps the file name; a new
// category moves the file to that folder.
func (s *Service) UpdateList(ctx context.Context, actor store.User, id string, input UpdateChecklistInput) (store.Checklist, error) {
	return s.mutateList(ctx, actor, id, func(list *store.Checklist) error {
		if input.Title != nil {
			list.Title = *input.Title
		}
		if input.Category != nil {
			list.Category = *input.Category
		}
		if input.Type != nil {
			list.Type = *input.Type
		}
		return nil
	})
}

// DeleteList is idempotent. Collaborators cannot delete.
func (s *Service) DeleteList(ctx context.Context, actor store.User, id string) error {
	owner, _, err := s.authorize(ctx, actor, store.ItemChecklist, id, rbac.ActionDelete)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.files.DeleteChecklist(ctx, owner, id); err != nil {
		return err
	}
	s.unindex(store.ItemChecklist, id)
	return nil
}

func (s *Service) AddItem(ctx context.Context, actor store.User, listID string, input ItemInput) (store.Item, error) {
	var itemID string
	list, err := s.mutateList(ctx, actor, listID, func(list *store.Checklist) error {
		item, err := newItem(list.Type, input, len(list.Items))
		if err != nil {
			return err
		}
		list.Items = append(list.Items, item)
		itemID = item.ID
		return nil
	})
	if err != nil {
		return store.Item{}, err
	}
	return findItem(list, itemID)
}

func (s *Service) UpdateItem(ctx context.Context, actor store.User, listID, itemID string, input UpdateItemInput) (store.Item, error) {
	list, err := s.mutateList(ctx, actor, listID, func(list *store.Checklist) error {
		for i := range list.Items {
			if list.Items[i].ID == itemID {
				return applyItemUpdate(list.Type, &list.Items[i], input)
			}
		}
		return errNotFound("Item")
	})
	if err != nil {
		return store.Item{}, err
	}
	return findItem(list, itemID)
}

func findItem(list store.Checklist, itemID string) (store.Item, error) {
	for _, item := range list.Items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return store.Item{}, errNotFound("Item")
}

func (s *Service) DeleteItem(ctx context.Context, actor store.User, listID, itemID string) error {
	_, err := s.mutateList(ctx, actor, listID, func(list *store.Checklist) error {
		kept := list.Items[:0]
		for _, item := range list.Items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		if len(kept) == len(list.Items) {
			return errNotFound("Item")
		}
		list.Items = kept
		return nil
	})
	return err
}

// ReorderItems applies the order given by ids. Items missing from ids keep
// their relative order after the listed ones.
func (s *Service) ReorderItems(ctx context.Context, actor store.User, listID string, ids []string) (store.Checklist, error) {
	return s.mutateList(ctx, actor, listID, func(list *store.Checklist) error {
		position := make(map[string]int, len(ids))
		for i, id := range ids {
			if _, dup := position[id]; dup {
				return errValidation("duplicate item id " + id)
			}
			position[id] = i
		}
		for i := range list.Items {
			if pos, ok := position[list.Items[i].ID]; ok {
				list.Items[i].Order = pos
				delete(position, list.Items[i].ID)
				continue
			}
			list.Items[i].Order = len(ids) + i
		}
		if len(position) > 0 {
			return errValidation("unknown item id in order")
		}
		return nil
	})
}

func (s *Service) mutateList(ctx context.Context, actor store.User, id string, fn func(*store.Checklist) error) (store.Checklist, error) {
	owner, grant, err := s.authorize(ctx, actor, store.ItemChecklist, id, rbac.ActionWrite)
	if err != nil {
		return store.Checklist{}, err
	}
	list, err := s.files.UpdateChecklist(ctx, owner, id, fn)
	if errors.Is(err, store.ErrNotFound) {
		return store.Checklist{}, errNotFound("Checklist")
	}
	if err != nil {
		return store.Checklist{}, err
	}
	s.search.Index(checklistRecord(list, grant))
	return list, nil
}

func newItem(kind store.ChecklistType, input ItemInput, order int) (store.Item, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return store.Item{}, errValidation("text is required")
	}
	item := store.Item{ID: util.NewID(""), Text: text, Order: order}
	if kind != store.ChecklistTask {
		return item, nil
	}
	item.Status = store.StatusTodo
	if input.Status != "" {
		if !store.ValidTaskStatus(input.Status) {
			return store.Item{}, errValidation("unknown status " + string(input.Status))
		}
		item.Status = input.Status
	}
	item.Completed = item.Status == store.StatusCompleted
	if input.Time != nil {
		if *input.Time < 0 {
			return store.Item{}, errValidation("time must not be negative")
		}
		item.Time = *input.Time
	}
	return item, nil
}

func applyItemUpdate(kind store.ChecklistType, item *store.Item, input UpdateItemInput) error {
	if input.Text != nil {
		text := strings.TrimSpace(*input.Text)
		if text == "" {
			return errValidation("text is required")
		}
		item.Text = text
	}
	if kind != store.ChecklistTask {
		if input.Completed != nil {
			item.Completed = *input.Completed
		}
		return nil
	}
	if input.Completed != nil {
		item.Status = store.StatusTodo
		if *input.Completed {
			item.Status = store.StatusCompleted
		}
	}
	if input.Status != nil {
		if !store.ValidTaskStatus(*input.Status) {
			return errValidation("unknown status " + string(*input.Status))
		}
		item.Status = *input.Status
	}
	item.Completed = item.Status == store.StatusCompleted
	if input.Time != nil {
		if *input.Time < 0 {
			return errValidation("time must not be negative")
		}
		item.Time = *input.Time
	}
	return nil
}
