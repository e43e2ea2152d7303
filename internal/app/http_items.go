package app

import (
	"net/http"
	"strings"

	"checkmark/api/internal/store"
)

func (s *HTTPServer) handleChecklists(w http.ResponseWriter, r *http.Request, user store.User, parts []string) {
	ctx := r.Context()

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			lists, err := s.service.GetFlatLists(ctx, user, r.URL.Query().Get("username"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"checklists": lists})
		case http.MethodPost:
			var body CreateChecklistInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			list, err := s.service.CreateList(ctx, user, body)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"checklist": list})
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	listID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			list, err := s.service.GetList(ctx, user, listID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"checklist": list})
		case http.MethodPut:
			var body UpdateChecklistInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			list, err := s.service.UpdateList(ctx, user, listID, body)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"checklist": list})
		case http.MethodDelete:
			if err := s.service.DeleteList(ctx, user, listID); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	if r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "items" {
		var body ItemInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.AddItem(ctx, user, listID, body)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"item": item})
		return
	}

	if len(parts) == 3 && parts[1] == "items" {
		itemID := parts[2]
		switch r.Method {
		case http.MethodPut:
			var body UpdateItemInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			item, err := s.service.UpdateItem(ctx, user, listID, itemID, body)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"item": item})
		case http.MethodDelete:
			if err := s.service.DeleteItem(ctx, user, listID, itemID); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	if r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "reorder" {
		var body struct {
			ItemIDs []string `json:"itemIds"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		list, err := s.service.ReorderItems(ctx, user, listID, body.ItemIDs)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"checklist": list})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleNotes(w http.ResponseWriter, r *http.Request, user store.User, parts []string) {
	ctx := r.Context()

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			notes, err := s.service.GetNotes(ctx, user, r.URL.Query().Get("username"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
		case http.MethodPost:
			var body CreateNoteInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			note, err := s.service.CreateNote(ctx, user, body)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"note": note})
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	noteID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			note, err := s.service.GetNote(ctx, user, noteID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"note": note})
		case http.MethodPut:
			var body UpdateNoteInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			note, err := s.service.UpdateNote(ctx, user, noteID, body)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"note": note})
		case http.MethodDelete:
			if err := s.service.DeleteNote(ctx, user, noteID); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	if r.Method == http.MethodGet && len(parts) == 2 && parts[1] == "history" {
		limit, ok := queryInt(w, r, "limit", defaultHistoryLimit)
		if !ok {
			return
		}
		commits, err := s.service.NoteHistory(ctx, user, noteID, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": commits})
		return
	}

	if r.Method == http.MethodGet && len(parts) == 3 && parts[1] == "history" {
		content, err := s.service.NoteRevision(ctx, user, noteID, parts[2])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hash": parts[2], "content": content})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleCategories(w http.ResponseWriter, r *http.Request, user store.User, parts []string) {
	ctx := r.Context()
	if len(parts) == 0 || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	kind, err := parseItemType(parts[0])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			categories, err := s.service.ListCategories(ctx, user, kind)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
		case http.MethodPost:
			var body struct {
				Name string `json:"name"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if strings.TrimSpace(body.Name) == "" {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
				return
			}
			category, err := s.service.CreateCategory(ctx, user, kind, body.Name)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"category": category})
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	name := parts[1]
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
			return
		}
		category, err := s.service.RenameCategory(ctx, user, kind, name, body.Name)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"category": category})
	case http.MethodDelete:
		ids, err := s.service.DeleteCategory(ctx, user, kind, name)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": ids})
	default:
		writeMethodNotAllowed(w)
	}
}
