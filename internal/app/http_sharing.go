package app

import (
	"net/http"

	"checkmark/api/internal/store"
)

func (s *HTTPServer) handleSharing(w http.ResponseWriter, r *http.Request, user store.User, parts []string) {
	ctx := r.Context()
	if len(parts) < 2 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	kind, err := parseItemType(parts[0])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	itemID := parts[1]

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			grant, err := s.service.GetItemSharingMetadata(ctx, user, kind, itemID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"sharing": grant})
		case http.MethodPut:
			var body UpdateSharingInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			grant, err := s.service.UpdateSharing(ctx, user, kind, itemID, body)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"sharing": grant})
		case http.MethodDelete:
			if err := s.service.Revoke(ctx, user, kind, itemID); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	if r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "users" {
		var body struct {
			Username string `json:"username"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		grant, err := s.service.ShareWithUser(ctx, user, kind, itemID, body.Username)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sharing": grant})
		return
	}

	if r.Method == http.MethodDelete && len(parts) == 4 && parts[2] == "users" {
		grant, err := s.service.UnshareWithUser(ctx, user, kind, itemID, parts[3])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sharing": grant})
		return
	}

	if r.Method == http.MethodPut && len(parts) == 3 && parts[2] == "public" {
		var body struct {
			IsPubliclyShared bool `json:"isPubliclyShared"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		grant, err := s.service.SetPublic(ctx, user, kind, itemID, body.IsPubliclyShared)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sharing": grant})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleSharedWithMe(w http.ResponseWriter, r *http.Request, user store.User, parts []string) {
	if r.Method != http.MethodGet || len(parts) != 0 {
		writeMethodNotAllowed(w)
		return
	}
	items, err := s.service.SharedWithMe(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handlePublicItem serves the read-only public view. Anything that is not a
// publicly shared item, including lookup failures, redirects to the home page
// instead of reporting why.
func (s *HTTPServer) handlePublicItem(w http.ResponseWriter, r *http.Request, rawType, itemID string) {
	kind, ok := store.ParseItemType(rawType)
	if !ok {
		redirectHome(w)
		return
	}
	ctx := r.Context()
	switch kind {
	case store.ItemChecklist:
		list, err := s.service.PublicChecklist(ctx, itemID)
		if err != nil || list == nil {
			redirectHome(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"checklist": list})
	case store.ItemNote:
		note, err := s.service.PublicNote(ctx, itemID)
		if err != nil || note == nil {
			redirectHome(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"note": note})
	}
}

func redirectHome(w http.ResponseWriter) {
	w.Header().Del("Content-Type")
	w.Header().Set("Location", "/")
	w.WriteHeader(http.StatusFound)
}
