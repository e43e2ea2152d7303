package app

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"checkmark/api/internal/store"
	"checkmark/api/internal/uploads"
)

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request, user store.User, parts []string) {
	ctx := r.Context()

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			users, err := s.service.ListUsers(ctx, user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"users": users})
		case http.MethodPost:
			var body CreateUserInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			created, err := s.service.CreateUser(ctx, user, body)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"user": created})
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	username := parts[0]

	if r.Method == http.MethodDelete && len(parts) == 1 {
		if err := s.service.DeleteUser(ctx, user, username); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPut && len(parts) == 2 && parts[1] == "password" {
		var body struct {
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ResetUserPassword(ctx, user, username, body.Password); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, user store.User, parts []string) {
	ctx := r.Context()
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	switch {
	case r.Method == http.MethodGet && parts[0] == "checklists":
		lists, err := s.service.GetAllLists(ctx, user)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"checklists": lists})
	case r.Method == http.MethodGet && parts[0] == "notes":
		notes, err := s.service.GetAllNotes(ctx, user)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
	case r.Method == http.MethodDelete && parts[0] == "sessions":
		if err := s.service.ClearSessions(ctx, user); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request, user store.User, parts []string) {
	if r.Method != http.MethodPut || len(parts) != 0 {
		writeMethodNotAllowed(w)
		return
	}
	var body store.AppSettings
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	settings, err := s.service.UpdateSettings(r.Context(), user, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// handleUploadAppIcon accepts a multipart form with a "file" part and an
// optional "slot" field naming the icon setting to update.
func (s *HTTPServer) handleUploadAppIcon(w http.ResponseWriter, r *http.Request, user store.User, parts []string) {
	if r.Method != http.MethodPost || len(parts) != 0 {
		writeMethodNotAllowed(w)
		return
	}
	if !user.IsAdmin {
		writeServiceError(w, errForbidden())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxSize+1<<20)
	if err := r.ParseMultipartForm(uploads.MaxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, uploads.ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected multipart form with a file", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "file is required", nil)
		return
	}
	defer file.Close()

	url, err := s.service.UploadAppIcon(r.Context(), user, header.Filename, strings.TrimSpace(r.FormValue("slot")), file, header.Size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"url": url})
}

func (s *HTTPServer) handleAppIcon(w http.ResponseWriter, r *http.Request, name string) {
	body, contentType, err := s.service.AppIcon(r.Context(), name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("uploads: serve %s: %v", name, err)
	}
}
