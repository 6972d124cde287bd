package handlers

import (
	"net/http"

	apierrors "github.com/matatunos/moco/internal/api/errors"
)

// CreateFolder обрабатывает POST /api/folders.
func (h *APIHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req struct {
		Name     string `json:"name"`
		ParentID *int64 `json:"parent_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apierrors.WriteValidation(w, "некорректное тело запроса")
		return
	}

	folder, err := h.folders.Create(r.Context(), p, req.Name, req.ParentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"folder": toFolderResponse(folder),
	})
}

// DeleteFolder обрабатывает DELETE /api/folders/{id}.
// Удаляет всё поддерево. Корневую папку удалить нельзя.
func (h *APIHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteValidation(w, "некорректный идентификатор папки")
		return
	}

	if err := h.folders.Delete(r.Context(), p, id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}
