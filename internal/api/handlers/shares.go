package handlers

import (
	"net/http"

	apierrors "github.com/matatunos/moco/internal/api/errors"
)

// ShareFolder обрабатывает POST /api/folders/{id}/share.
func (h *APIHandler) ShareFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	folderID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteValidation(w, "некорректный идентификатор папки")
		return
	}

	var req struct {
		Username   string `json:"username"`
		Permission string `json:"permission"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apierrors.WriteValidation(w, "некорректное тело запроса")
		return
	}

	share, err := h.shares.Grant(r.Context(), p, folderID, req.Username, req.Permission)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"share": toShareResponse(share),
	})
}

// ListShares обрабатывает GET /api/folders/{id}/shares.
func (h *APIHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	folderID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteValidation(w, "некорректный идентификатор папки")
		return
	}

	shares, err := h.shares.ListGrants(r.Context(), p, folderID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		items = append(items, toShareResponse(s))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"shares": items})
}

// RevokeShare обрабатывает DELETE /api/shares/{id}.
func (h *APIHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteValidation(w, "некорректный идентификатор шары")
		return
	}

	if err := h.shares.Revoke(r.Context(), p, id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "revoked"})
}
