package handlers

import (
	"net/http"

	apierrors "github.com/matatunos/moco/internal/api/errors"
)

// AdminListUsers обрабатывает GET /api/admin/users.
func (h *APIHandler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	users, err := h.admin.ListUsers(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"users": items})
}

// AdminUpdateUser обрабатывает PUT /api/admin/users/{id}.
// Частичное обновление: role и/или is_active.
func (h *APIHandler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteValidation(w, "некорректный идентификатор пользователя")
		return
	}

	var req struct {
		Role     *string `json:"role"`
		IsActive *bool   `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apierrors.WriteValidation(w, "некорректное тело запроса")
		return
	}

	user, err := h.admin.UpdateUser(r.Context(), p, id, req.Role, req.IsActive)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(user),
	})
}

// AdminDeleteUser обрабатывает DELETE /api/admin/users/{id}.
func (h *APIHandler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteValidation(w, "некорректный идентификатор пользователя")
		return
	}

	if err := h.admin.DeleteUser(r.Context(), p, id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// AdminGetSettings обрабатывает GET /api/admin/settings.
// Возвращает плоскую карту ключ → значение.
func (h *APIHandler) AdminGetSettings(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if !p.IsAdmin() {
		apierrors.WriteForbidden(w, "требуется роль администратора")
		return
	}

	settings, err := h.settings.GetAll(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	values := make(map[string]string, len(settings))
	for _, s := range settings {
		values[s.Key] = s.Value
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"settings": values})
}

// AdminUpdateSettings обрабатывает POST /api/admin/settings.
// Принимает карту ключ → значение; неизвестные ключи
// и некорректные значения отклоняются.
func (h *APIHandler) AdminUpdateSettings(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if !p.IsAdmin() {
		apierrors.WriteForbidden(w, "требуется роль администратора")
		return
	}

	var req map[string]string
	if err := decodeJSON(r, &req); err != nil {
		apierrors.WriteValidation(w, "ожидается карта настроек ключ → значение")
		return
	}

	if err := h.settings.Update(r.Context(), req); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}
