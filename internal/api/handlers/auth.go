package handlers

import (
	"net/http"

	apierrors "github.com/matatunos/moco/internal/api/errors"
	"github.com/matatunos/moco/internal/api/middleware"
)

// Register обрабатывает POST /api/auth/register.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apierrors.WriteValidation(w, "некорректное тело запроса")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "пользователь зарегистрирован",
		"user":    toUserResponse(user),
	})
}

// Login обрабатывает POST /api/auth/login.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apierrors.WriteValidation(w, "некорректное тело запроса")
		return
	}

	tokenString, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"access_token": tokenString,
		"user":         toUserResponse(user),
	})
}

// Me обрабатывает GET /api/auth/me.
// Возвращает субъект токена независимо от флага is_active.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		apierrors.WriteUnauthorized(w, "требуется аутентификация")
		return
	}

	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}
